// Package mail defines the narrow capability surface over the mail
// collaborators (IMAP mailbox, SMTP sender) so that dispatch logic and
// commands can run against a fake implementation in tests.
package mail

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AuthError indicates that authentication has failed for a mail
// account. It is returned by clients when a login is rejected.
type AuthError struct {
	Account string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Account, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Address is a single mail address with an optional display name.
type Address struct {
	Name string
	Addr string
}

// String renders the address in "Name <addr>" form, or the bare
// address when no name is set.
func (a Address) String() string {
	if a.Name == "" {
		return a.Addr
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Addr)
}

// Folder describes a single mailbox folder as reported by the server.
type Folder struct {
	// Name is the full mailbox path, e.g. "INBOX.Receipts".
	Name string

	// Delim is the hierarchy delimiter reported by the server.
	Delim string

	// NoSelect is true for folders that only exist as hierarchy
	// nodes and cannot hold messages.
	NoSelect bool
}

// Parent returns the name of the folder's parent, or "" for a
// top-level folder or one with no known delimiter.
func (f Folder) Parent() string {
	if f.Delim == "" {
		return ""
	}
	for i := len(f.Name) - len(f.Delim); i > 0; i-- {
		if f.Name[i:i+len(f.Delim)] == f.Delim {
			return f.Name[:i]
		}
	}
	return ""
}

// Depth returns the folder's nesting depth, 0 for top-level folders.
func (f Folder) Depth() int {
	if f.Delim == "" {
		return 0
	}
	depth := 0
	for i := 0; i+len(f.Delim) <= len(f.Name); i++ {
		if f.Name[i:i+len(f.Delim)] == f.Delim {
			depth++
		}
	}
	return depth
}

// Envelope holds the metadata of a single message.
type Envelope struct {
	UID             uint32
	MessageID       string
	Subject         string
	From            Address
	To              []string
	Date            time.Time
	Flags           []string // \Seen, \Flagged, \Answered, \Deleted
	AttachmentCount int
}

// Attachment holds a message attachment. Data is populated only when
// the full message has been fetched.
type Attachment struct {
	Filename string
	MIMEType string
	Size     int64
	Data     []byte
}

// Message is a fully fetched message: envelope plus bodies and
// attachment content.
type Message struct {
	Envelope    Envelope
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Outgoing describes a message to be composed and sent.
type Outgoing struct {
	From            Address
	To              []string
	Cc              []string
	Bcc             []string
	Subject         string
	TextBody        string
	HTMLBody        string
	AttachmentPaths []string
}

// Recipients returns every To/Cc/Bcc address of the message, in that
// order.
func (o *Outgoing) Recipients() []string {
	out := make([]string, 0, len(o.To)+len(o.Cc)+len(o.Bcc))
	out = append(out, o.To...)
	out = append(out, o.Cc...)
	out = append(out, o.Bcc...)
	return out
}

// FetchOptions controls envelope listing.
type FetchOptions struct {
	// Limit caps the number of envelopes returned, newest first kept.
	// Zero means a client-chosen default.
	Limit int

	// Since restricts the search to messages received on or after
	// this time. Zero means no restriction.
	Since time.Time
}

// Sender sends composed messages.
type Sender interface {
	Send(ctx context.Context, msg *Outgoing) error
}

// Mailbox exposes read and organize operations over a mail account's
// folder tree.
type Mailbox interface {
	// Folders lists every folder of the account.
	Folders(ctx context.Context) ([]Folder, error)

	// Envelopes lists message metadata for a folder.
	Envelopes(ctx context.Context, folder string, opts FetchOptions) ([]Envelope, error)

	// Message fetches the full content of a single message.
	Message(ctx context.Context, folder string, uid uint32) (*Message, error)

	// SaveAttachments writes every attachment of a message into
	// destDir and returns the written paths.
	SaveAttachments(ctx context.Context, folder string, uid uint32, destDir string) ([]string, error)

	// SetFlags adds (or removes, when add is false) flags on a message.
	SetFlags(ctx context.Context, folder string, uid uint32, flags []string, add bool) error

	// Move moves a message to another folder.
	Move(ctx context.Context, folder string, uid uint32, dest string) error

	// Archive moves a message to the account's archive folder,
	// trying common archive names.
	Archive(ctx context.Context, folder string, uid uint32) error
}
