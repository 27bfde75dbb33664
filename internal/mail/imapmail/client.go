// Package imapmail implements the mail.Mailbox capability over IMAP
// using go-imap v2. Every operation dials, authenticates, acts, and
// logs out; no connection outlives a single call.
package imapmail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rs/zerolog"

	"github.com/mhoang/mailflow/internal/mail"
)

// Client connects to an IMAP server on demand.
type Client struct {
	account  string
	host     string
	port     string
	username string
	password string
	tls      bool
	log      zerolog.Logger
}

var _ mail.Mailbox = (*Client)(nil)

// New creates a new IMAP client configuration. The account label is
// used in errors and log lines only.
func New(
	account, host, port, username, password string, useTLS bool,
	log zerolog.Logger,
) *Client {
	return &Client{
		account:  account,
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      useTLS,
		log:      log.With().Str("account", account).Logger(),
	}
}

// connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout on the returned client.
func (c *Client) connect(_ context.Context) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &mail.AuthError{
			Account: c.account,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v", c.username, err,
			),
		}
	}

	return client, nil
}

// Validate verifies credentials by connecting, authenticating, and
// selecting INBOX. Returns the username on success.
func (c *Client) Validate(ctx context.Context) (string, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return "", fmt.Errorf("validating IMAP connection: %w", err)
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return "", fmt.Errorf("selecting INBOX: %w", err)
	}

	return c.username, nil
}

// Folders lists every folder of the account, sorted by full name so a
// parent always precedes its children.
func (c *Client) Folders(ctx context.Context) ([]mail.Folder, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	boxes, err := client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}

	folders := make([]mail.Folder, 0, len(boxes))
	for _, b := range boxes {
		f := mail.Folder{Name: b.Mailbox}
		if b.Delim != 0 {
			f.Delim = string(b.Delim)
		}
		for _, attr := range b.Attrs {
			if attr == imap.MailboxAttrNoSelect {
				f.NoSelect = true
			}
		}
		folders = append(folders, f)
	}

	sort.Slice(folders, func(i, j int) bool {
		return folders[i].Name < folders[j].Name
	})

	return folders, nil
}

// Envelopes selects the folder, searches for matching messages, and
// returns their envelope data, oldest first. When opts.Limit is set
// only the newest matches are fetched.
func (c *Client) Envelopes(
	ctx context.Context, folder string, opts mail.FetchOptions,
) ([]mail.Envelope, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", folder, err)
	}

	criteria := &imap.SearchCriteria{}
	if !opts.Since.IsZero() {
		criteria.Since = opts.Since
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", folder, err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	if opts.Limit > 0 && len(uids) > opts.Limit {
		uids = uids[len(uids)-opts.Limit:]
	}

	uidSet := imap.UIDSetNum(uids...)

	fetchOpts := &imap.FetchOptions{
		Envelope: true,
		Flags:    true,
		UID:      true,
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var envelopes []mail.Envelope
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			c.log.Debug().Err(err).Msg("skipping unreadable message")
			continue
		}

		envelopes = append(envelopes, envelopeFromBuffer(buf))
	}

	if err := fetchCmd.Close(); err != nil {
		return envelopes, fmt.Errorf("fetching envelopes from %s: %w", folder, err)
	}

	return envelopes, nil
}

// Message fetches the full message body for the given UID and parses
// it into bodies and attachments.
func (c *Client) Message(
	ctx context.Context, folder string, uid uint32,
) (*mail.Message, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", folder, err)
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}

	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		Flags:       true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found in %s", uid, folder)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	parsed := &mail.Message{
		Envelope: envelopeFromBuffer(buf),
	}

	rawBody := buf.FindBodySection(bodySection)
	if rawBody != nil {
		textBody, htmlBody, attachments := parseMIMEBody(rawBody)
		parsed.TextBody = textBody
		parsed.HTMLBody = htmlBody
		parsed.Attachments = attachments
		parsed.Envelope.AttachmentCount = len(attachments)
	}

	if err := fetchCmd.Close(); err != nil {
		return parsed, fmt.Errorf("closing fetch: %w", err)
	}

	return parsed, nil
}

// SaveAttachments fetches the message and writes each attachment's
// content into destDir, returning the written paths.
func (c *Client) SaveAttachments(
	ctx context.Context, folder string, uid uint32, destDir string,
) ([]string, error) {
	msg, err := c.Message(ctx, folder, uid)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating attachment directory %s: %w", destDir, err)
	}

	var paths []string
	for i, att := range msg.Attachments {
		name := SanitizeFilename(att.Filename)
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}

		path := filepath.Join(destDir, name)
		if err := os.WriteFile(path, att.Data, 0o644); err != nil {
			return paths, fmt.Errorf("writing attachment %s: %w", name, err)
		}

		c.log.Info().
			Str("folder", folder).
			Uint32("uid", uid).
			Str("path", path).
			Int("bytes", len(att.Data)).
			Msg("attachment saved")

		paths = append(paths, path)
	}

	return paths, nil
}

// SetFlags modifies flags on a message. If add is true the flags are
// added, otherwise removed.
func (c *Client) SetFlags(
	ctx context.Context, folder string, uid uint32, flags []string, add bool,
) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", folder, err)
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))

	imapFlags := make([]imap.Flag, 0, len(flags))
	for _, f := range flags {
		imapFlags = append(imapFlags, imap.Flag(f))
	}

	op := imap.StoreFlagsAdd
	if !add {
		op = imap.StoreFlagsDel
	}

	storeCmd := client.Store(uidSet, &imap.StoreFlags{
		Op:     op,
		Silent: true,
		Flags:  imapFlags,
	}, nil)

	return storeCmd.Close()
}

// Move moves a message to another folder.
func (c *Client) Move(
	ctx context.Context, folder string, uid uint32, dest string,
) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", folder, err)
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))

	if _, err := client.Move(uidSet, dest).Wait(); err != nil {
		return fmt.Errorf("moving UID %d to %s: %w", uid, dest, err)
	}
	return nil
}

// Archive moves a message to an archive folder, trying common archive
// names and falling back to marking the message as deleted.
func (c *Client) Archive(
	ctx context.Context, folder string, uid uint32,
) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", folder, err)
	}

	uidSet := imap.UIDSetNum(imap.UID(uid))

	archiveFolders := []string{
		"Archive", "[Gmail]/All Mail", "Archives", "INBOX.Archive",
	}

	for _, dest := range archiveFolders {
		moveCmd := client.Move(uidSet, dest)
		if _, err := moveCmd.Wait(); err == nil {
			return nil
		}
	}

	// Fallback: mark as deleted
	storeCmd := client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil)

	return storeCmd.Close()
}

// envelopeFromBuffer extracts a mail.Envelope from a FetchMessageBuffer.
func envelopeFromBuffer(buf *imapclient.FetchMessageBuffer) mail.Envelope {
	env := mail.Envelope{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		env.MessageID = buf.Envelope.MessageID
		env.Subject = buf.Envelope.Subject
		env.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			env.From = mail.Address{
				Name: from.Name,
				Addr: from.Addr(),
			}
		}

		for _, to := range buf.Envelope.To {
			env.To = append(env.To, to.Addr())
		}
	}

	for _, flag := range buf.Flags {
		env.Flags = append(env.Flags, string(flag))
	}

	return env
}

// filenameUnsafeChars matches characters that are stripped from
// attachment filenames before writing to disk.
var filenameUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._ -]`)

// SanitizeFilename reduces an attachment filename to its base name
// with unsafe characters replaced, so a crafted name cannot escape the
// destination directory.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return filenameUnsafeChars.ReplaceAllString(name, "_")
}
