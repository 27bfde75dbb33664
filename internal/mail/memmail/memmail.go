// Package memmail is an in-memory implementation of the mail
// capability interfaces. It backs tests and the bulk command's
// dry-run mode.
package memmail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mhoang/mailflow/internal/mail"
)

// Store holds folders and messages in memory and records every send.
type Store struct {
	mu       sync.Mutex
	folders  map[string][]mail.Message
	noSelect map[string]bool
	sent     []mail.Outgoing

	// SendErr, when non-nil, is consulted before each send so tests
	// can inject failures for specific messages.
	SendErr func(msg *mail.Outgoing) error
}

var (
	_ mail.Sender  = (*Store)(nil)
	_ mail.Mailbox = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		folders:  map[string][]mail.Message{},
		noSelect: map[string]bool{},
	}
}

// AddFolder registers an empty folder.
func (s *Store) AddFolder(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.folders[name]; !ok {
		s.folders[name] = nil
	}
}

// AddMessage appends a message to a folder, creating the folder if
// needed. The message's UID is assigned if unset.
func (s *Store) AddMessage(folder string, msg mail.Message) mail.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Envelope.UID == 0 {
		msg.Envelope.UID = uint32(len(s.folders[folder]) + 1)
	}
	msg.Envelope.AttachmentCount = len(msg.Attachments)
	s.folders[folder] = append(s.folders[folder], msg)
	return msg.Envelope
}

// Sent returns a copy of every message recorded by Send, in order.
func (s *Store) Sent() []mail.Outgoing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.Outgoing(nil), s.sent...)
}

// Send records the message. No delivery happens.
func (s *Store) Send(_ context.Context, msg *mail.Outgoing) error {
	if s.SendErr != nil {
		if err := s.SendErr(msg); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, *msg)
	return nil
}

// Folders lists every folder sorted by name.
func (s *Store) Folders(_ context.Context) ([]mail.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.folders))
	for name := range s.folders {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]mail.Folder, 0, len(names))
	for _, name := range names {
		out = append(out, mail.Folder{
			Name:     name,
			Delim:    "/",
			NoSelect: s.noSelect[name],
		})
	}
	return out, nil
}

// Envelopes lists message metadata for a folder, oldest first.
func (s *Store) Envelopes(
	_ context.Context, folder string, opts mail.FetchOptions,
) ([]mail.Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.folders[folder]
	if !ok {
		return nil, fmt.Errorf("no such folder %q", folder)
	}

	var envelopes []mail.Envelope
	for _, m := range msgs {
		if !opts.Since.IsZero() && m.Envelope.Date.Before(opts.Since) {
			continue
		}
		envelopes = append(envelopes, m.Envelope)
	}

	if opts.Limit > 0 && len(envelopes) > opts.Limit {
		envelopes = envelopes[len(envelopes)-opts.Limit:]
	}
	return envelopes, nil
}

// Message fetches a single message by UID.
func (s *Store) Message(
	_ context.Context, folder string, uid uint32,
) (*mail.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageLocked(folder, uid)
}

func (s *Store) messageLocked(folder string, uid uint32) (*mail.Message, error) {
	msgs, ok := s.folders[folder]
	if !ok {
		return nil, fmt.Errorf("no such folder %q", folder)
	}
	for i := range msgs {
		if msgs[i].Envelope.UID == uid {
			cp := msgs[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("message UID %d not found in %s", uid, folder)
}

// SaveAttachments writes the message's attachments into destDir.
func (s *Store) SaveAttachments(
	_ context.Context, folder string, uid uint32, destDir string,
) ([]string, error) {
	s.mu.Lock()
	msg, err := s.messageLocked(folder, uid)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating attachment directory %s: %w", destDir, err)
	}

	var paths []string
	for i, att := range msg.Attachments {
		name := att.Filename
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}
		path := filepath.Join(destDir, filepath.Base(name))
		if err := os.WriteFile(path, att.Data, 0o644); err != nil {
			return paths, fmt.Errorf("writing attachment %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SetFlags adds or removes flags on a message.
func (s *Store) SetFlags(
	_ context.Context, folder string, uid uint32, flags []string, add bool,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.folders[folder]
	if !ok {
		return fmt.Errorf("no such folder %q", folder)
	}
	for i := range msgs {
		if msgs[i].Envelope.UID != uid {
			continue
		}
		if add {
			for _, f := range flags {
				if !hasFlag(msgs[i].Envelope.Flags, f) {
					msgs[i].Envelope.Flags = append(msgs[i].Envelope.Flags, f)
				}
			}
		} else {
			var kept []string
			for _, f := range msgs[i].Envelope.Flags {
				if !hasFlag(flags, f) {
					kept = append(kept, f)
				}
			}
			msgs[i].Envelope.Flags = kept
		}
		return nil
	}
	return fmt.Errorf("message UID %d not found in %s", uid, folder)
}

// Move moves a message to another folder.
func (s *Store) Move(
	_ context.Context, folder string, uid uint32, dest string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs, ok := s.folders[folder]
	if !ok {
		return fmt.Errorf("no such folder %q", folder)
	}
	if _, ok := s.folders[dest]; !ok {
		return fmt.Errorf("no such folder %q", dest)
	}

	for i := range msgs {
		if msgs[i].Envelope.UID != uid {
			continue
		}
		moved := msgs[i]
		s.folders[folder] = append(msgs[:i:i], msgs[i+1:]...)
		moved.Envelope.UID = uint32(len(s.folders[dest]) + 1)
		s.folders[dest] = append(s.folders[dest], moved)
		return nil
	}
	return fmt.Errorf("message UID %d not found in %s", uid, folder)
}

// Archive moves a message to the "Archive" folder, creating it on
// first use.
func (s *Store) Archive(ctx context.Context, folder string, uid uint32) error {
	s.AddFolder("Archive")
	return s.Move(ctx, folder, uid, "Archive")
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
