package model

import "time"

// MessageRecord is the extracted metadata of one mailbox message,
// persisted for querying and export.
type MessageRecord struct {
	// ID is derived from account, folder, and UID so re-syncs
	// replace rather than duplicate.
	ID              string
	Account         string
	Folder          string
	UID             uint32
	MessageID       string
	Subject         string
	FromName        string
	FromAddr        string
	ToAddrs         []string
	Date            time.Time
	Flags           []string
	AttachmentCount int
	FetchedAt       time.Time
}
