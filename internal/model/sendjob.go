package model

import "time"

// Send job modes. Join packs all recipients into as few messages as
// the per-message cap allows; each sends one message per recipient
// with a flat inter-chunk pause; smooth does the same under a token
// bucket.
const (
	ModeJoin   = "join"
	ModeEach   = "each"
	ModeSmooth = "smooth"
)

// Send outcome statuses.
const (
	SendStatusSent   = "sent"
	SendStatusFailed = "failed"
)

// SendJob is one bulk send run.
type SendJob struct {
	ID         string
	Name       string
	Mode       string
	Account    string
	Subject    string
	Total      int
	Sent       int
	Failed     int
	DryRun     bool
	CreatedAt  time.Time
	FinishedAt time.Time
}

// SendRecord is the outcome of one send attempt within a job. In join
// mode Recipient holds the joined chunk's addresses.
type SendRecord struct {
	ID        string
	JobID     string
	Recipient string
	Status    string
	Error     string
	SentAt    time.Time
}
