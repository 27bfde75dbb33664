// Package bulk runs mass-send jobs: it feeds a recipient list through
// the dispatcher, sends via the mail sender, and records per-send
// outcomes in the store.
package bulk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mhoang/mailflow/internal/dispatch"
	"github.com/mhoang/mailflow/internal/mail"
	"github.com/mhoang/mailflow/internal/model"
	"github.com/mhoang/mailflow/internal/store"
)

// Options describes one bulk send run.
type Options struct {
	Name            string
	Account         string
	From            mail.Address
	Subject         string
	TextBody        string
	HTMLBody        string
	AttachmentPaths []string
	Recipients      []string

	// Mode selects join, each, or smooth dispatch (model.Mode*).
	Mode string

	// PerMessageLimit caps recipients per message in join mode.
	PerMessageLimit int

	// PerWindowLimit and Window pace each and smooth modes.
	PerWindowLimit int
	Window         time.Duration

	// DryRun is recorded on the job; the caller wires a fake sender.
	DryRun bool
}

// Runner executes bulk send jobs against a fixed sender and store.
type Runner struct {
	store  store.Store
	sender mail.Sender
	disp   *dispatch.Dispatcher
	log    zerolog.Logger
}

// NewRunner creates a Runner.
func NewRunner(st store.Store, sender mail.Sender, log zerolog.Logger) *Runner {
	return &Runner{
		store:  st,
		sender: sender,
		disp:   dispatch.New(),
		log:    log,
	}
}

// Run executes one job. The send log is written as the job progresses;
// a send failure stops the remaining dispatch (fail-stop, no retry)
// and is returned after the job row has been finalized.
func (r *Runner) Run(ctx context.Context, opts Options) (*model.SendJob, error) {
	if len(opts.Recipients) == 0 {
		return nil, fmt.Errorf("bulk job %q has no recipients", opts.Name)
	}

	job := model.SendJob{
		ID:        uuid.New().String(),
		Name:      opts.Name,
		Mode:      opts.Mode,
		Account:   opts.Account,
		Subject:   opts.Subject,
		Total:     len(opts.Recipients),
		DryRun:    opts.DryRun,
		CreatedAt: time.Now(),
	}
	if err := r.store.CreateSendJob(ctx, job); err != nil {
		return nil, err
	}

	log := r.log.With().
		Str("job", job.ID).
		Str("name", job.Name).
		Str("mode", job.Mode).
		Int("total", job.Total).
		Logger()
	log.Info().Msg("bulk job started")

	start := time.Now()
	var sent, failed int

	var err error
	switch opts.Mode {
	case model.ModeJoin:
		err = r.disp.Batched(ctx, opts.Recipients, opts.PerMessageLimit,
			func(ctx context.Context, group []string) error {
				sendErr := r.sender.Send(ctx, r.outgoing(opts, group))
				r.record(ctx, job.ID, strings.Join(group, ", "), sendErr)
				if sendErr != nil {
					failed++
					return sendErr
				}
				sent++
				return nil
			})
	case model.ModeEach:
		err = r.disp.Throttled(ctx, opts.Recipients, opts.PerWindowLimit, opts.Window,
			r.sendOne(opts, job.ID, &sent, &failed))
	case model.ModeSmooth:
		limiter := smoothLimiter(opts.PerWindowLimit, opts.Window)
		err = r.disp.Limited(ctx, opts.Recipients, limiter,
			r.sendOne(opts, job.ID, &sent, &failed))
	default:
		err = fmt.Errorf("unknown bulk mode %q", opts.Mode)
	}

	if finishErr := r.store.FinishSendJob(ctx, job.ID, sent, failed); finishErr != nil {
		log.Warn().Err(finishErr).Msg("finalizing job record failed")
	}
	job.Sent = sent
	job.Failed = failed
	job.FinishedAt = time.Now()

	if err != nil {
		log.Warn().
			Err(err).
			Int("sent", sent).
			Int("failed", failed).
			Dur("took", time.Since(start)).
			Msg("bulk job aborted")
		return &job, err
	}

	log.Info().
		Int("sent", sent).
		Dur("took", time.Since(start)).
		Msg("bulk job finished")
	return &job, nil
}

// sendOne builds the per-recipient send callback used by each and
// smooth modes.
func (r *Runner) sendOne(
	opts Options, jobID string, sent, failed *int,
) dispatch.RecipientFunc {
	return func(ctx context.Context, rcpt string) error {
		sendErr := r.sender.Send(ctx, r.outgoing(opts, []string{rcpt}))
		r.record(ctx, jobID, rcpt, sendErr)
		if sendErr != nil {
			*failed++
			return sendErr
		}
		*sent++
		return nil
	}
}

// outgoing builds the message for one recipient group.
func (r *Runner) outgoing(opts Options, to []string) *mail.Outgoing {
	return &mail.Outgoing{
		From:            opts.From,
		To:              to,
		Subject:         opts.Subject,
		TextBody:        opts.TextBody,
		HTMLBody:        opts.HTMLBody,
		AttachmentPaths: opts.AttachmentPaths,
	}
}

// record writes one send outcome. Log-only on failure: the send log is
// advisory and must not abort a running dispatch.
func (r *Runner) record(ctx context.Context, jobID, recipient string, sendErr error) {
	rec := model.SendRecord{
		JobID:     jobID,
		Recipient: recipient,
		Status:    model.SendStatusSent,
		SentAt:    time.Now(),
	}
	if sendErr != nil {
		rec.Status = model.SendStatusFailed
		rec.Error = sendErr.Error()
	}
	if err := r.store.RecordSend(ctx, rec); err != nil {
		r.log.Warn().Err(err).Str("job", jobID).Msg("recording send outcome failed")
	}
}

// smoothLimiter spreads perWindowLimit sends evenly across the window.
func smoothLimiter(perWindowLimit int, window time.Duration) *rate.Limiter {
	if perWindowLimit <= 0 || window <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(perWindowLimit)), 1)
}
