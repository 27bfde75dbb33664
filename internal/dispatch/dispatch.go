// Package dispatch partitions recipient lists for mass sends and paces
// the resulting send calls against provider-imposed caps: a maximum
// number of recipients per message, or a maximum number of messages per
// time window.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrChunkSize is returned when a chunk size is zero or negative.
var ErrChunkSize = errors.New("chunk size must be positive")

// GroupFunc sends a single message addressed to every recipient in the
// group. It is invoked once per chunk in batched mode.
type GroupFunc func(ctx context.Context, recipients []string) error

// RecipientFunc sends a single message to a single recipient. It is
// invoked once per recipient in throttled and limited modes.
type RecipientFunc func(ctx context.Context, recipient string) error

// Chunk splits items into consecutive groups of at most size elements.
// The last group may be smaller. Order and total element count are
// preserved exactly; the returned groups are subslices of items, not
// copies. An empty input yields no groups.
func Chunk[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size %d: %w", size, ErrChunkSize)
	}
	if len(items) == 0 {
		return nil, nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks, nil
}

// Dispatcher drives chunked sends. The zero value is not usable; create
// one with New.
type Dispatcher struct {
	// sleep is replaced in tests so throttled dispatch does not
	// actually block.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Dispatcher that pauses with a context-aware timer.
func New() *Dispatcher {
	return &Dispatcher{sleep: sleepContext}
}

// Batched chunks recipients by perMessageLimit and calls send once per
// chunk, each chunk intended to become a single message's recipient
// list. No pause happens between chunks: the cap being respected is a
// per-message size limit, not a rate limit.
//
// The first send error aborts the remaining chunks and is returned to
// the caller unmodified.
func (d *Dispatcher) Batched(
	ctx context.Context,
	recipients []string,
	perMessageLimit int,
	send GroupFunc,
) error {
	chunks, err := Chunk(recipients, perMessageLimit)
	if err != nil {
		return err
	}

	for _, group := range chunks {
		if err := send(ctx, group); err != nil {
			return err
		}
	}
	return nil
}

// Throttled chunks recipients by perWindowLimit, calls send for every
// recipient of a chunk sequentially, then pauses for window before the
// next chunk. No pause happens after the final chunk, and a single
// chunk smaller than the limit incurs none at all.
//
// The window is advisory and enforced only on this side; whether the
// provider actually rejects faster sends is the provider's concern.
// A send error aborts the current chunk at the failing recipient and
// skips all later chunks.
func (d *Dispatcher) Throttled(
	ctx context.Context,
	recipients []string,
	perWindowLimit int,
	window time.Duration,
	send RecipientFunc,
) error {
	chunks, err := Chunk(recipients, perWindowLimit)
	if err != nil {
		return err
	}

	for i, group := range chunks {
		for _, rcpt := range group {
			if err := send(ctx, rcpt); err != nil {
				return err
			}
		}
		if i < len(chunks)-1 {
			if err := d.sleep(ctx, window); err != nil {
				return err
			}
		}
	}
	return nil
}

// Limited sends one message per recipient paced by a token bucket
// instead of a flat inter-chunk delay, so idle time is not wasted when
// sends finish well under the window. Use rate.NewLimiter with
// rate.Every(window/perWindowLimit) to approximate a Throttled call.
func (d *Dispatcher) Limited(
	ctx context.Context,
	recipients []string,
	limiter *rate.Limiter,
	send RecipientFunc,
) error {
	for _, rcpt := range recipients {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := send(ctx, rcpt); err != nil {
			return err
		}
	}
	return nil
}

// sleepContext blocks for d or until ctx is done, whichever comes
// first.
func sleepContext(ctx context.Context, d time.Duration) error {
	tmr := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !tmr.Stop() {
			<-tmr.C
		}
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}
