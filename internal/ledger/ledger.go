package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotFound   = errors.New("resource not found")
	ErrConflict   = errors.New("resource already exists")
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("operation not permitted")
	ErrExhausted  = errors.New("resource exhausted")
	ErrReentrant  = errors.New("reentrant call rejected")
)

// Event is one accepted state transition, as recorded in the journal.
type Event struct {
	Seq       uint64          `json:"seq"`
	Op        string          `json:"op"`
	Account   string          `json:"account"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	AppliedAt time.Time       `json:"applied_at"`
}

// Journal receives every accepted transition. Appends are best-effort from the
// chain's point of view: a failed append is logged, never surfaced.
type Journal interface {
	Append(ctx context.Context, ev Event) error
}

// Chain serializes all state transitions. Every mutating operation in the
// system runs inside Execute, one at a time, stamped with a single wall-clock
// reading taken at entry. Reads go through View under the same lock, so a
// query never observes a half-applied step.
type Chain struct {
	mu      sync.Mutex
	seq     uint64
	journal Journal
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewChain(journal Journal, logger *zap.SugaredLogger) *Chain {
	return &Chain{
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the chain's clock. Tests only.
func (c *Chain) SetClock(now func() time.Time) {
	c.now = now
}

// SetSeq fast-forwards the sequence counter, used after restoring snapshots.
func (c *Chain) SetSeq(seq uint64) {
	c.mu.Lock()
	c.seq = seq
	c.mu.Unlock()
}

// Execute runs fn as one atomic ledger step. If fn returns an error the step
// is rejected and nothing is journaled; fn must not write any state before its
// last possible failure point. On success the transition is appended to the
// journal, with failures logged and swallowed.
func (c *Chain) Execute(ctx context.Context, op, account string, fn func(now time.Time) (any, error)) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	result, err := fn(now)
	if err != nil {
		return nil, err
	}

	c.seq++
	if c.journal != nil {
		payload, merr := json.Marshal(result)
		if merr != nil {
			payload = nil
		}
		ev := Event{
			Seq:       c.seq,
			Op:        op,
			Account:   account,
			Payload:   payload,
			AppliedAt: now,
		}
		if jerr := c.journal.Append(ctx, ev); jerr != nil {
			c.logger.Errorw("journal append failed", "op", op, "seq", c.seq, "error", jerr)
		}
	}
	return result, nil
}

// View runs fn under the chain lock without journaling anything.
func (c *Chain) View(fn func(now time.Time) (any, error)) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.now())
}

// Seq returns the number of transitions applied so far.
func (c *Chain) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}
