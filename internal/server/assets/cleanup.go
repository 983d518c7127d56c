package assets

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/gallerist/internal/common"
	"github.com/dmitrijs2005/gallerist/internal/logging"
)

type ActionOp uint8

const (
	OpSoftDelete ActionOp = iota
	OpPurge
)

func (o ActionOp) String() string {
	if o == OpPurge {
		return "purge"
	}
	return "soft_delete"
}

// Action is one deferred object-store mutation.
type Action struct {
	Op        ActionOp
	Reference string
}

// Cleanup is the list of actions to run once the owning database change is
// committed.
type Cleanup []Action

func SoftDeleteAll(refs ...string) Cleanup {
	c := make(Cleanup, 0, len(refs))
	for _, r := range refs {
		if r != "" {
			c = append(c, Action{Op: OpSoftDelete, Reference: r})
		}
	}
	return c
}

func PurgeAll(refs ...string) Cleanup {
	c := make(Cleanup, 0, len(refs))
	for _, r := range refs {
		if r != "" {
			c = append(c, Action{Op: OpPurge, Reference: r})
		}
	}
	return c
}

// Janitor executes cleanups. Failures never reach the caller of the
// original operation; they are counted and logged as partial cleanup.
type Janitor struct {
	manager *Manager
	logger  logging.Logger
	wg      sync.WaitGroup
}

func NewJanitor(m *Manager, logger logging.Logger) *Janitor {
	return &Janitor{manager: m, logger: logger.With("module", "janitor")}
}

// Run executes c synchronously and returns the joined failures, each of
// KindPartialCleanup.
func (j *Janitor) Run(ctx context.Context, c Cleanup) error {
	var errs []error
	for _, a := range c {
		var err error
		switch a.Op {
		case OpPurge:
			err = j.manager.Purge(ctx, a.Reference)
		default:
			err = j.manager.SoftDelete(ctx, a.Reference)
		}
		if err != nil {
			cleanupFailuresTotal.WithLabelValues(a.Op.String()).Inc()
			j.logger.Error(ctx, "asset cleanup failed",
				"kind", common.KindPartialCleanup.String(),
				"op", a.Op.String(),
				"ref", a.Reference,
				"error", err)
			errs = append(errs, common.E(common.KindPartialCleanup, "assets.Janitor", err))
		}
	}
	return errors.Join(errs...)
}

// Schedule runs c in the background, detached from ctx cancellation so a
// finished request does not abort its cleanup.
func (j *Janitor) Schedule(ctx context.Context, c Cleanup) {
	if len(c) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		_ = j.Run(ctx, c)
	}()
}

// Wait blocks until scheduled cleanups finish or ctx is done.
func (j *Janitor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
