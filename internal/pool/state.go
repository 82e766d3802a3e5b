package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/slotreason/internal/engine"
	"github.com/roach88/slotreason/internal/store"
)

// StateStore persists working memories by id. Both store.Store and
// store.FileStore implement it.
type StateStore interface {
	Load(ctx context.Context, id string) (store.State, bool, error)
	Save(ctx context.Context, st store.State) error
	Clear(ctx context.Context, id string) (bool, error)
}

// AcquireState checks out an engine and restores the working memory saved
// under id. A missing id is not an error: the engine comes back empty and a
// warning is logged.
func (p *Pool) AcquireState(ctx context.Context, id string) (*engine.Engine, error) {
	if p.states == nil {
		return nil, ErrNoStateStore
	}

	e, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	st, found, err := p.states.Load(ctx, id)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("acquire state %s: %w", id, err), p.Release(e))
	}
	if !found {
		p.logger.Warn("no persisted state, starting empty", "pool", p.name, "state", id)
		return e, nil
	}

	if hash, herr := e.RuleSetHash(); herr == nil && st.RuleSet != "" && st.RuleSet != hash {
		p.logger.Warn("persisted state was written under a different rule set",
			"pool", p.name,
			"state", id,
			"revision", st.Revision)
	}

	if err := e.Restore(st.Facts); err != nil {
		return nil, errors.Join(fmt.Errorf("acquire state %s: %w", id, err), p.Release(e))
	}
	p.logger.Debug("state restored", "pool", p.name, "state", id, "facts", len(st.Facts))
	return e, nil
}

// ReleaseState saves e's working memory under id and releases e. The
// engine is released even when saving fails.
func (p *Pool) ReleaseState(ctx context.Context, e *engine.Engine, id string) error {
	if p.states == nil {
		return ErrNoStateStore
	}
	if !p.holds(e) {
		return fmt.Errorf("release state %s to pool %s: %w", id, p.name, ErrNotAcquired)
	}

	saveErr := p.save(ctx, e, id)
	return errors.Join(saveErr, p.Release(e))
}

func (p *Pool) save(ctx context.Context, e *engine.Engine, id string) error {
	hash, err := e.RuleSetHash()
	if err != nil {
		return fmt.Errorf("save state %s: %w", id, err)
	}
	st, err := store.NewState(id, e.Dump(), hash)
	if err != nil {
		return fmt.Errorf("save state %s: %w", id, err)
	}
	if err := p.states.Save(ctx, st); err != nil {
		return err
	}
	p.logger.Debug("state saved", "pool", p.name, "state", id, "facts", len(st.Facts))
	return nil
}

// ClearState deletes the working memory saved under id. Clearing a missing
// id logs a warning.
func (p *Pool) ClearState(ctx context.Context, id string) error {
	if p.states == nil {
		return ErrNoStateStore
	}
	existed, err := p.states.Clear(ctx, id)
	if err != nil {
		return err
	}
	if !existed {
		p.logger.Warn("no persisted state to clear", "pool", p.name, "state", id)
	}
	return nil
}

func (p *Pool) holds(e *engine.Engine) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.busy[e]
	return ok
}
