// Package sink defines where derived tables go. A Sink persists one fully
// ordered model.Table per Write call; sinks that can make a run
// all-or-nothing also implement Committer.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"datalake/internal/model"
)

// Sink persists tables.
type Sink interface {
	Write(ctx context.Context, t *model.Table) error
}

// Committer is implemented by sinks that stage writes. Nothing written
// through the sink is visible until Commit; Abort discards staged output.
type Committer interface {
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// ErrPermanent marks an error that retrying cannot fix.
var ErrPermanent = errors.New("permanent sink error")

// Permanent wraps err so Retrying gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Memory keeps written tables in memory, keyed by name. A later Write of the
// same name replaces the earlier one.
type Memory struct {
	mu     sync.Mutex
	tables map[string]*model.Table
	order  []string
}

var _ Sink = (*Memory)(nil)

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory { return &Memory{tables: map[string]*model.Table{}} }

// Write implements Sink.
func (m *Memory) Write(ctx context.Context, t *model.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil {
		return Permanent(fmt.Errorf("memory sink: nil table"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[t.Name]; !ok {
		m.order = append(m.order, t.Name)
	}
	m.tables[t.Name] = t
	return nil
}

// Table returns the table written under name.
func (m *Memory) Table(name string) (*model.Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[name]
	return t, ok
}

// Names returns table names in first-write order.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}
