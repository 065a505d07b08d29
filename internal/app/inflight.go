package service

import (
	"context"
	"sync"

	"github.com/okian/doppel/internal/adapters/repository"
)

// inflight tracks submitted comparisons that have not been saved yet.
type inflight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{ids: make(map[string]struct{})}
}

func (f *inflight) add(id string) {
	f.mu.Lock()
	f.ids[id] = struct{}{}
	f.mu.Unlock()
}

func (f *inflight) remove(id string) {
	f.mu.Lock()
	delete(f.ids, id)
	f.mu.Unlock()
}

func (f *inflight) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ids[id]
	return ok
}

func (f *inflight) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids)
}

// reset forgets every tracked ID; jobs still queued at shutdown never finish.
func (f *inflight) reset() {
	f.mu.Lock()
	f.ids = make(map[string]struct{})
	f.mu.Unlock()
}

// trackingSaver saves worker records and marks their IDs as finished.
type trackingSaver struct {
	store    repository.Store
	inflight *inflight
}

func (t trackingSaver) Save(ctx context.Context, rec repository.Record) error {
	err := t.store.Save(ctx, rec)
	t.inflight.remove(rec.ID)
	return err
}
