// Package memory is an in-process store.Gateway used for tests and local
// development.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/store"
)

type Gateway struct {
	mu      sync.RWMutex
	records map[string]domain.Record
	order   []string
}

var _ store.Gateway = (*Gateway)(nil)

func New() *Gateway {
	return &Gateway{records: make(map[string]domain.Record)}
}

func (g *Gateway) InsertMany(ctx context.Context, records []domain.Record) (store.InsertManyResult, error) {
	if len(records) == 0 {
		return store.InsertManyResult{}, store.ErrEmptyBatch
	}
	if err := ctx.Err(); err != nil {
		return store.InsertManyResult{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = g.insertLocked(r)
	}
	return store.InsertManyResult{InsertedCount: len(ids), InsertedIDs: ids}, nil
}

func (g *Gateway) InsertOne(ctx context.Context, record domain.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.insertLocked(record), nil
}

func (g *Gateway) insertLocked(r domain.Record) string {
	r.ID = uuid.NewString()
	g.records[r.ID] = r
	g.order = append(g.order, r.ID)
	return r.ID
}

func (g *Gateway) FindAll(ctx context.Context, filter store.Filter) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]domain.Record, 0, len(g.order))
	for _, id := range g.order {
		if r := g.records[id]; filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (g *Gateway) FindByID(ctx context.Context, id string) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	r, ok := g.records[id]
	if !ok {
		return domain.Record{}, store.ErrNotFound
	}
	return r, nil
}

func (g *Gateway) UpdateByID(ctx context.Context, id string, record domain.Record) (store.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return store.UpdateResult{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.records[id]
	if !ok {
		return store.UpdateResult{}, nil
	}
	if cur.Equal(record) {
		return store.UpdateResult{MatchedCount: 1}, nil
	}
	record.ID = id
	g.records[id] = record
	return store.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (g *Gateway) DeleteByID(ctx context.Context, id string) (store.DeleteResult, error) {
	return g.DeleteMany(ctx, []string{id})
}

func (g *Gateway) DeleteMany(ctx context.Context, ids []string) (store.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return store.DeleteResult{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := g.records[id]; !ok {
			continue
		}
		delete(g.records, id)
		deleted++
	}
	if deleted == 0 {
		return store.DeleteResult{}, nil
	}

	kept := g.order[:0]
	for _, id := range g.order {
		if _, ok := g.records[id]; ok {
			kept = append(kept, id)
		}
	}
	g.order = kept
	return store.DeleteResult{DeletedCount: deleted}, nil
}

func (g *Gateway) Ping(ctx context.Context) error { return ctx.Err() }

func (g *Gateway) Close() error { return nil }
