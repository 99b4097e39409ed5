// Package store defines the persistence gateway for employee records and the
// result types shared by its backends.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/JonMunkholm/records/internal/domain"
)

//go:generate mockgen -package mockstore -source=store.go -destination=mock/mockstore.go

var (
	// ErrNotFound is returned when no record has the requested id. Malformed
	// ids are reported the same way.
	ErrNotFound = errors.New("record not found")
	// ErrEmptyBatch is returned by InsertMany when there is nothing to insert.
	ErrEmptyBatch = errors.New("no records to insert")
)

// Filter narrows FindAll. Zero value matches everything.
type Filter struct {
	Level domain.Level
	// Query is a case-insensitive substring matched against name and position.
	Query string
}

// Matches reports whether r passes the filter.
func (f Filter) Matches(r domain.Record) bool {
	if f.Level != "" && r.Level != f.Level {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	return strings.Contains(strings.ToLower(r.Name), q) ||
		strings.Contains(strings.ToLower(r.Position), q)
}

type InsertManyResult struct {
	InsertedCount int
	InsertedIDs   []string
}

type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

type DeleteResult struct {
	DeletedCount int64
}

// Gateway persists records. Each call is a single attempt.
type Gateway interface {
	// InsertMany stores records in order and returns their new ids. An empty
	// slice yields ErrEmptyBatch without touching storage.
	InsertMany(ctx context.Context, records []domain.Record) (InsertManyResult, error)
	InsertOne(ctx context.Context, record domain.Record) (string, error)
	FindAll(ctx context.Context, filter Filter) ([]domain.Record, error)
	FindByID(ctx context.Context, id string) (domain.Record, error)
	UpdateByID(ctx context.Context, id string, record domain.Record) (UpdateResult, error)
	DeleteByID(ctx context.Context, id string) (DeleteResult, error)
	DeleteMany(ctx context.Context, ids []string) (DeleteResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// Migrator is implemented by gateways that bootstrap their own schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}
