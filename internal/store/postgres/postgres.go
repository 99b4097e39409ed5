// Package postgres is the PostgreSQL store.Gateway. Bulk inserts use the COPY
// protocol inside a single transaction so a batch lands completely or not at
// all.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

var copyColumns = []string{"id", "name", "position", "level"}

// Options configures the connection pool.
type Options struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type Gateway struct {
	pool *pgxpool.Pool
}

var (
	_ store.Gateway  = (*Gateway)(nil)
	_ store.Migrator = (*Gateway)(nil)
)

// Open creates the pool and verifies connectivity.
func Open(ctx context.Context, opts Options) (*Gateway, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Gateway{pool: pool}, nil
}

// Migrate applies the embedded schema migrations through a database/sql
// handle borrowed from the pool.
func (g *Gateway) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(g.pool)
	defer db.Close()

	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

func (g *Gateway) InsertMany(ctx context.Context, records []domain.Record) (store.InsertManyResult, error) {
	if len(records) == 0 {
		return store.InsertManyResult{}, store.ErrEmptyBatch
	}

	ids := make([]string, len(records))
	rows := make([][]any, len(records))
	for i, r := range records {
		id := uuid.New()
		ids[i] = id.String()
		rows[i] = []any{pgtype.UUID{Bytes: id, Valid: true}, r.Name, r.Position, string(r.Level)}
	}

	err := pgx.BeginFunc(ctx, g.pool, func(tx pgx.Tx) error {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"records"}, copyColumns, pgx.CopyFromRows(rows))
		if err != nil {
			return err
		}
		if int(n) != len(rows) {
			return fmt.Errorf("copied %d of %d rows", n, len(rows))
		}
		return nil
	})
	if err != nil {
		return store.InsertManyResult{}, fmt.Errorf("copy records: %w", err)
	}

	return store.InsertManyResult{InsertedCount: len(ids), InsertedIDs: ids}, nil
}

func (g *Gateway) InsertOne(ctx context.Context, record domain.Record) (string, error) {
	id := uuid.New()
	_, err := g.pool.Exec(ctx,
		`INSERT INTO records (id, name, position, level) VALUES ($1, $2, $3, $4)`,
		pgtype.UUID{Bytes: id, Valid: true}, record.Name, record.Position, string(record.Level))
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return id.String(), nil
}

func (g *Gateway) FindAll(ctx context.Context, filter store.Filter) ([]domain.Record, error) {
	var (
		where []string
		args  []any
	)
	if filter.Level != "" {
		args = append(args, string(filter.Level))
		where = append(where, fmt.Sprintf("level = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR position ILIKE $%d)", n, n))
	}

	query := `SELECT id::text, name, position, level FROM records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}
	if out == nil {
		out = []domain.Record{}
	}
	return out, nil
}

func (g *Gateway) FindByID(ctx context.Context, id string) (domain.Record, error) {
	uid, ok := parseID(id)
	if !ok {
		return domain.Record{}, store.ErrNotFound
	}

	rows, err := g.pool.Query(ctx,
		`SELECT id::text, name, position, level FROM records WHERE id = $1`, uid)
	if err != nil {
		return domain.Record{}, fmt.Errorf("select record: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("scan record: %w", err)
	}
	return rec, nil
}

func (g *Gateway) UpdateByID(ctx context.Context, id string, record domain.Record) (store.UpdateResult, error) {
	uid, ok := parseID(id)
	if !ok {
		return store.UpdateResult{}, nil
	}

	var res store.UpdateResult
	err := pgx.BeginFunc(ctx, g.pool, func(tx pgx.Tx) error {
		var cur domain.Record
		err := tx.QueryRow(ctx,
			`SELECT name, position, level FROM records WHERE id = $1 FOR UPDATE`, uid).
			Scan(&cur.Name, &cur.Position, &cur.Level)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		res.MatchedCount = 1
		if cur.Equal(record) {
			return nil
		}

		tag, err := tx.Exec(ctx,
			`UPDATE records SET name = $1, position = $2, level = $3 WHERE id = $4`,
			record.Name, record.Position, string(record.Level), uid)
		if err != nil {
			return err
		}
		res.ModifiedCount = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("update record: %w", err)
	}
	return res, nil
}

func (g *Gateway) DeleteByID(ctx context.Context, id string) (store.DeleteResult, error) {
	return g.DeleteMany(ctx, []string{id})
}

func (g *Gateway) DeleteMany(ctx context.Context, ids []string) (store.DeleteResult, error) {
	uids := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		if uid, ok := parseID(id); ok {
			uids = append(uids, uid)
		}
	}
	if len(uids) == 0 {
		return store.DeleteResult{}, nil
	}

	tag, err := g.pool.Exec(ctx, `DELETE FROM records WHERE id = ANY($1)`, uids)
	if err != nil {
		return store.DeleteResult{}, fmt.Errorf("delete records: %w", err)
	}
	return store.DeleteResult{DeletedCount: tag.RowsAffected()}, nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.pool.Ping(ctx)
}

func (g *Gateway) Close() error {
	g.pool.Close()
	return nil
}

func scanRecord(row pgx.CollectableRow) (domain.Record, error) {
	var r domain.Record
	err := row.Scan(&r.ID, &r.Name, &r.Position, &r.Level)
	return r, err
}

func parseID(id string) (pgtype.UUID, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, false
	}
	return pgtype.UUID{Bytes: u, Valid: true}, true
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
