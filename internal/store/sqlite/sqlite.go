// Package sqlite is a store.Gateway over an embedded SQLite database, built
// with goqu on top of the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/store"
)

//go:embed migrations/*.sql
var migrations embed.FS

const table = "records"

type Gateway struct {
	db   *sql.DB
	goqu *goqu.Database
}

var (
	_ store.Gateway  = (*Gateway)(nil)
	_ store.Migrator = (*Gateway)(nil)
)

type row struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Position string `db:"position"`
	Level    string `db:"level"`
}

func (r row) record() domain.Record {
	return domain.Record{ID: r.ID, Name: r.Name, Position: r.Position, Level: domain.Level(r.Level)}
}

// Open opens the database file at path. SQLite allows a single writer, so
// the pool is capped at one connection.
func Open(ctx context.Context, path string) (*Gateway, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Gateway{db: db, goqu: goqu.New("sqlite3", db)}, nil
}

// Migrate applies the embedded schema migrations.
func (g *Gateway) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, g.db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate sqlite: %w", err)
	}
	return nil
}

func (g *Gateway) InsertMany(ctx context.Context, records []domain.Record) (store.InsertManyResult, error) {
	if len(records) == 0 {
		return store.InsertManyResult{}, store.ErrEmptyBatch
	}

	ids := make([]string, len(records))
	rows := make([]any, len(records))
	for i, r := range records {
		ids[i] = uuid.NewString()
		rows[i] = goqu.Record{"id": ids[i], "name": r.Name, "position": r.Position, "level": string(r.Level)}
	}

	tx, err := g.goqu.BeginTx(ctx, nil)
	if err != nil {
		return store.InsertManyResult{}, fmt.Errorf("begin: %w", err)
	}
	err = tx.Wrap(func() error {
		_, err := tx.Insert(table).Rows(rows...).Executor().ExecContext(ctx)
		return err
	})
	if err != nil {
		return store.InsertManyResult{}, fmt.Errorf("insert records: %w", err)
	}

	return store.InsertManyResult{InsertedCount: len(ids), InsertedIDs: ids}, nil
}

func (g *Gateway) InsertOne(ctx context.Context, record domain.Record) (string, error) {
	id := uuid.NewString()
	_, err := g.goqu.Insert(table).
		Rows(goqu.Record{"id": id, "name": record.Name, "position": record.Position, "level": string(record.Level)}).
		Executor().ExecContext(ctx)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return id, nil
}

func (g *Gateway) FindAll(ctx context.Context, filter store.Filter) ([]domain.Record, error) {
	ds := g.goqu.From(table).
		Select("id", "name", "position", "level").
		Order(goqu.C("seq").Asc())

	if filter.Level != "" {
		ds = ds.Where(goqu.C("level").Eq(string(filter.Level)))
	}
	if filter.Query != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Query)) + "%"
		ds = ds.Where(goqu.Or(
			goqu.L(`lower(name) LIKE ? ESCAPE '\'`, pattern),
			goqu.L(`lower(position) LIKE ? ESCAPE '\'`, pattern),
		))
	}

	var rows []row
	if err := ds.ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}

	out := make([]domain.Record, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

func (g *Gateway) FindByID(ctx context.Context, id string) (domain.Record, error) {
	var r row
	found, err := g.goqu.From(table).
		Select("id", "name", "position", "level").
		Where(goqu.C("id").Eq(id)).
		ScanStructContext(ctx, &r)
	if err != nil {
		return domain.Record{}, fmt.Errorf("select record: %w", err)
	}
	if !found {
		return domain.Record{}, store.ErrNotFound
	}
	return r.record(), nil
}

func (g *Gateway) UpdateByID(ctx context.Context, id string, record domain.Record) (store.UpdateResult, error) {
	var res store.UpdateResult

	tx, err := g.goqu.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	err = tx.Wrap(func() error {
		var cur row
		found, err := tx.From(table).
			Select("id", "name", "position", "level").
			Where(goqu.C("id").Eq(id)).
			ScanStructContext(ctx, &cur)
		if err != nil || !found {
			return err
		}
		res.MatchedCount = 1
		if cur.record().Equal(record) {
			return nil
		}

		_, err = tx.Update(table).
			Set(goqu.Record{"name": record.Name, "position": record.Position, "level": string(record.Level)}).
			Where(goqu.C("id").Eq(id)).
			Executor().ExecContext(ctx)
		if err != nil {
			return err
		}
		res.ModifiedCount = 1
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
	if len(ids) == 0 {
		return store.DeleteResult{}, nil
	}

	result, err := g.goqu.Delete(table).
		Where(goqu.C("id").In(ids)).
		Executor().ExecContext(ctx)
	if err != nil {
		return store.DeleteResult{}, fmt.Errorf("delete records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return store.DeleteResult{}, fmt.Errorf("delete records: %w", err)
	}
	return store.DeleteResult{DeletedCount: n}, nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.db.PingContext(ctx)
}

func (g *Gateway) Close() error {
	return g.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
