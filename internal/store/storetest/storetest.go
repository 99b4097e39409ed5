// Package storetest holds the behavioural suite every store.Gateway backend
// runs in its own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/store"
)

// Factory returns an empty gateway. Cleanup is registered on t.
type Factory func(t *testing.T) store.Gateway

// MissingID is a syntactically valid id that no backend will have issued.
// Backends whose ids are not UUIDs pass their own through RunOptions.
const MissingID = "00000000-0000-4000-8000-000000000000"

type RunOptions struct {
	MissingID string
}

var (
	alice = domain.Record{Name: "Alice", Position: "Engineer", Level: domain.LevelJunior}
	bob   = domain.Record{Name: "Bob", Position: "Developer", Level: domain.LevelSenior}
	carol = domain.Record{Name: "Carol", Position: "Engineering Intern", Level: domain.LevelIntern}
)

// Run exercises the full Gateway contract against fresh gateways from newGateway.
func Run(t *testing.T, newGateway Factory, opts RunOptions) {
	if opts.MissingID == "" {
		opts.MissingID = MissingID
	}

	t.Run("InsertManyPreservesOrder", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		res, err := g.InsertMany(ctx, []domain.Record{alice, bob, carol})
		require.NoError(t, err)
		require.Equal(t, 3, res.InsertedCount)
		require.Len(t, res.InsertedIDs, 3)

		all, err := g.FindAll(ctx, store.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i, want := range []domain.Record{alice, bob, carol} {
			require.Equal(t, res.InsertedIDs[i], all[i].ID)
			require.True(t, want.Equal(all[i]), "record %d: got %+v", i, all[i])
		}
	})

	t.Run("InsertManyEmpty", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		_, err := g.InsertMany(ctx, nil)
		require.ErrorIs(t, err, store.ErrEmptyBatch)

		all, err := g.FindAll(ctx, store.Filter{})
		require.NoError(t, err)
		require.Empty(t, all)
	})

	t.Run("InsertOneFindByID", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		id, err := g.InsertOne(ctx, bob)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := g.FindByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, id, got.ID)
		require.True(t, bob.Equal(got))
	})

	t.Run("FindByIDMissing", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		_, err := g.FindByID(ctx, opts.MissingID)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = g.FindByID(ctx, "not-an-id")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("FindAllFilter", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		_, err := g.InsertMany(ctx, []domain.Record{alice, bob, carol})
		require.NoError(t, err)

		byLevel, err := g.FindAll(ctx, store.Filter{Level: domain.LevelSenior})
		require.NoError(t, err)
		require.Len(t, byLevel, 1)
		require.Equal(t, "Bob", byLevel[0].Name)

		byQuery, err := g.FindAll(ctx, store.Filter{Query: "ENGINEER"})
		require.NoError(t, err)
		require.Len(t, byQuery, 2)
		require.Equal(t, "Alice", byQuery[0].Name)
		require.Equal(t, "Carol", byQuery[1].Name)

		both, err := g.FindAll(ctx, store.Filter{Level: domain.LevelIntern, Query: "carol"})
		require.NoError(t, err)
		require.Len(t, both, 1)
	})

	t.Run("UpdateByID", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		id, err := g.InsertOne(ctx, alice)
		require.NoError(t, err)

		promoted := alice
		promoted.Level = domain.LevelSenior
		res, err := g.UpdateByID(ctx, id, promoted)
		require.NoError(t, err)
		require.Equal(t, store.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, res)

		res, err = g.UpdateByID(ctx, id, promoted)
		require.NoError(t, err)
		require.Equal(t, store.UpdateResult{MatchedCount: 1, ModifiedCount: 0}, res)

		got, err := g.FindByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, domain.LevelSenior, got.Level)

		res, err = g.UpdateByID(ctx, opts.MissingID, promoted)
		require.NoError(t, err)
		require.Equal(t, store.UpdateResult{}, res)

		res, err = g.UpdateByID(ctx, "not-an-id", promoted)
		require.NoError(t, err)
		require.Equal(t, store.UpdateResult{}, res)
	})

	t.Run("DeleteByID", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		id, err := g.InsertOne(ctx, alice)
		require.NoError(t, err)

		res, err := g.DeleteByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(1), res.DeletedCount)

		_, err = g.FindByID(ctx, id)
		require.ErrorIs(t, err, store.ErrNotFound)

		res, err = g.DeleteByID(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(0), res.DeletedCount)
	})

	t.Run("DeleteMany", func(t *testing.T) {
		g := newGateway(t)
		ctx := context.Background()

		ins, err := g.InsertMany(ctx, []domain.Record{alice, bob, carol})
		require.NoError(t, err)

		res, err := g.DeleteMany(ctx, []string{ins.InsertedIDs[0], ins.InsertedIDs[2], opts.MissingID, "bogus"})
		require.NoError(t, err)
		require.Equal(t, int64(2), res.DeletedCount)

		all, err := g.FindAll(ctx, store.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.Equal(t, ins.InsertedIDs[1], all[0].ID)

		res, err = g.DeleteMany(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, int64(0), res.DeletedCount)
	})

	t.Run("Ping", func(t *testing.T) {
		g := newGateway(t)
		require.NoError(t, g.Ping(context.Background()))
	})
}
