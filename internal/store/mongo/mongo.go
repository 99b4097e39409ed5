// Package mongo is the MongoDB store.Gateway. Records live in a single
// collection and are addressed by ObjectID hex strings.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/store"
)

// Collection is the collection name used for records.
const Collection = "records"

type Options struct {
	URI      string
	Database string
}

type Gateway struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var (
	_ store.Gateway  = (*Gateway)(nil)
	_ store.Migrator = (*Gateway)(nil)
)

type document struct {
	ID       primitive.ObjectID `bson:"_id"`
	Name     string             `bson:"name"`
	Position string             `bson:"position"`
	Level    string             `bson:"level"`
}

func newDocument(r domain.Record) document {
	return document{
		ID:       primitive.NewObjectID(),
		Name:     r.Name,
		Position: r.Position,
		Level:    string(r.Level),
	}
}

func (d document) record() domain.Record {
	return domain.Record{ID: d.ID.Hex(), Name: d.Name, Position: d.Position, Level: domain.Level(d.Level)}
}

// Open connects and verifies the primary is reachable.
func Open(ctx context.Context, opts Options) (*Gateway, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Gateway{
		client: client,
		coll:   client.Database(opts.Database).Collection(Collection),
	}, nil
}

// Migrate ensures the secondary indexes exist.
func (g *Gateway) Migrate(ctx context.Context) error {
	_, err := g.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "level", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create level index: %w", err)
	}
	return nil
}

func (g *Gateway) InsertMany(ctx context.Context, records []domain.Record) (store.InsertManyResult, error) {
	if len(records) == 0 {
		return store.InsertManyResult{}, store.ErrEmptyBatch
	}

	docs := make([]any, len(records))
	ids := make([]string, len(records))
	for i, r := range records {
		d := newDocument(r)
		docs[i] = d
		ids[i] = d.ID.Hex()
	}

	res, err := g.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return store.InsertManyResult{}, fmt.Errorf("insert records: %w", err)
	}

	return store.InsertManyResult{InsertedCount: len(res.InsertedIDs), InsertedIDs: ids}, nil
}

func (g *Gateway) InsertOne(ctx context.Context, record domain.Record) (string, error) {
	d := newDocument(record)
	if _, err := g.coll.InsertOne(ctx, d); err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return d.ID.Hex(), nil
}

func (g *Gateway) FindAll(ctx context.Context, filter store.Filter) ([]domain.Record, error) {
	q := bson.M{}
	if filter.Level != "" {
		q["level"] = string(filter.Level)
	}
	if filter.Query != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"position": pattern},
		}
	}

	cur, err := g.coll.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer cur.Close(ctx)

	out := []domain.Record{}
	for cur.Next(ctx) {
		var d document
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, d.record())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (g *Gateway) FindByID(ctx context.Context, id string) (domain.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.Record{}, store.ErrNotFound
	}

	var d document
	err = g.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Record{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("find record: %w", err)
	}
	return d.record(), nil
}

func (g *Gateway) UpdateByID(ctx context.Context, id string, record domain.Record) (store.UpdateResult, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.UpdateResult{}, nil
	}

	res, err := g.coll.UpdateByID(ctx, oid, bson.M{"$set": bson.M{
		"name":     record.Name,
		"position": record.Position,
		"level":    string(record.Level),
	}})
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("update record: %w", err)
	}
	return store.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (g *Gateway) DeleteByID(ctx context.Context, id string) (store.DeleteResult, error) {
	return g.DeleteMany(ctx, []string{id})
}

func (g *Gateway) DeleteMany(ctx context.Context, ids []string) (store.DeleteResult, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return store.DeleteResult{}, nil
	}

	res, err := g.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return store.DeleteResult{}, fmt.Errorf("delete records: %w", err)
	}
	return store.DeleteResult{DeletedCount: res.DeletedCount}, nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx, readpref.Primary())
}

func (g *Gateway) Close() error {
	return g.client.Disconnect(context.Background())
}
