package storage

import (
	"context"
	"fmt"

	"github.com/tg-promo/promobot/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// mongoBackend keeps the snapshot in three collections, mirroring the file
// layout. Documents are reinserted in collection order on every save and read
// back sorted by object id, which preserves insertion order.
type mongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

func openMongo(ctx context.Context, uri, database string) (Backend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return &mongoBackend{client: client, db: client.Database(database)}, nil
}

func (b *mongoBackend) Load(ctx context.Context) (*Snapshot, error) {
	snap := emptySnapshot()

	if err := b.loadCollection(ctx, "users", &snap.Users); err != nil {
		return nil, err
	}
	if err := b.loadCollection(ctx, "channels", &snap.Channels); err != nil {
		return nil, err
	}
	if err := b.loadCollection(ctx, "groups", &snap.Groups); err != nil {
		return nil, err
	}

	return snap, nil
}

func (b *mongoBackend) loadCollection(ctx context.Context, name string, out any) error {
	cur, err := b.db.Collection(name).Find(
		ctx,
		bson.D{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return fmt.Errorf("finding %s: %w", name, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func (b *mongoBackend) Save(ctx context.Context, snap *Snapshot) error {
	if err := b.saveCollection(ctx, "users", toDocs(snap.Users)); err != nil {
		return err
	}
	if err := b.saveCollection(ctx, "channels", toDocs(snap.Channels)); err != nil {
		return err
	}
	if err := b.saveCollection(ctx, "groups", toDocs(snap.Groups)); err != nil {
		return err
	}
	return nil
}

func (b *mongoBackend) saveCollection(ctx context.Context, name string, docs []any) error {
	coll := b.db.Collection(name)
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("clearing %s: %w", name, err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("inserting %s: %w", name, err)
	}
	return nil
}

func toDocs[T *models.User | *models.Entity](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func (b *mongoBackend) Close() error {
	return b.client.Disconnect(context.Background())
}
