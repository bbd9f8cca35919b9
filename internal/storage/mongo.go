package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoCollection = "kv"
	mongoNamespace  = "storefront"
)

type kvDocument struct {
	ID        string            `bson:"_id"`
	Entries   map[string][]byte `bson:"entries"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// MongoStore keeps every entry as a field of one namespace document, so a
// multi-entry Put is a single atomic document update.
type MongoStore struct {
	collection *mongo.Collection
}

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(20)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(mongoCollection)}
}

func (m *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validMongoKey(key); err != nil {
		return nil, err
	}

	var doc kvDocument
	opts := options.FindOne().SetProjection(bson.M{"entries." + key: 1})
	err := m.collection.FindOne(ctx, bson.M{"_id": mongoNamespace}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	value, ok := doc.Entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return value, nil
}

func (m *MongoStore) Put(ctx context.Context, entries ...Entry) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for _, e := range entries {
		if err := validMongoKey(e.Key); err != nil {
			return err
		}
		set["entries."+e.Key] = e.Value
	}

	opts := options.Update().SetUpsert(true)
	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": mongoNamespace}, bson.M{"$set": set}, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert entries: %w", err)
	}
	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.collection.Database().Client().Disconnect(ctx)
}

func validMongoKey(key string) error {
	if key == "" || strings.ContainsAny(key, ".$") {
		return fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return nil
}
