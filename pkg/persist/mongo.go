package persist

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/modata-dev/modata/pkg/schema"
)

// MongoStore persists documents in a MongoDB collection, one record per
// diagram. The serialized document travels as JSON payload bytes so the wire
// form stays identical across backends; name and timestamp are lifted into
// indexed fields for listing.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// MongoConfig configures a MongoDB connection.
type MongoConfig struct {
	URI        string // e.g. "mongodb://localhost:27017"
	Database   string // defaults to "modata"
	Collection string // defaults to "diagrams"
}

// mongoRecord is a stored slot.
type mongoRecord struct {
	Name      string `bson:"name"`
	UpdatedAt string `bson:"updated_at"`
	Payload   []byte `bson:"payload"`
}

// mongoPointer is the singleton last-opened record.
type mongoPointer struct {
	Key  string `bson:"key"`
	Name string `bson:"name"`
}

const lastPointerKey = "lastDiagram"

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.Database == "" {
		cfg.Database = "modata"
	}
	if cfg.Collection == "" {
		cfg.Collection = "diagrams"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// List returns saved metadata, most recently updated first.
func (s *MongoStore) List(ctx context.Context) ([]Meta, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"name": bson.M{"$exists": true}, "key": bson.M{"$exists": false}},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var metas []Meta
	for cur.Next(ctx) {
		var rec mongoRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		metas = append(metas, Meta{Name: rec.Name, UpdatedAt: rec.UpdatedAt})
	}
	return metas, cur.Err()
}

// Save upserts the document's record and the last-opened pointer.
func (s *MongoStore) Save(ctx context.Context, d schema.Diagram) error {
	payload, err := schema.Marshal(d)
	if err != nil {
		return err
	}
	rec := mongoRecord{Name: d.Name, UpdatedAt: d.UpdatedAt, Payload: payload}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"name": d.Name, "key": bson.M{"$exists": false}},
		rec, options.Replace().SetUpsert(true))
	if err != nil {
		return err
	}
	return s.SetLastOpened(ctx, d.Name)
}

// Load returns the named document.
func (s *MongoStore) Load(ctx context.Context, name string) (schema.Diagram, error) {
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"name": name, "key": bson.M{"$exists": false}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return schema.Diagram{}, ErrNotFound
	}
	if err != nil {
		return schema.Diagram{}, err
	}
	return schema.Unmarshal(rec.Payload)
}

// Delete removes the named record and clears the pointer if it matches.
func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"name": name, "key": bson.M{"$exists": false}}); err != nil {
		return err
	}
	last, err := s.LastOpened(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if last == name {
		_, err = s.coll.DeleteOne(ctx, bson.M{"key": lastPointerKey})
	}
	return err
}

// SetLastOpened upserts the pointer record.
func (s *MongoStore) SetLastOpened(ctx context.Context, name string) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"key": lastPointerKey},
		mongoPointer{Key: lastPointerKey, Name: name}, options.Replace().SetUpsert(true))
	return err
}

// LastOpened returns the pointer record's name.
func (s *MongoStore) LastOpened(ctx context.Context) (string, error) {
	var ptr mongoPointer
	err := s.coll.FindOne(ctx, bson.M{"key": lastPointerKey}).Decode(&ptr)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && ptr.Name == "") {
		return "", ErrNotFound
	}
	return ptr.Name, err
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
