package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/five82/reformer/internal/remote"
)

const (
	recordCollectionName   = "sync_records"
	mutationCollectionName = "sync_mutations"
	mongoConnectTimeout    = 10 * time.Second
)

// recordDocument is the stored shape of a SyncRecord. The documents are
// kept as JSON text so they round-trip byte for byte.
type recordDocument struct {
	UserID      string    `bson:"_id"`
	ClassPlan   string    `bson:"class_plan,omitempty"`
	Preferences string    `bson:"preferences,omitempty"`
	SyncedAt    time.Time `bson:"synced_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type mutationDocument struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Type       string    `bson:"type"`
	Action     string    `bson:"action"`
	Data       string    `bson:"data,omitempty"`
	Timestamp  time.Time `bson:"timestamp"`
	ReceivedAt time.Time `bson:"received_at"`
}

func toRecordDocument(r remote.SyncRecord, now time.Time) recordDocument {
	return recordDocument{
		UserID:      r.UserID,
		ClassPlan:   rawString(r.ClassPlan),
		Preferences: rawString(r.Preferences),
		SyncedAt:    r.SyncedAt.UTC(),
		UpdatedAt:   now.UTC(),
	}
}

func (d recordDocument) record() *remote.SyncRecord {
	return &remote.SyncRecord{
		UserID:      d.UserID,
		ClassPlan:   rawOrNil(d.ClassPlan),
		Preferences: rawOrNil(d.Preferences),
		SyncedAt:    d.SyncedAt,
	}
}

// MongoStore keeps records in MongoDB, one document per user keyed by id.
type MongoStore struct {
	client    *mongo.Client
	records   *mongo.Collection
	mutations *mongo.Collection
}

// OpenMongo connects to uri, verifies the primary is reachable and ensures
// indexes on the mutation log.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		records:   db.Collection(recordCollectionName),
		mutations: db.Collection(mutationCollectionName),
	}
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "received_at", Value: 1}}},
	}
	if _, err := s.mutations.Indexes().CreateMany(connectCtx, indexes); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create mutation indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) Get(ctx context.Context, userID string) (*remote.SyncRecord, error) {
	var doc recordDocument
	err := s.records.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", userID, err)
	}
	return doc.record(), nil
}

func (s *MongoStore) Upsert(ctx context.Context, record remote.SyncRecord) error {
	doc := toRecordDocument(record, time.Now())
	_, err := s.records.ReplaceOne(ctx, bson.M{"_id": record.UserID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", record.UserID, err)
	}
	return nil
}

func (s *MongoStore) AppendMutation(ctx context.Context, userID string, m remote.Mutation) error {
	_, err := s.mutations.InsertOne(ctx, mutationDocument{
		ID:         m.ID,
		UserID:     userID,
		Type:       m.Type,
		Action:     m.Action,
		Data:       rawString(m.Data),
		Timestamp:  m.Timestamp.UTC(),
		ReceivedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("append mutation %s: %w", m.ID, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
