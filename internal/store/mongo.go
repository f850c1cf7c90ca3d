package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/solpump/custodian/internal/model"
)

const walletsCollection = "wallets"

// Ensure MongoStore implements WalletStore
var _ WalletStore = (*MongoStore)(nil)

// MongoStore is the Mongo-backed wallet store. Each user is a single document,
// so Mongo's per-document atomicity gives the per-user write atomicity the
// custody service relies on.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates the store and ensures the unique userId index that
// makes duplicate creation fail instead of silently overwriting custody data.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string) (*MongoStore, error) {
	coll := client.Database(database).Collection(walletsCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure userId index: %w", err)
	}

	return &MongoStore{coll: coll}, nil
}

// FindByUser returns the record for userID or ErrNotFound.
func (s *MongoStore) FindByUser(ctx context.Context, userID string) (*model.WalletRecord, error) {
	var record model.WalletRecord
	err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find wallet record: %w", err)
	}
	return &record, nil
}

// Create inserts a new record. A concurrent or repeated create for the same
// user hits the unique index and surfaces as ErrDuplicateUser.
func (s *MongoStore) Create(ctx context.Context, record *model.WalletRecord) error {
	_, err := s.coll.InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return fmt.Errorf("failed to create wallet record: %w", err)
	}
	return nil
}

// DeleteByUser removes the whole record and reports whether one existed.
func (s *MongoStore) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID})
	if err != nil {
		return false, fmt.Errorf("failed to delete wallet record: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// SetActiveIndex updates the active wallet pointer. The filter requires the
// target entry to exist, so bounds checking and the update are one atomic step.
func (s *MongoStore) SetActiveIndex(ctx context.Context, userID string, index int) error {
	if index < 0 {
		return ErrIndexOutOfRange
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{
			"userId": userID,
			fmt.Sprintf("wallets.%d", index): bson.M{"$exists": true},
		},
		bson.M{"$set": bson.M{"activeWalletIndex": index}},
	)
	if err != nil {
		return fmt.Errorf("failed to set active index: %w", err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing record from a bad index.
		if _, findErr := s.FindByUser(ctx, userID); findErr != nil {
			return findErr
		}
		return ErrIndexOutOfRange
	}
	return nil
}

// AppendWallet pushes an entry onto an existing record's wallet list.
func (s *MongoStore) AppendWallet(ctx context.Context, userID string, entry model.WalletEntry) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$push": bson.M{"wallets": entry}},
	)
	if err != nil {
		return fmt.Errorf("failed to append wallet: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBalance opportunistically refreshes a stored balance string. Balances
// in the store are advisory; spend paths query the ledger directly.
func (s *MongoStore) UpdateBalance(ctx context.Context, userID string, index int, balance string) error {
	if index < 0 {
		return ErrIndexOutOfRange
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{
			"userId": userID,
			fmt.Sprintf("wallets.%d", index): bson.M{"$exists": true},
		},
		bson.M{"$set": bson.M{fmt.Sprintf("wallets.%d.balance", index): balance}},
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, findErr := s.FindByUser(ctx, userID); findErr != nil {
			return findErr
		}
		return ErrIndexOutOfRange
	}
	return nil
}

// All returns every wallet record; used to rebuild the cache at startup.
func (s *MongoStore) All(ctx context.Context) ([]model.WalletRecord, error) {
	cursor, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []model.WalletRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode wallet records: %w", err)
	}
	return records, nil
}
