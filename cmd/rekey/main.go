// rekey re-encrypts every stored wallet envelope under a new server key.
// Run offline with the service stopped; both keys come from the environment.
// Usage: OLD_ENCRYPTION_KEY=... NEW_ENCRYPTION_KEY=... go run ./cmd/rekey
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/solpump/custodian/internal/crypto"
	"github.com/solpump/custodian/internal/model"
)

func main() {
	_ = godotenv.Load()

	oldKey, err := crypto.ParseKey(os.Getenv("OLD_ENCRYPTION_KEY"))
	if err != nil {
		fatal("invalid OLD_ENCRYPTION_KEY: %v", err)
	}
	newKey, err := crypto.ParseKey(os.Getenv("NEW_ENCRYPTION_KEY"))
	if err != nil {
		fatal("invalid NEW_ENCRYPTION_KEY: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		fatal("MONGO_URI is required")
	}
	database := os.Getenv("MONGO_DATABASE")
	if database == "" {
		database = "xrpump"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		fatal("mongo connect: %v", err)
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	coll := mongoClient.Database(database).Collection("wallets")
	cursor, err := coll.Find(ctx, bson.M{})
	if err != nil {
		fatal("list wallet records: %v", err)
	}
	defer cursor.Close(ctx)

	rotated, failed := 0, 0
	for cursor.Next(ctx) {
		var record model.WalletRecord
		if err := cursor.Decode(&record); err != nil {
			fatal("decode wallet record: %v", err)
		}

		wallets, err := rotateRecord(record, oldKey, newKey)
		if err != nil {
			// A record the old key cannot open is left untouched rather than
			// clobbered; report it and move on.
			fmt.Fprintf(os.Stderr, "user %s: %v\n", record.UserID, err)
			failed++
			continue
		}

		_, err = coll.UpdateOne(ctx,
			bson.M{"userId": record.UserID},
			bson.M{"$set": bson.M{"wallets": wallets}},
		)
		if err != nil {
			fatal("user %s: update: %v", record.UserID, err)
		}
		rotated++
	}
	if err := cursor.Err(); err != nil {
		fatal("cursor: %v", err)
	}

	fmt.Printf("rotated %d records, %d failed\n", rotated, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func rotateRecord(record model.WalletRecord, oldKey, newKey []byte) ([]model.WalletEntry, error) {
	wallets := make([]model.WalletEntry, len(record.Wallets))
	for i, entry := range record.Wallets {
		seed, err := crypto.Decrypt(oldKey, entry.EncryptedSeed)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: decrypt seed: %w", i, err)
		}
		privateKey, err := crypto.Decrypt(oldKey, entry.EncryptedPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: decrypt private key: %w", i, err)
		}

		entry.EncryptedSeed, err = crypto.Encrypt(newKey, seed)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: encrypt seed: %w", i, err)
		}
		entry.EncryptedPrivateKey, err = crypto.Encrypt(newKey, privateKey)
		if err != nil {
			return nil, fmt.Errorf("wallet %d: encrypt private key: %w", i, err)
		}
		wallets[i] = entry
	}
	return wallets, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
