package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Command-line utility for managing API keys in the key store. Keys are
// opaque random tokens; clients present them as Bearer tokens on /api
// routes.
func main() {
	var (
		initDB     = flag.Bool("init", false, "Create the key collection indexes")
		createName = flag.String("create", "", "Create a new API key with the given name")
		revokeKey  = flag.String("revoke", "", "Deactivate the given API key")
		listKeys   = flag.Bool("list", false, "List all API keys")
		seedData   = flag.Bool("seed", false, "Seed development API keys")
	)
	flag.Parse()

	if !*initDB && *createName == "" && *revokeKey == "" && !*listKeys && !*seedData {
		fmt.Println("API Key Management Utility")
		fmt.Println("Usage:")
		fmt.Println("  -init         Create the key collection indexes")
		fmt.Println("  -create NAME  Create a new API key with the given name")
		fmt.Println("  -revoke KEY   Deactivate the given API key")
		fmt.Println("  -list         List all API keys")
		fmt.Println("  -seed         Seed development API keys")
		fmt.Println()
		fmt.Println("Environment Variables:")
		fmt.Println("  MONGODB_URI                MongoDB connection string")
		fmt.Println("  MONGODB_DATABASE           Database name")
		fmt.Println("  MONGODB_APIKEY_COLLECTION  API keys collection name")
		os.Exit(1)
	}

	cfg := config.LoadConfig()

	store, err := newKeyStore(&cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to key store: %v", err)
	}
	defer store.Close()

	if *initDB {
		if err := store.EnsureIndexes(); err != nil {
			log.Fatalf("Index creation failed: %v", err)
		}
		log.Println("Key collection indexes created")
	}

	if *createName != "" {
		key, err := store.CreateKey(*createName)
		if err != nil {
			log.Fatalf("Key creation failed: %v", err)
		}
		log.Printf("Created API key for %q: %s", *createName, key)
	}

	if *revokeKey != "" {
		if err := store.RevokeKey(*revokeKey); err != nil {
			log.Fatalf("Key revocation failed: %v", err)
		}
		log.Printf("Revoked API key %s", *revokeKey)
	}

	if *seedData {
		if err := store.SeedDevelopmentKeys(); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	if *listKeys {
		if err := store.ListKeys(); err != nil {
			log.Fatalf("Listing keys failed: %v", err)
		}
	}
}

// keyStore wraps the MongoDB collection holding API keys
type keyStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func newKeyStore(cfg *config.MongoDBConfig) (*keyStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	clientOptions.SetConnectTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &keyStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.APIKeyCollection),
	}, nil
}

// EnsureIndexes creates the unique key index and the lookup index the
// auth path queries against
func (ks *keyStore) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "key", Value: 1},
				{Key: "active", Value: 1},
			},
		},
	}

	_, err := ks.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// CreateKey generates a random key, stores it under the given name, and
// returns the key string
func (ks *keyStore) CreateKey(name string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key, err := generateRandomAPIKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate key material: %w", err)
	}

	_, err = ks.collection.InsertOne(ctx, models.APIKey{
		Key:       key,
		Name:      name,
		Active:    true,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to store key: %w", err)
	}
	return key, nil
}

// RevokeKey marks a key inactive. Revoked keys stay in the collection
// for auditability.
func (ks *keyStore) RevokeKey(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := ks.collection.UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return fmt.Errorf("failed to update key: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("key not found")
	}
	return nil
}

// SeedDevelopmentKeys inserts a fixed set of development keys when the
// collection is empty
func (ks *keyStore) SeedDevelopmentKeys() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := ks.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count existing keys: %w", err)
	}
	if count > 0 {
		log.Printf("Found %d existing API keys, skipping seed", count)
		return nil
	}

	seedKeys := []models.APIKey{
		{Key: "dev-api-key-1", Name: "Development Key 1", Active: true, CreatedAt: time.Now()},
		{Key: "dev-api-key-2", Name: "Development Key 2", Active: true, CreatedAt: time.Now()},
		{Key: "dev-inactive-key", Name: "Inactive Development Key", Active: false, CreatedAt: time.Now()},
	}

	documents := make([]interface{}, len(seedKeys))
	for i, apiKey := range seedKeys {
		documents[i] = apiKey
	}

	result, err := ks.collection.InsertMany(ctx, documents)
	if err != nil {
		return fmt.Errorf("failed to insert seed keys: %w", err)
	}

	log.Printf("Seeded %d development API keys:", len(result.InsertedIDs))
	for _, apiKey := range seedKeys {
		status := "active"
		if !apiKey.Active {
			status = "inactive"
		}
		log.Printf("  - %s (%s) [%s]", apiKey.Key, apiKey.Name, status)
	}
	return nil
}

// ListKeys prints every stored key with its status
func (ks *keyStore) ListKeys() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cursor, err := ks.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return fmt.Errorf("failed to query keys: %w", err)
	}
	defer cursor.Close(ctx)

	var keys []models.APIKey
	if err := cursor.All(ctx, &keys); err != nil {
		return fmt.Errorf("failed to decode keys: %w", err)
	}

	if len(keys) == 0 {
		log.Println("No API keys stored")
		return nil
	}

	log.Printf("%d API keys:", len(keys))
	for _, apiKey := range keys {
		status := "active"
		if !apiKey.Active {
			status = "inactive"
		}
		lastUsed := "never"
		if apiKey.LastUsed != nil {
			lastUsed = apiKey.LastUsed.Format(time.RFC3339)
		}
		log.Printf("  - %s (%s) [%s] last used: %s", apiKey.Key, apiKey.Name, status, lastUsed)
	}
	return nil
}

// generateRandomAPIKey returns 32 bytes of hex-encoded random key material
func generateRandomAPIKey() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Close disconnects from MongoDB
func (ks *keyStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ks.client.Disconnect(ctx)
}
