package services

import (
	"context"
	"errors"
	"time"

	"hive-engine-api/internal/config"
	"hive-engine-api/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrInvalidAPIKey  = errors.New("invalid API key")
	ErrInactiveAPIKey = errors.New("API key is inactive")
	ErrDatabaseError  = errors.New("database error")
)

// AuthService handles API key authentication using MongoDB
type AuthService struct {
	db         *mongo.Database
	collection *mongo.Collection
	config     *config.MongoDBConfig
}

// NewAuthService creates a new authentication service
func NewAuthService(cfg *config.MongoDBConfig) (*AuthService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	clientOptions.SetConnectTimeout(cfg.ConnectTimeout)
	clientOptions.SetServerSelectionTimeout(5 * time.Second)
	clientOptions.SetRetryWrites(true)
	clientOptions.SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(cfg.Database)
	collection := db.Collection(cfg.APIKeyCollection)

	// Unique index on the key field for fast lookups. Creation is
	// idempotent, so an already-existing index is not an error.
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = collection.Indexes().CreateOne(ctx, indexModel)

	return &AuthService{
		db:         db,
		collection: collection,
		config:     cfg,
	}, nil
}

// ValidateAPIKey validates an API key against the MongoDB database
func (a *AuthService) ValidateAPIKey(ctx context.Context, key string) (*models.APIKey, error) {
	if key == "" {
		return nil, ErrInvalidAPIKey
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var apiKey models.APIKey
	err := a.collection.FindOne(ctx, bson.M{"key": key}).Decode(&apiKey)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvalidAPIKey
		}
		return nil, ErrDatabaseError
	}

	if !apiKey.Active {
		return nil, ErrInactiveAPIKey
	}

	go a.updateLastUsed(apiKey.ID)

	return &apiKey, nil
}

// updateLastUsed updates the last_used timestamp for an API key
func (a *AuthService) updateLastUsed(id interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	a.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_used": now}})
}

// CheckHealth pings the key store
func (a *AuthService) CheckHealth(ctx context.Context) *HealthCheck {
	start := time.Now()

	healthCheck := &HealthCheck{
		Service:   "keystore_db",
		Timestamp: start,
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.db.Client().Ping(ctx, nil); err != nil {
		healthCheck.Status = HealthStatusUnhealthy
		healthCheck.Message = err.Error()
	} else {
		healthCheck.Status = HealthStatusHealthy
	}
	healthCheck.ResponseTime = time.Since(start)

	return healthCheck
}

// Close closes the MongoDB connection
func (a *AuthService) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return a.db.Client().Disconnect(ctx)
}
