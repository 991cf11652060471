package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConfig contains connection settings for the MongoDB player repository.
type MongoConfig struct {
	URI        string // e.g. mongodb://localhost:27017
	Database   string // e.g. wildlands
	Collection string // e.g. players
	MaxPool    uint64
}

// MongoPlayerRepo implements PlayerRepo on a MongoDB backend.
type MongoPlayerRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoPlayerRepo establishes a connection and returns the repository.
func NewMongoPlayerRepo(cfg MongoConfig) (*MongoPlayerRepo, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "wildlands"
	}
	if cfg.Collection == "" {
		cfg.Collection = "players"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPool > 0 {
		opts.SetMaxPoolSize(cfg.MaxPool)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	// ping
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	repo := &MongoPlayerRepo{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}

	// Ensure indexes
	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return repo, nil
}

func (m *MongoPlayerRepo) ensureIndexes(ctx context.Context) error {
	loginIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "login", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("login_unique"),
	}
	_, err := m.collection.Indexes().CreateOne(ctx, loginIdx)
	return err
}

func (m *MongoPlayerRepo) findOne(ctx context.Context, filter bson.M) (*PlayerRecord, error) {
	var rec PlayerRecord
	err := m.collection.FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Load implements PlayerRepo.
func (m *MongoPlayerRepo) Load(ctx context.Context, id string) (*PlayerRecord, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

// FindByLogin implements PlayerRepo.
func (m *MongoPlayerRepo) FindByLogin(ctx context.Context, login string) (*PlayerRecord, error) {
	return m.findOne(ctx, bson.M{"login": NormalizeLogin(login)})
}

// Create inserts a new document.
func (m *MongoPlayerRepo) Create(ctx context.Context, rec *PlayerRecord) error {
	doc := rec.Clone()
	doc.Login = NormalizeLogin(doc.Login)
	doc.UpdatedAt = time.Now()

	_, err := m.collection.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrUsernameTaken
	}
	return err
}

// Save upserts the game state; credentials are only written on insert.
func (m *MongoPlayerRepo) Save(ctx context.Context, rec *PlayerRecord) error {
	login := NormalizeLogin(rec.Login)
	if login == "" {
		login = rec.ID
	}
	update := bson.M{
		"$set": bson.M{
			"username":    rec.Username,
			"level":       rec.Level,
			"xp":          rec.XP,
			"x":           rec.X,
			"y":           rec.Y,
			"health":      rec.Health,
			"hunger":      rec.Hunger,
			"thirst":      rec.Thirst,
			"temperature": rec.Temperature,
			"inventory":   rec.Inventory,
			"stats":       rec.Stats,
			"spawned":     rec.Spawned,
			"updated_at":  time.Now(),
		},
		"$setOnInsert": bson.M{"login": login, "token": ""},
	}
	_, err := m.collection.UpdateByID(ctx, rec.ID, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo save %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateCredentials implements PlayerRepo.
func (m *MongoPlayerRepo) UpdateCredentials(ctx context.Context, id, token, passwordHash string) error {
	res, err := m.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"token": token, "password_hash": passwordHash, "updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close terminates the connection.
func (m *MongoPlayerRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
