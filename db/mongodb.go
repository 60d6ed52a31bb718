package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoRepo struct {
	Client         *mongo.Client
	DB             *mongo.Database
	WalletColl     *mongo.Collection
	UserColl       *mongo.Collection
	SubmissionColl *mongo.Collection
}

func NewMongoRepo(ctx context.Context, uri, dbName string) (*MongoRepo, error) {
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	// ping
	ctx2, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx2, nil); err != nil {
		return nil, err
	}
	db := client.Database(dbName)
	return &MongoRepo{
		Client:         client,
		DB:             db,
		WalletColl:     db.Collection("wallets"),
		UserColl:       db.Collection("users"),
		SubmissionColl: db.Collection("submissions"),
	}, nil
}

// EnsureIndexes creates the indexes the repositories rely on. The unique
// wallet index is what enforces at-most-one wallet per user under
// concurrent creation.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.WalletColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"user_id": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.WalletColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"address": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.SubmissionColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"authorization_id": 1},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoRepo) Close(ctx context.Context) error {
	return r.Client.Disconnect(ctx)
}
