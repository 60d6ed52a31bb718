package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
)

type WalletRepo struct {
	col *mongo.Collection
}

func NewWalletRepo(col *mongo.Collection) *WalletRepo {
	return &WalletRepo{col: col}
}

// Create persists a wallet. The unique user_id index turns a duplicate
// insert into a conflict, which is how at-most-one-wallet-per-user holds
// under concurrent requests.
func (r *WalletRepo) Create(ctx context.Context, w *entity.Wallet) (string, error) {
	res, err := r.col.InsertOne(ctx, w)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", wrapErrors.WrapWithCode(wrapErrors.CodeConflict, "wallet already exists", err)
		}
		return "", wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "insert wallet", err)
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	}
	return "", nil
}

func (r *WalletRepo) GetByUserID(ctx context.Context, userID string) (*entity.Wallet, error) {
	var w entity.Wallet
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, wrapErrors.New(wrapErrors.CodeNotFound, "get wallet", "wallet not found")
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "get wallet", err)
	}
	return &w, nil
}
