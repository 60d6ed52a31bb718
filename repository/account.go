package repository

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
)

// AccountRepo reads the user directory (the auth service's users
// collection). All lookups are pure reads; this service never writes
// accounts.
type AccountRepo struct {
	col *mongo.Collection
}

func NewAccountRepo(col *mongo.Collection) *AccountRepo {
	return &AccountRepo{col: col}
}

// FindByEmail does an exact, case-sensitive match. Returns (nil, nil)
// when no account matches.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	var a entity.Account
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "find account by email", err)
	}
	return &a, nil
}

// FindByName does an exact match ignoring case, via an anchored
// case-insensitive regex with the name quoted.
func (r *AccountRepo) FindByName(ctx context.Context, name string) (*entity.Account, error) {
	pattern := "^" + regexp.QuoteMeta(name) + "$"
	var a entity.Account
	err := r.col.FindOne(ctx, bson.M{
		"name": primitive.Regex{Pattern: pattern, Options: "i"},
	}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "find account by name", err)
	}
	return &a, nil
}
