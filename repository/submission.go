package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/corzoapp/transfer_service/entity"
	wrapErrors "github.com/corzoapp/transfer_service/errors"
)

// SubmissionRepo journals relayer submissions so the reconciler can pick
// them up independently of the request that created them.
type SubmissionRepo struct {
	col *mongo.Collection
}

func NewSubmissionRepo(col *mongo.Collection) *SubmissionRepo {
	return &SubmissionRepo{col: col}
}

func (r *SubmissionRepo) Insert(ctx context.Context, rec *entity.SubmissionRecord) error {
	_, err := r.col.InsertOne(ctx, rec)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "insert submission", err)
	}
	return nil
}

func (r *SubmissionRepo) GetByAuthorizationID(ctx context.Context, authorizationID string) (*entity.SubmissionRecord, error) {
	var rec entity.SubmissionRecord
	err := r.col.FindOne(ctx, bson.M{"authorization_id": authorizationID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, wrapErrors.New(wrapErrors.CodeNotFound, "get submission", "submission not found")
	}
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "get submission", err)
	}
	return &rec, nil
}

// Save replaces the record, creating it when absent. Reconciliation is
// idempotent, so last-write-wins is enough here.
func (r *SubmissionRepo) Save(ctx context.Context, rec *entity.SubmissionRecord) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, opts)
	if err != nil {
		return wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "save submission", err)
	}
	return nil
}

// ListOpen returns records that still need reconciliation: not rejected
// and without an on-chain receipt yet.
func (r *SubmissionRepo) ListOpen(ctx context.Context, limit int64) ([]*entity.SubmissionRecord, error) {
	filter := bson.M{
		"relayer_status": bson.M{"$ne": entity.StatusRejected},
		"receipt":        nil,
	}
	opts := options.Find().SetLimit(limit).SetSort(bson.M{"created_at": 1})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "list open submissions", err)
	}

	var out []*entity.SubmissionRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, wrapErrors.WrapWithCode(wrapErrors.CodeInternal, "decode open submissions", err)
	}
	return out, nil
}
