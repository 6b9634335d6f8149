package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fathima-sithara/media-pipeline/internal/media"
	utils "github.com/fathima-sithara/media-pipeline/internal/utis"
)

type AssetRepo struct {
	col *mongo.Collection
}

func NewAssetRepo(col *mongo.Collection) *AssetRepo {
	return &AssetRepo{col: col}
}

func (r *AssetRepo) Insert(ctx context.Context, a *media.MediaAsset) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, a)
	return err
}

func (r *AssetRepo) GetByID(ctx context.Context, id string) (*media.MediaAsset, error) {
	var a media.MediaAsset
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssetRepo) ListByPostID(ctx context.Context, postID string) ([]media.MediaAsset, error) {
	cur, err := r.col.Find(ctx, bson.M{"post_id": postID, "status": media.AssetStatusActive})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var assets []media.MediaAsset
	if err := cur.All(ctx, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Supersede marks earlier active assets of the same kind inactive when a
// replacement upload is confirmed.
func (r *AssetRepo) Supersede(ctx context.Context, postID string, kind media.AssetKind, exceptID string) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"post_id": postID, "kind": kind, "status": media.AssetStatusActive, "_id": bson.M{"$ne": exceptID}},
		bson.M{"$set": bson.M{"status": media.AssetStatusSuperseded}},
	)
	return err
}
