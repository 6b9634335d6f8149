package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/media-pipeline/internal/media"
)

type RenditionRepo struct {
	col *mongo.Collection
}

func NewRenditionRepo(col *mongo.Collection) *RenditionRepo {
	return &RenditionRepo{col: col}
}

// Insert is an idempotent upsert on (asset_id, kind, storage_key):
// replaying a completion notification must not duplicate rows.
func (r *RenditionRepo) Insert(ctx context.Context, m *media.MediaRendition) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.UpdateOne(ctx,
		bson.M{"asset_id": m.AssetID, "kind": m.Kind, "storage_key": m.StorageKey},
		bson.M{"$setOnInsert": m},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *RenditionRepo) ListByAssetID(ctx context.Context, assetID string) ([]media.MediaRendition, error) {
	cur, err := r.col.Find(ctx, bson.M{"asset_id": assetID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var renditions []media.MediaRendition
	if err := cur.All(ctx, &renditions); err != nil {
		return nil, err
	}
	return renditions, nil
}
