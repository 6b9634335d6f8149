package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fathima-sithara/media-pipeline/internal/media"
	utils "github.com/fathima-sithara/media-pipeline/internal/utis"
)

// PostRepo is the subsystem's only write path into the post domain owned
// by the CRUD layer: the publication gate's status promotion.
type PostRepo struct {
	col *mongo.Collection
}

func NewPostRepo(col *mongo.Collection) *PostRepo {
	return &PostRepo{col: col}
}

func (r *PostRepo) GetByID(ctx context.Context, id string) (*media.Post, error) {
	var p media.Post
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Promote moves the post from `from` to `to` and reports whether this
// call did it. Concurrent gates race on the same filter; exactly one
// matches, the rest observe a no-op.
func (r *PostRepo) Promote(ctx context.Context, id string, from, to media.PostStatus) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
