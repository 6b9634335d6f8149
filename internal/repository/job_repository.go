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

type JobRepo struct {
	col *mongo.Collection
}

func NewJobRepo(col *mongo.Collection) *JobRepo {
	return &JobRepo{col: col}
}

func (r *JobRepo) Insert(ctx context.Context, j *media.MediaRenditionJob) error {
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, j)
	return err
}

func (r *JobRepo) GetByID(ctx context.Context, id string) (*media.MediaRenditionJob, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByExternalID resolves a provider notification back to the local row.
func (r *JobRepo) GetByExternalID(ctx context.Context, externalID string) (*media.MediaRenditionJob, error) {
	return r.findOne(ctx, bson.M{"job_id": externalID})
}

// FindActiveByAssetAndKind returns the newest non-FAILED job of the
// given kind for the asset, or nil. Used for duplicate suppression: a
// COMPLETE job is still a duplicate, only FAILED may be retried.
func (r *JobRepo) FindActiveByAssetAndKind(ctx context.Context, assetID string, kind media.JobKind) (*media.MediaRenditionJob, error) {
	j, err := r.findOne(ctx, bson.M{
		"asset_id": assetID,
		"kind":     kind,
		"status":   bson.M{"$ne": media.JobStatusFailed},
	})
	if errors.Is(err, utils.ErrFileNotFound) {
		return nil, nil
	}
	return j, err
}

func (r *JobRepo) ListByAssetIDs(ctx context.Context, assetIDs []string) ([]media.MediaRenditionJob, error) {
	cur, err := r.col.Find(ctx, bson.M{"asset_id": bson.M{"$in": assetIDs}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var jobs []media.MediaRenditionJob
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListStalePending supports the reconciliation sweep: PENDING rows older
// than the cutoff had their submission outcome lost to a crash.
func (r *JobRepo) ListStalePending(ctx context.Context, olderThan time.Time) ([]media.MediaRenditionJob, error) {
	cur, err := r.col.Find(ctx, bson.M{
		"status":     media.JobStatusPending,
		"updated_at": bson.M{"$lt": olderThan},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var jobs []media.MediaRenditionJob
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Transition moves the job to `next` only when its current status is a
// legal source. Returns false on a no-op: the row was already past that
// point (duplicate/out-of-order delivery) or terminal. The conditional
// filter makes the state machine monotonic without a transaction.
func (r *JobRepo) Transition(ctx context.Context, id string, next media.JobStatus, externalID *string, jobErr string) (bool, error) {
	sources := media.TransitionSources(next)
	set := bson.M{"status": next, "updated_at": time.Now().UTC()}
	if externalID != nil {
		set["job_id"] = *externalID
	}
	if jobErr != "" {
		set["error"] = jobErr
	}
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": sources}},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *JobRepo) findOne(ctx context.Context, filter bson.M) (*media.MediaRenditionJob, error) {
	var j media.MediaRenditionJob
	err := r.col.FindOne(ctx, filter).Decode(&j)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}
