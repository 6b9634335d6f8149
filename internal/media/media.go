package media

import "time"

// MediaAsset is a single uploaded source file owned by a post. It is
// created when an upload is confirmed and never mutated once a rendition
// pipeline has started for it.
type MediaAsset struct {
	ID            string      `bson:"_id" json:"id"`
	PostID        string      `bson:"post_id" json:"post_id"`
	Kind          AssetKind   `bson:"kind" json:"kind"`
	StorageBucket string      `bson:"storage_bucket" json:"storage_bucket"`
	StorageKey    string      `bson:"storage_key" json:"storage_key"`
	MimeType      string      `bson:"mime_type" json:"mime_type"`
	Bytes         int64       `bson:"bytes" json:"bytes"`
	DurationSec   *float64    `bson:"duration_sec,omitempty" json:"duration_sec,omitempty"`
	Width         *int        `bson:"width,omitempty" json:"width,omitempty"`
	Height        *int        `bson:"height,omitempty" json:"height,omitempty"`
	HashSHA256    []byte      `bson:"hash_sha256,omitempty" json:"-"`
	Status        AssetStatus `bson:"status" json:"status"`
	CreatedAt     time.Time   `bson:"created_at" json:"created_at"`
}

// MediaRendition is a derived, servable artifact produced from an asset.
// A row only exists once its bytes are in the store.
type MediaRendition struct {
	ID          string        `bson:"_id" json:"id"`
	AssetID     string        `bson:"asset_id" json:"asset_id"`
	Kind        RenditionKind `bson:"kind" json:"kind"`
	StorageKey  string        `bson:"storage_key" json:"storage_key"`
	MimeType    string        `bson:"mime_type" json:"mime_type"`
	Bytes       int64         `bson:"bytes" json:"bytes"`
	Width       *int          `bson:"width,omitempty" json:"width,omitempty"`
	Height      *int          `bson:"height,omitempty" json:"height,omitempty"`
	DurationSec *float64      `bson:"duration_sec,omitempty" json:"duration_sec,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
}

// MediaRenditionJob is one submission to the external transcoding
// backend. JobID stays nil until the backend acknowledges the job.
type MediaRenditionJob struct {
	ID           string     `bson:"_id" json:"id"`
	AssetID      string     `bson:"asset_id" json:"asset_id"`
	Kind         JobKind    `bson:"kind" json:"kind"`
	InputKey     string     `bson:"input_key" json:"input_key"`
	OutputKey    string     `bson:"output_key,omitempty" json:"output_key,omitempty"`
	OutputPrefix string     `bson:"output_prefix,omitempty" json:"output_prefix,omitempty"`
	Backend      JobBackend `bson:"backend" json:"backend"`
	Status       JobStatus  `bson:"status" json:"status"`
	JobID        *string    `bson:"job_id,omitempty" json:"job_id,omitempty"`
	Error        string     `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
}

// Post is the slice of the CRUD layer's post this subsystem reads and,
// through the publication gate, writes status to.
type Post struct {
	ID        string     `bson:"_id" json:"id"`
	OwnerID   string     `bson:"owner_id" json:"owner_id"`
	PostType  PostType   `bson:"post_type" json:"post_type"`
	Status    PostStatus `bson:"status" json:"status"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}
