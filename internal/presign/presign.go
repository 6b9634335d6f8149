// Package presign issues time-limited upload and download URLs against
// the object store. Private resource classes (ingest, media, kyc) are
// signed with SSE-KMS headers the caller must echo; the public class is
// CDN-served and carries a long-lived cache-control header instead.
package presign

import (
	"context"
	"fmt"
	"time"

	"github.com/fathima-sithara/media-pipeline/internal/config"
	"github.com/fathima-sithara/media-pipeline/internal/storage"
	utils "github.com/fathima-sithara/media-pipeline/internal/utis"
)

// Resource selects the bucket and encryption policy for a key.
type Resource string

const (
	ResourceIngest Resource = "ingest"
	ResourceMedia  Resource = "media"
	ResourceKYC    Resource = "kyc"
	ResourcePublic Resource = "public"
)

// PublicCacheControl is mandated on every public object so the CDN can
// cache renditions for a year.
const PublicCacheControl = "public, max-age=31536000, immutable"

// Upload is the contract returned to a caller holding an upload slot:
// PUT the bytes to UploadURL sending exactly RequiredHeaders.
type Upload struct {
	Key             string            `json:"key"`
	UploadURL       string            `json:"upload_url"`
	ExpiresIn       int               `json:"expires_in"`
	RequiredHeaders map[string]string `json:"required_headers"`
}

// Download is a signed GET.
type Download struct {
	DownloadURL string `json:"download_url"`
	ExpiresIn   int    `json:"expires_in"`
}

// MultipartUpload is the contract for a large ingest upload: the caller
// requests a signed URL per part, PUTs the bytes, and reports the etags
// back through the complete call.
type MultipartUpload struct {
	Key      string `json:"key"`
	UploadID string `json:"upload_id"`
}

// Signer is the slice of the object store the gateway uses.
type Signer interface {
	PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration, opt storage.PutOptions) (string, error)
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration, opt storage.GetOptions) (string, error)
	Head(ctx context.Context, bucket, key string) (bool, error)
	CreateMultipart(ctx context.Context, bucket, key, contentType string, opt storage.PutOptions) (string, error)
	PresignUploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, ttl time.Duration) (string, error)
	CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []storage.CompletedPart) error
}

type Gateway struct {
	signer Signer
	aws    config.AWSConf
	putTTL time.Duration
	getTTL time.Duration
}

func NewGateway(signer Signer, aws config.AWSConf, putTTL, getTTL time.Duration) *Gateway {
	return &Gateway{signer: signer, aws: aws, putTTL: putTTL, getTTL: getTTL}
}

// PresignPut signs an upload slot. Unknown resource classes are a
// configuration error and fail fast.
func (g *Gateway) PresignPut(ctx context.Context, res Resource, key, contentType string) (*Upload, error) {
	bucket, kmsKey, err := g.bucketAndKMS(res)
	if err != nil {
		return nil, err
	}

	opt := storage.PutOptions{}
	required := map[string]string{"Content-Type": contentType}
	if res == ResourcePublic {
		opt.CacheControl = PublicCacheControl
		required["Cache-Control"] = PublicCacheControl
	} else {
		opt.SSEKMSKeyID = kmsKey
		required["x-amz-server-side-encryption"] = "aws:kms"
		required["x-amz-server-side-encryption-aws-kms-key-id"] = kmsKey
	}

	url, err := g.signer.PresignPut(ctx, bucket, key, contentType, g.putTTL, opt)
	if err != nil {
		return nil, fmt.Errorf("%w: presign put: %v", utils.ErrStorageFailure, err)
	}
	return &Upload{
		Key:             key,
		UploadURL:       url,
		ExpiresIn:       int(g.putTTL.Seconds()),
		RequiredHeaders: required,
	}, nil
}

func (g *Gateway) PresignGet(ctx context.Context, res Resource, key string, opt storage.GetOptions) (*Download, error) {
	bucket, _, err := g.bucketAndKMS(res)
	if err != nil {
		return nil, err
	}
	url, err := g.signer.PresignGet(ctx, bucket, key, g.getTTL, opt)
	if err != nil {
		return nil, fmt.Errorf("%w: presign get: %v", utils.ErrStorageFailure, err)
	}
	return &Download{DownloadURL: url, ExpiresIn: int(g.getTTL.Seconds())}, nil
}

// Exists verifies a client-side upload actually landed before the key is
// trusted anywhere else.
func (g *Gateway) Exists(ctx context.Context, res Resource, key string) (bool, error) {
	bucket, _, err := g.bucketAndKMS(res)
	if err != nil {
		return false, err
	}
	ok, err := g.signer.Head(ctx, bucket, key)
	if err != nil {
		return false, fmt.Errorf("%w: head: %v", utils.ErrStorageFailure, err)
	}
	return ok, nil
}

// MultipartCreate opens a multipart upload with the resource class's
// encryption (or public cache) policy. Unlike single PUTs the headers
// are committed server-side at create time, so the per-part URLs carry
// no required headers.
func (g *Gateway) MultipartCreate(ctx context.Context, res Resource, key, contentType string) (*MultipartUpload, error) {
	bucket, kmsKey, err := g.bucketAndKMS(res)
	if err != nil {
		return nil, err
	}
	opt := storage.PutOptions{}
	if res == ResourcePublic {
		opt.CacheControl = PublicCacheControl
	} else {
		opt.SSEKMSKeyID = kmsKey
	}
	uploadID, err := g.signer.CreateMultipart(ctx, bucket, key, contentType, opt)
	if err != nil {
		return nil, fmt.Errorf("%w: multipart create: %v", utils.ErrStorageFailure, err)
	}
	return &MultipartUpload{Key: key, UploadID: uploadID}, nil
}

// MultipartSignPart signs the PUT for one part of an open upload.
func (g *Gateway) MultipartSignPart(ctx context.Context, res Resource, key, uploadID string, partNumber int32) (*Upload, error) {
	bucket, _, err := g.bucketAndKMS(res)
	if err != nil {
		return nil, err
	}
	url, err := g.signer.PresignUploadPart(ctx, bucket, key, uploadID, partNumber, g.putTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: sign part: %v", utils.ErrStorageFailure, err)
	}
	return &Upload{Key: key, UploadURL: url, ExpiresIn: int(g.putTTL.Seconds())}, nil
}

// MultipartComplete assembles the reported parts into the final object.
func (g *Gateway) MultipartComplete(ctx context.Context, res Resource, key, uploadID string, parts []storage.CompletedPart) error {
	bucket, _, err := g.bucketAndKMS(res)
	if err != nil {
		return err
	}
	if err := g.signer.CompleteMultipart(ctx, bucket, key, uploadID, parts); err != nil {
		return fmt.Errorf("%w: multipart complete: %v", utils.ErrStorageFailure, err)
	}
	return nil
}

// Bucket exposes the bucket behind a resource class so asset rows can
// record where their bytes live.
func (g *Gateway) Bucket(res Resource) (string, error) {
	bucket, _, err := g.bucketAndKMS(res)
	return bucket, err
}

func (g *Gateway) bucketAndKMS(res Resource) (string, string, error) {
	switch res {
	case ResourceIngest:
		return g.aws.IngestBucket, g.aws.KMSAliasIngest, nil
	case ResourceMedia:
		return g.aws.MediaBucket, g.aws.KMSAliasMedia, nil
	case ResourceKYC:
		return g.aws.KYCBucket, g.aws.KMSAliasKYC, nil
	case ResourcePublic:
		return g.aws.PublicBucket, "", nil
	}
	return "", "", fmt.Errorf("%w: %q", utils.ErrUnknownResource, res)
}
