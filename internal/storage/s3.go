package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var ErrNotFound = errors.New("object not found")

// PutOptions carries the per-object headers the pipeline cares about.
// An empty SSEKMSKeyID means no server-side-encryption header is set and
// the bucket default applies.
type PutOptions struct {
	CacheControl string
	SSEKMSKeyID  string
}

// GetOptions shapes a presigned download: content disposition and an
// optional content-type override on the response.
type GetOptions struct {
	Inline              bool
	Filename            string
	ContentTypeOverride string
}

// CompletedPart identifies one uploaded part when finishing a multipart
// upload.
type CompletedPart struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}

// S3Store wraps the S3 client, the transfer-manager uploader and the
// presign client behind the handful of operations the pipeline needs.
type S3Store struct {
	client    *s3.Client
	uploader  *manager.Uploader
	presigner *s3.PresignClient
}

func NewS3Store(ctx context.Context, region, accessKey, secretKey string) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
	}

	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, bucket, key, contentType string, data []byte, opt PutOptions) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	applyPutOptions(input, opt)
	_, err := s.uploader.Upload(ctx, input)
	return err
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Head reports whether the object exists. Only the 404 family maps to
// false; everything else is an infrastructure error.
func (s *S3Store) Head(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PresignPut signs a PUT with the same headers the caller will be
// required to echo; a mismatch makes the store reject the upload.
func (s *S3Store) PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration, opt PutOptions) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	applyPutOptions(input, opt)
	req, err := s.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3Store) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration, opt GetOptions) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if opt.ContentTypeOverride != "" {
		input.ResponseContentType = aws.String(opt.ContentTypeOverride)
	}
	if opt.Filename != "" {
		disp := "attachment"
		if opt.Inline {
			disp = "inline"
		}
		input.ResponseContentDisposition = aws.String(fmt.Sprintf("%s; filename=%q", disp, opt.Filename))
	}
	req, err := s.presigner.PresignGetObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// CreateMultipart opens a multipart upload. Encryption and cache
// headers are fixed here; the per-part PUTs inherit them.
func (s *S3Store) CreateMultipart(ctx context.Context, bucket, key, contentType string, opt PutOptions) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	if opt.CacheControl != "" {
		input.CacheControl = aws.String(opt.CacheControl)
	}
	if opt.SSEKMSKeyID != "" {
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(opt.SSEKMSKeyID)
	}
	out, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.UploadId), nil
}

func (s *S3Store) PresignUploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3Store) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) error {
	completed := make([]types.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		}
	}
	_, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	return err
}

func applyPutOptions(input *s3.PutObjectInput, opt PutOptions) {
	if opt.CacheControl != "" {
		input.CacheControl = aws.String(opt.CacheControl)
	}
	if opt.SSEKMSKeyID != "" {
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(opt.SSEKMSKeyID)
	}
}
