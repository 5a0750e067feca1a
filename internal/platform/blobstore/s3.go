package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// S3API is the subset of the S3 client the store uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// User metadata keys. S3 lower-cases them on the way back.
const (
	metaFileName = "filename"
	metaUserID   = "userid"
	metaCategory = "category"
	metaHash     = "sha256"
	metaCreated  = "created"
)

// NewS3Client builds an S3 client from the default AWS config chain. A
// non-empty endpoint switches to path-style addressing against it, for
// MinIO or LocalStack.
func NewS3Client(ctx context.Context, endpoint string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts), nil
}

// S3BlobStore keeps blobs as objects under blobs/<id> in one bucket.
// Metadata travels as object user metadata.
type S3BlobStore struct {
	client S3API
	bucket string
}

func NewS3BlobStore(client S3API, bucket string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket}
}

func objectKey(id string) string { return "blobs/" + id }

func (s *S3BlobStore) Upload(ctx context.Context, meta Metadata, content io.Reader) (*Metadata, error) {
	if meta.FileName == "" {
		return nil, ErrMissingFileName
	}
	data, err := readLimited(content)
	if err != nil {
		return nil, err
	}

	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.FileSize = HumanSize(meta.Size)
	meta.Hash = fmt.Sprintf("%x", sha256.Sum256(data))
	meta.CreatedAt = time.Now().UTC()

	userMeta := map[string]string{
		metaFileName: url.QueryEscape(meta.FileName),
		metaHash:     meta.Hash,
		metaCreated:  meta.CreatedAt.Format(time.RFC3339Nano),
	}
	if meta.UserID > 0 {
		userMeta[metaUserID] = strconv.FormatInt(meta.UserID, 10)
	}
	if meta.Category != "" {
		userMeta[metaCategory] = meta.Category
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey(meta.ID)),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(meta.ContentType),
		ContentLength: aws.Int64(meta.Size),
		Metadata:      userMeta,
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	return &meta, nil
}

func (s *S3BlobStore) Download(ctx context.Context, id string) (io.ReadCloser, *Metadata, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		return nil, nil, translateS3Error(err)
	}
	meta := metadataFromObject(id, out.Metadata, aws.ToString(out.ContentType), aws.ToInt64(out.ContentLength))
	return out.Body, meta, nil
}

// Delete checks existence first because S3 deletes are idempotent.
func (s *S3BlobStore) Delete(ctx context.Context, id string) error {
	if _, err := s.GetMetadata(ctx, id); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *S3BlobStore) GetMetadata(ctx context.Context, id string) (*Metadata, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		return nil, translateS3Error(err)
	}
	return metadataFromObject(id, out.Metadata, aws.ToString(out.ContentType), aws.ToInt64(out.ContentLength)), nil
}

func metadataFromObject(id string, m map[string]string, contentType string, size int64) *Metadata {
	meta := &Metadata{
		ID:          id,
		ContentType: contentType,
		Size:        size,
		FileSize:    HumanSize(size),
		Category:    m[metaCategory],
		Hash:        m[metaHash],
	}
	if name, err := url.QueryUnescape(m[metaFileName]); err == nil {
		meta.FileName = name
	}
	if uid, err := strconv.ParseInt(m[metaUserID], 10, 64); err == nil {
		meta.UserID = uid
	}
	if t, err := time.Parse(time.RFC3339Nano, m[metaCreated]); err == nil {
		meta.CreatedAt = t
	}
	return meta
}

func translateS3Error(err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return ErrBlobNotFound
	}
	return fmt.Errorf("s3: %w", err)
}
