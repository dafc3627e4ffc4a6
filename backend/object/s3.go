// Package object implements the object-store data backend (S3-compatible:
// AWS S3, MinIO, Hetzner, LakeFS), grounded on the teacher's storage/s3aws.go
// client-construction idiom and the original s3.py backend's write-policy
// semantics (overwrite refusal on CREATE/INDEX, read-only archives).
package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/evalgo/ralph-go/backend"
	"github.com/evalgo/ralph-go/eveconfig"
	"github.com/evalgo/ralph-go/evelog"
	"github.com/evalgo/ralph-go/ralpherr"
)

const backendFamily = "DATA"
const backendName = "S3"

// Settings mirrors S3DataBackendSettings: endpoint/region/credentials and
// the default bucket archives are read from and written to.
type Settings struct {
	Endpoint         string
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	DefaultBucket    string
	LocaleEncoding   string
	DefaultChunkSize int
}

func FromEnv() Settings {
	ec := eveconfig.NewEnvConfig(backendFamily, backendName)
	return Settings{
		Endpoint:         ec.GetString("ENDPOINT_URL", ""),
		Region:           ec.GetString("DEFAULT_REGION", "eu-west-1"),
		AccessKeyID:      ec.GetString("ACCESS_KEY_ID", ""),
		SecretAccessKey:  ec.GetString("SECRET_ACCESS_KEY", ""),
		DefaultBucket:    ec.GetString("DEFAULT_BUCKET_NAME", ""),
		LocaleEncoding:   ec.GetString("LOCALE_ENCODING", "utf8"),
		DefaultChunkSize: ec.GetInt("DEFAULT_CHUNK_SIZE", 4096),
	}
}

// Backend is the S3-compatible object-store data backend. The client is
// safe for concurrent use across callers (spec §5).
type Backend struct {
	settings Settings
	client   *s3.Client
	uploader *manager.Uploader
}

func New(settings Settings) *Backend {
	return &Backend{settings: settings}
}

func (b *Backend) Name() string           { return "s3" }
func (b *Backend) Policy() backend.Policy { return backend.ObjectStorePolicy }

func (b *Backend) ensureClient(ctx context.Context) error {
	if b.client != nil {
		return nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(b.settings.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			b.settings.AccessKeyID, b.settings.SecretAccessKey, "")),
	)
	if err != nil {
		return err
	}
	b.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if b.settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(b.settings.Endpoint)
		}
		o.UsePathStyle = true
	})
	b.uploader = manager.NewUploader(b.client)
	return nil
}

// Status heads the default bucket; a forbidden response maps to Error, a
// connection failure to Away (spec §4.8).
func (b *Backend) Status() backend.Status {
	ctx := context.Background()
	if err := b.ensureClient(ctx); err != nil {
		evelog.WithBackend(b.Name()).WithError(err).Error("failed to build S3 client")
		return backend.Away
	}
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.settings.DefaultBucket)})
	if err != nil {
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			evelog.WithBackend(b.Name()).WithError(err).Error("bucket head failed")
			return backend.Error
		}
		evelog.WithBackend(b.Name()).WithError(err).Error("failed to reach S3 endpoint")
		return backend.Away
	}
	return backend.OK
}

// List returns object keys in bucket (or DefaultBucket). It does not
// consult the history journal.
func (b *Backend) List(ctx context.Context, bucket string) ([]string, error) {
	if err := b.ensureClient(ctx); err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, "failed to build S3 client", err)
	}
	if bucket == "" {
		bucket = b.settings.DefaultBucket
	}
	out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	if err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, "failed to list objects", err)
	}
	keys := make([]string, 0, len(out.Contents))
	for _, o := range out.Contents {
		keys = append(keys, aws.ToString(o.Key))
	}
	return keys, nil
}

// exists reports whether key is already present in bucket.
func (b *Backend) exists(ctx context.Context, bucket, key string) bool {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	return err == nil
}

// Write uploads a single archive to bucket/key. CREATE and INDEX refuse to
// overwrite an existing key; UPDATE permits it; APPEND and DELETE are
// rejected outright (spec §3 lifecycle, §4.3 operation policy). The whole
// archive counts as one written unit, matching the source's per-call
// return of 1 rather than a per-record count.
func (b *Backend) Write(ctx context.Context, bucket, key string, data []byte, op backend.OperationType) (int, error) {
	if !b.Policy().Accepts(op) {
		return 0, ralpherr.New(ralpherr.NotSupported, fmt.Sprintf("%s operation_type is not allowed for the object store backend", op))
	}
	if err := b.ensureClient(ctx); err != nil {
		return 0, ralpherr.Wrap(ralpherr.TransportFailure, "failed to build S3 client", err)
	}
	if bucket == "" {
		bucket = b.settings.DefaultBucket
	}

	if (op == backend.OperationCreate || op == backend.OperationIndex) && b.exists(ctx, bucket, key) {
		return 0, ralpherr.New(ralpherr.NotSupported,
			fmt.Sprintf("%s already exists and overwrite is not allowed for operation %s", key, op))
	}

	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return 0, ralpherr.Wrap(ralpherr.TransportFailure, "failed to upload archive", err)
	}
	return 1, nil
}

// Read streams a single archive's content.
func (b *Backend) Read(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := b.ensureClient(ctx); err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, "failed to build S3 client", err)
	}
	if bucket == "" {
		bucket = b.settings.DefaultBucket
	}
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, ralpherr.Wrap(ralpherr.TransportFailure, fmt.Sprintf("failed to read archive %s", key), err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
