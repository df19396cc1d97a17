package s3

import (
	"context"
	stderrors "errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kbukum/demandflow/errors"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/storage"
)

func init() {
	storage.RegisterFactory(storage.ProviderS3, func(ctx context.Context, cfg storage.Config, log *logger.Logger) (storage.Storage, error) {
		s, err := NewStorage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Debug("s3 storage ready", logger.Fields("bucket", cfg.Bucket, "endpoint", cfg.Endpoint))
		return s, nil
	})
}

// Storage keeps objects in one S3 bucket. Any S3-compatible endpoint works;
// a custom endpoint switches to path-style addressing.
type Storage struct {
	client *awss3.Client
	bucket *string
}

// NewStorage builds a client from the default AWS credential chain, or from
// the static keys in cfg when both are set.
func NewStorage(ctx context.Context, cfg storage.Config) (*Storage, error) {
	load := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		load = append(load, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, load...)
	if err != nil {
		return nil, errors.ExternalServiceError("s3", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.Endpoint != "" || cfg.ForcePathStyle
	})
	return &Storage{client: client, bucket: aws.String(cfg.Bucket)}, nil
}

// fail classifies an SDK error for key.
func fail(err error, key string) error {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if stderrors.As(err, &nf) || stderrors.As(err, &nsk) {
		return errors.NotFound("object", key)
	}
	return errors.ExternalServiceError("s3", err).WithDetail("key", key)
}

func (s *Storage) Upload(ctx context.Context, path string, reader io.Reader) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{Bucket: s.bucket, Key: aws.String(path), Body: reader})
	if err != nil {
		return fail(err, path)
	}
	return nil
}

func (s *Storage) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{Bucket: s.bucket, Key: aws.String(path)})
	if err != nil {
		return nil, fail(err, path)
	}
	return out.Body, nil
}

func (s *Storage) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{Bucket: s.bucket, Key: aws.String(path)})
	if err == nil {
		return true, nil
	}
	if err = fail(err, path); errors.HasCode(err, errors.ErrCodeNotFound) {
		return false, nil
	}
	return false, err
}

// List pages through ListObjectsV2; S3 already returns keys in ascending
// order. Folder placeholder keys ending in "/" are skipped.
func (s *Storage) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	var files []storage.FileInfo
	pages := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: s.bucket,
		Prefix: aws.String(prefix),
	})
	for pages.HasMorePages() {
		out, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fail(err, prefix)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			files = append(files, storage.FileInfo{
				Path:         key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return files, nil
}

var _ storage.Storage = (*Storage)(nil)
