package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client the S3Store uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Options configures the client Open builds for s3:// locations.
type S3Options struct {
	// Region defaults to $AWS_REGION, then us-east-1.
	Region string

	// Endpoint overrides the S3 endpoint, e.g. for MinIO.
	Endpoint string

	// PathStyle addresses buckets as a path instead of a host name.
	PathStyle bool
}

// NewS3Client creates an S3 client. Credentials come from AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.
func NewS3Client(opts S3Options) *s3.Client {
	region := opts.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	o := s3.Options{
		Region:       region,
		UsePathStyle: opts.PathStyle,
		Credentials:  aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
	}
	return s3.New(o)
}

func envCredentials(ctx context.Context) (aws.Credentials, error) {
	id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.Credentials{}, errors.New("archive: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}, nil
}

// S3Store stores records as JSON objects in an S3 bucket.
//
// Example usage:
//
//	store := archive.NewS3Store(archive.NewS3Client(archive.S3Options{}), "my-bucket", "runs/")
//	key, err := store.Put(ctx, archive.FromResult(res, nil))
type S3Store struct {
	client S3API
	bucket string
	prefix string

	// pageSize limits keys per list request. Zero leaves it to S3.
	pageSize int32
}

// NewS3Store creates a store for bucket. Keys are stored below prefix.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads rec to <prefix><scenario>/<id>.json.
func (s *S3Store) Put(ctx context.Context, rec Record) (string, error) {
	key, err := cleanKey(rec.Key())
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"scenario": rec.Scenario,
			"run-id":   rec.ID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	return key, nil
}

// Get downloads the record stored under key.
func (s *S3Store) Get(ctx context.Context, key string) (Record, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Record{}, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("archive: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	var rec Record
	if err := json.NewDecoder(out.Body).Decode(&rec); err != nil {
		return Record{}, fmt.Errorf("archive: decode %s: %w", key, err)
	}
	return rec, nil
}

// List pages through the keys below the prefix.
func (s *S3Store) List(ctx context.Context, name string) ([]string, error) {
	prefix := s.prefix
	if name != "" {
		clean, err := cleanKey(name)
		if err != nil {
			return nil, err
		}
		prefix += clean + "/"
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}, func(o *s3.ListObjectsV2PaginatorOptions) {
		o.Limit = s.pageSize
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("archive: s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if strings.HasSuffix(key, ".json") {
				keys = append(keys, key)
			}
		}
	}

	sort.Strings(keys)
	return keys, nil
}
