package s3

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shyim/backup-pruner/internal/storage"
)

func init() {
	storage.Register(&S3StorageType{})
}

// S3StorageType is the factory for S3 storage
type S3StorageType struct{}

// Name returns the storage type identifier
func (t *S3StorageType) Name() string {
	return "s3"
}

// Create instantiates a new S3 storage from options
func (t *S3StorageType) Create(poolName string, options map[string]string) (storage.Storage, error) {
	bucket, ok := options["bucket"]
	if !ok || bucket == "" {
		return nil, fmt.Errorf("S3 storage requires 'bucket' option")
	}

	region := options["region"]
	if region == "" {
		region = "us-east-1"
	}

	endpoint := options["endpoint"]
	accessKey := options["access-key"]
	secretKey := options["secret-key"]
	pathStyle := options["path-style"] == "true"

	prefix := strings.Trim(options["prefix"], "/")

	ctx := context.Background()

	// Build AWS config
	var cfgOpts []func(*config.LoadOptions) error
	cfgOpts = append(cfgOpts, config.WithRegion(region))

	// Use static credentials if provided
	if accessKey != "" && secretKey != "" {
		cfgOpts = append(cfgOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Build S3 client options
	var s3Opts []func(*s3.Options)

	if endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	if pathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Storage{
		client: s3.NewFromConfig(cfg, s3Opts...),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// S3Storage implements Storage for S3-compatible backends
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

// List returns all backups matching the prefix
func (s *S3Storage) List(ctx context.Context, prefix string) ([]storage.BackupFile, error) {
	fullPrefix := s.fullKey(strings.Trim(prefix, "/"))
	if fullPrefix != "" && !strings.HasSuffix(fullPrefix, "/") {
		fullPrefix += "/"
	}

	var files []storage.BackupFile
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue // directory marker
			}

			files = append(files, storage.BackupFile{
				Key:          s.relKey(key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].LastModified.After(files[j].LastModified)
	})

	return files, nil
}

// Delete removes a backup from S3
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	fullKey := s.fullKey(key)

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// fullKey returns the full S3 key including any prefix
func (s *S3Storage) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	if key == "" {
		return s.prefix
	}
	return s.prefix + "/" + key
}

// relKey strips the pool prefix from an object key
func (s *S3Storage) relKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.prefix+"/")
}
