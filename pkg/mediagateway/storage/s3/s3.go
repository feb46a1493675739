// Package s3 implements the mediagateway.MediaStore interface on an
// S3-compatible bucket, for deployments that self-host media (MinIO or AWS)
// instead of using the managed provider. Folders are key prefixes anchored
// by a zero-byte marker object; renaming copies every key under the prefix.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
)

// markerSuffix anchors a folder prefix so empty folders survive listing.
const markerSuffix = "/.keep"

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
}

// Store is an S3-compatible implementation of the mediagateway.MediaStore interface
type Store struct {
	client *s3.Client
	bucket string
}

// New creates a new S3-compatible media store
func New(config Config) (*Store, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	return &Store{
		client: s3.NewFromConfig(awsCfg, s3Options...),
		bucket: config.Bucket,
	}, nil
}

// ListFolders returns the top-level folder prefixes in the bucket.
func (s *Store) ListFolders(ctx context.Context) ([]mediagateway.Folder, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Delimiter: aws.String("/"),
	})

	var folders []mediagateway.Folder
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s.wrap("list_folders", "", translate(err))
		}
		for _, prefix := range page.CommonPrefixes {
			path := strings.TrimSuffix(aws.ToString(prefix.Prefix), "/")
			folders = append(folders, mediagateway.Folder{
				Name: baseName(path),
				Path: path,
			})
		}
	}
	return folders, nil
}

// CreateFolder writes the folder's marker object.
func (s *Store) CreateFolder(ctx context.Context, path string) (*mediagateway.Folder, error) {
	marker := path + markerSuffix

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(marker),
	})
	if err == nil {
		return nil, s.wrap("create_folder", path,
			fmt.Errorf("%w: folder already exists", mediagateway.ErrInvalidPath))
	}
	if !isNotFound(err) {
		return nil, s.wrap("create_folder", path, translate(err))
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(marker),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return nil, s.wrap("create_folder", path, translate(err))
	}

	return &mediagateway.Folder{Name: baseName(path), Path: path}, nil
}

// RenameFolder copies every key under the source prefix and deletes the
// originals.
func (s *Store) RenameFolder(ctx context.Context, fromPath, toPath string) (*mediagateway.Folder, error) {
	keys, err := s.listKeys(ctx, fromPath+"/")
	if err != nil {
		return nil, s.wrap("rename_folder", fromPath, translate(err))
	}
	if len(keys) == 0 {
		return nil, s.wrap("rename_folder", fromPath,
			fmt.Errorf("%w: folder does not exist", mediagateway.ErrNotFound))
	}

	fromPrefix := fromPath + "/"
	for _, key := range keys {
		destKey := toPath + "/" + strings.TrimPrefix(key, fromPrefix)
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(s.bucket),
			CopySource: aws.String(s.bucket + "/" + key),
			Key:        aws.String(destKey),
		})
		if err != nil {
			return nil, s.wrap("rename_folder", fromPath, translate(err))
		}
	}
	for _, key := range keys {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, s.wrap("rename_folder", fromPath, translate(err))
		}
	}

	return &mediagateway.Folder{Name: baseName(toPath), Path: toPath}, nil
}

// DeleteFolder removes the folder's marker. A folder holding anything beyond
// its marker is refused.
func (s *Store) DeleteFolder(ctx context.Context, path string) error {
	keys, err := s.listKeys(ctx, path+"/")
	if err != nil {
		return s.wrap("delete_folder", path, translate(err))
	}
	if len(keys) == 0 {
		return s.wrap("delete_folder", path,
			fmt.Errorf("%w: folder does not exist", mediagateway.ErrNotFound))
	}

	marker := path + markerSuffix
	for _, key := range keys {
		if key != marker {
			return s.wrap("delete_folder", path, mediagateway.ErrFolderNotEmpty)
		}
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(marker),
	})
	if err != nil {
		return s.wrap("delete_folder", path, translate(err))
	}
	return nil
}

// DeleteAsset removes a single object.
func (s *Store) DeleteAsset(ctx context.Context, assetID string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(assetID),
	})
	if err != nil {
		if isNotFound(err) {
			return s.wrap("delete_asset", assetID,
				fmt.Errorf("%w: asset does not exist", mediagateway.ErrNotFound))
		}
		return s.wrap("delete_asset", assetID, translate(err))
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(assetID),
	})
	if err != nil {
		return s.wrap("delete_asset", assetID, translate(err))
	}
	return nil
}

// listKeys collects every key under prefix.
func (s *Store) listKeys(ctx context.Context, prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// isNotFound reports whether an S3 error means the object is absent. Handles
// both the typed errors and the bare codes MinIO returns.
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

// translate maps S3 failures into the gateway taxonomy.
func translate(err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %v", mediagateway.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", mediagateway.ErrUpstream, err)
}

func (s *Store) wrap(op, path string, err error) error {
	return &mediagateway.StoreError{Backend: "s3", Op: op, Path: path, Err: err}
}

func baseName(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
