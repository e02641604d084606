package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"docschema/internal/config"
	"docschema/internal/port"
)

// partSize is the multipart chunk size used for large source documents.
const partSize = 8 << 20

type archiveClient struct {
	uploader *manager.Uploader
}

// NewArchive creates an S3-backed SourceArchive used to keep a copy of every
// processed source document. An Endpoint switches to path-style addressing
// for S3-compatible stores such as MinIO.
func NewArchive(ctx context.Context, cfg *config.S3Config) (port.SourceArchive, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3.NewArchive: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &archiveClient{
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = partSize
		}),
	}, nil
}

// Put streams obj to the bucket. Small documents go up in a single request
// with a known length; larger ones use multipart upload.
func (c *archiveClient) Put(ctx context.Context, obj port.ArchiveObject) (*port.ArchivedObject, error) {
	put := &s3.PutObjectInput{
		Bucket:      aws.String(obj.Bucket),
		Key:         aws.String(obj.Key),
		Body:        obj.Body,
		ContentType: aws.String(obj.ContentType),
		Metadata:    obj.Metadata,
	}
	if obj.Size > 0 && obj.Size < partSize {
		put.ContentLength = aws.Int64(obj.Size)
	}

	result, err := c.uploader.Upload(ctx, put)
	if err != nil {
		return nil, fmt.Errorf("s3.Put: %s/%s: %w", obj.Bucket, obj.Key, err)
	}

	return &port.ArchivedObject{
		Location: result.Location,
		ETag:     aws.ToString(result.ETag),
	}, nil
}
