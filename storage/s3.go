package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArtifactArchiver copies consumed crawl result artifacts to S3-compatible
// storage so the data dir can be pruned without losing raw worker output.
type ArtifactArchiver struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewArtifactArchiver(ctx context.Context, bucket, prefix string) (*ArtifactArchiver, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &ArtifactArchiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// Archive uploads one artifact file under <prefix>/<runID>/<basename>.
func (a *ArtifactArchiver) Archive(ctx context.Context, runID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	key := fmt.Sprintf("%s/%s/%s", a.prefix, runID, filepath.Base(path))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}
