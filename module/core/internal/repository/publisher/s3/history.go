package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nandanugg/proximity/module/core/domain"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher"
)

var _ publisher.HistoryTransport = (*HistoryPublisher)(nil)

// HistoryPublisher archives each batch as its own object under prefix. If
// endpoint is non-empty, path-style addressing is enabled (for MinIO and similar).
type HistoryPublisher struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewHistoryPublisher(ctx context.Context, bucket, prefix, region, endpoint string) (*HistoryPublisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &HistoryPublisher{
		client: s3.NewFromConfig(cfg, s3opts...),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func ObjectKey(prefix string, batch *domain.HistoryBatch) string {
	return path.Join(prefix, fmt.Sprintf("%d.json", batch.PublishedAt.UnixMilli()))
}

func (p *HistoryPublisher) PublishHistory(ctx context.Context, batch *domain.HistoryBatch) error {
	body, err := publisher.EncodeHistory(batch)
	if err != nil {
		return err
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(ObjectKey(p.prefix, batch)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(publisher.ContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}
