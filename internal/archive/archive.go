// Package archive stores raw webhook payloads in S3 for audit and replay.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// S3Archiver writes one object per verified webhook delivery under
// webhooks/<provider>/<yyyy/mm/dd>/<eventID>-<uuid>.json. The uuid suffix
// keeps duplicate deliveries of the same event distinct in the archive.
type S3Archiver struct {
	client *s3.Client
	bucket string
}

func NewS3Archiver(client *s3.Client, bucket string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket}
}

func (a *S3Archiver) ArchivePayload(ctx context.Context, provider, eventID string, body []byte) error {
	if eventID == "" {
		eventID = "unidentified"
	}
	key := fmt.Sprintf("webhooks/%s/%s/%s-%s.json",
		provider,
		time.Now().UTC().Format("2006/01/02"),
		eventID,
		uuid.NewString())

	contentType := "application/json"
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("archive webhook payload to s3://%s/%s: %w", a.bucket, key, err)
	}

	log.Debug().Str("key", key).Int("bytes", len(body)).Msg("Webhook payload archived")
	return nil
}
