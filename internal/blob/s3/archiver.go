package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lunabets/fairydust/internal/domain"
)

// Archiver implements domain.SettlementArchiver on an S3-compatible backend.
// Each resolved or annulled market produces one JSON report; the active
// store keeps no trace of settled markets, so these objects are the only
// market-level audit record.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewArchiver creates an Archiver writing under the given key prefix in the
// client's configured bucket.
func NewArchiver(c *Client, prefix string) *Archiver {
	return &Archiver{
		client: c.S3(),
		bucket: c.Bucket(),
		prefix: prefix,
	}
}

// ArchiveSettlement uploads the report as a single JSON object. Keys are
// partitioned by settlement date so reports stay listable per day.
func (a *Archiver) ArchiveSettlement(ctx context.Context, report domain.SettlementReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal settlement %d: %w", report.MarketID, err)
	}

	key := a.settlementKey(report)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put settlement %s: %w", key, err)
	}
	return nil
}

// settlementKey builds keys like
// settlements/2025/03/03/market-42-resolved.json.
func (a *Archiver) settlementKey(report domain.SettlementReport) string {
	return fmt.Sprintf("%s/%s/market-%d-%s.json",
		a.prefix,
		report.SettledAt.UTC().Format("2006/01/02"),
		report.MarketID,
		report.Kind,
	)
}

// Compile-time interface check.
var _ domain.SettlementArchiver = (*Archiver)(nil)
