package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jeevijay-developers/riskmarshal-office/config"
)

// DocumentStore stages uploaded policy scans in object storage so the
// operator can re-open the document while reconciling fields. Staging is
// a convenience copy; the core API holds the authoritative document.
type DocumentStore struct {
	client *minio.Client
	bucket string
	config *config.MinioConfig
}

func NewDocumentStore(cfg *config.MinioConfig) (*DocumentStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &DocumentStore{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *DocumentStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// StagedDocument describes a staged scan
type StagedDocument struct {
	ObjectName string
	URL        string
	PageCount  int
}

// Stage uploads the document under agency/session/filename and returns a
// presigned review URL. The PDF page count is best effort: a scan that
// pdfcpu cannot parse still stages with PageCount 0.
func (s *DocumentStore) Stage(ctx context.Context, agency, sessionID, filename string, data []byte, contentType string) (*StagedDocument, error) {
	objectName := fmt.Sprintf("%s/%s/%s", agency, sessionID, filename)

	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to stage document: %w", err)
	}

	expiry := time.Duration(s.config.ExpireDays) * 24 * time.Hour
	url, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, expiry, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &StagedDocument{
		ObjectName: objectName,
		URL:        url.String(),
		PageCount:  pdfPageCount(data, contentType),
	}, nil
}

// Delete removes a staged document, e.g. on workflow reset
func (s *DocumentStore) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete staged document: %w", err)
	}

	return nil
}

// pdfPageCount reads the page count of a PDF scan. Insurer PDFs are often
// sloppy, so validation is relaxed and failures just mean "unknown".
func pdfPageCount(data []byte, contentType string) int {
	if !strings.Contains(contentType, "pdf") {
		return 0
	}

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		slog.Warn("could not read page count from staged PDF", "error", err)
		return 0
	}
	return count
}
