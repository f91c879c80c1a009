// Package recordings archives completed call recordings to object storage.
package recordings

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"elecrm_backend/platform/config"
	"elecrm_backend/platform/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver downloads a recording from the vendor's URL and stores it in a
// MinIO bucket keyed by call SID.
type Archiver struct {
	client *minio.Client
	bucket string
	http   *http.Client
	log    *logger.Logger
}

// NewArchiver creates an archiver from MinIO configuration. Returns nil
// (archival disabled) when MinIO is not configured.
func NewArchiver(cfg config.MinIOConfig, log *logger.Logger) (*Archiver, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Archiver{
		client: client,
		bucket: cfg.GetMinioBucketCallRecordings(),
		http:   &http.Client{Timeout: 2 * time.Minute},
		log:    log,
	}, nil
}

// EnsureBucket creates the recordings bucket if it does not exist.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	if a == nil {
		return nil
	}
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// Archive fetches the recording and writes it to the bucket as
// <call_sid>.wav. Errors are returned for the task queue to retry.
func (a *Archiver) Archive(ctx context.Context, callSid, recordingURL string) error {
	if a == nil {
		return nil
	}
	if callSid == "" || recordingURL == "" {
		return fmt.Errorf("archive requires call sid and recording url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return err
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("download recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recording download returned status %d", resp.StatusCode)
	}

	objectName := callSid + ".wav"
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/wav"
	}

	_, err = a.client.PutObject(ctx, a.bucket, objectName, resp.Body, resp.ContentLength, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("store recording %s: %w", objectName, err)
	}

	a.log.Info("recording archived", "call_sid", callSid, "object", objectName)
	return nil
}
