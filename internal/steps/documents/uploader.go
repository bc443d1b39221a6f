// Package documents uploads deal documents to the document-storage
// collaborator.
package documents

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"time"

	apperrors "deal-wizard/internal/common/errors"
	commonhttp "deal-wizard/internal/common/http"
	"deal-wizard/internal/common/logger"
	"deal-wizard/internal/common/metrics"
	"deal-wizard/internal/models"
)

// Uploader stores a single file and returns its descriptor.
type Uploader interface {
	Upload(ctx context.Context, file File) (*models.Document, error)
}

type HTTPUploader struct {
	client *commonhttp.Client
	config *Config
}

func NewHTTPUploader(config *Config) *HTTPUploader {
	return &HTTPUploader{
		client: commonhttp.NewServiceClient(config.BaseURL, config.APIKey, config.Timeout),
		config: config,
	}
}

func (u *HTTPUploader) Upload(ctx context.Context, file File) (*models.Document, error) {
	if u.config.MaxFileSize > 0 && int64(len(file.Data)) > u.config.MaxFileSize {
		return nil, apperrors.NewDocumentUploadFailedError(file.Name, fmt.Errorf("file exceeds %d bytes", u.config.MaxFileSize))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	header.Set("Content-Type", contentType(file))
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, apperrors.NewDocumentUploadFailedError(file.Name, err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, apperrors.NewDocumentUploadFailedError(file.Name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, apperrors.NewDocumentUploadFailedError(file.Name, err)
	}

	start := time.Now()
	var resp uploadResponse
	err = u.client.PostRaw(ctx, "/deals/upload-document", mw.FormDataContentType(), &body, &resp)
	metrics.ObserveCollaborator("documents", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, apperrors.NewDocumentUploadFailedError(file.Name, err)
	}
	if resp.ID == "" {
		return nil, apperrors.NewDocumentUploadFailedError(file.Name, fmt.Errorf("no document id returned"))
	}

	return &models.Document{
		ID:   resp.ID,
		Name: file.Name,
		Type: contentType(file),
		Size: int64(len(file.Data)),
	}, nil
}

func contentType(f File) string {
	if f.ContentType == "" {
		return "application/octet-stream"
	}
	return f.ContentType
}

// BatchUploader uploads files one at a time, in order.
type BatchUploader struct {
	uploader Uploader
	logger   logger.Logger
}

func NewBatchUploader(uploader Uploader, log logger.Logger) *BatchUploader {
	return &BatchUploader{uploader: uploader, logger: logger.ForComponent(log, "documents")}
}

// UploadBatch is all-or-nothing from the draft's point of view: on the first
// failure no descriptor is returned. Files already stored remotely are left
// for the storage service to expire.
// TODO: upload concurrently with a bounded worker count once the storage
// service confirms it tolerates parallel writes per deal.
func (b *BatchUploader) UploadBatch(ctx context.Context, files []File) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(files))
	for i, f := range files {
		doc, err := b.uploader.Upload(ctx, f)
		if err != nil {
			b.logger.Warn("Document upload failed", map[string]interface{}{
				"fileName":  f.Name,
				"index":     i,
				"abandoned": len(docs),
				"error":     err.Error(),
			})
			return nil, apperrors.As(err)
		}
		docs = append(docs, *doc)
	}

	b.logger.Info("Documents uploaded", map[string]interface{}{"count": len(docs)})
	return docs, nil
}
