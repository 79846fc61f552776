// Package upload holds the attachment-upload collaborator. The sync core
// never sees attachment bytes; it consumes only the resolved URL this
// package produces.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrUploadFailed means the blob endpoint rejected or never stored
	// the attachment.
	ErrUploadFailed = errors.New("upload: attachment not stored")
	// ErrURLResolution means the attachment was stored but no download
	// URL came back for it.
	ErrURLResolution = errors.New("upload: download url not resolved")
)

// Uploader stores attachment bytes under a name and yields the absolute
// URL that gets persisted as message content.
type Uploader interface {
	Upload(ctx context.Context, data []byte, name string) (string, error)
}

// HTTP uploads to a blob endpoint: PUT {base}/{name}, expecting a JSON
// response carrying the resolved download URL.
type HTTP struct {
	client *resty.Client
	logger *zap.Logger
}

// NewHTTP creates an uploader against baseURL.
func NewHTTP(baseURL string, logger *zap.Logger) *HTTP {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second)
	return &HTTP{client: client, logger: logger}
}

// Upload stores data under name and returns the download URL.
func (h *HTTP) Upload(ctx context.Context, data []byte, name string) (string, error) {
	var result struct {
		URL string `json:"url"`
	}

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		SetResult(&result).
		Put("/" + url.PathEscape(name))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: status %s", ErrUploadFailed, resp.Status())
	}
	if result.URL == "" {
		return "", ErrURLResolution
	}

	h.logger.Info("attachment uploaded",
		zap.String("name", name),
		zap.Int("bytes", len(data)))
	return result.URL, nil
}

// PhotoFileName derives the stored file name for a photo message from its
// message id.
func PhotoFileName(messageID string) string {
	return "photo_message_" + strings.ReplaceAll(messageID, " ", "-") + ".png"
}

// VideoFileName derives the stored file name for a video message from its
// message id.
func VideoFileName(messageID string) string {
	return "video_message_" + strings.ReplaceAll(messageID, " ", "-") + ".mov"
}
