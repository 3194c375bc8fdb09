package screenshots

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ksred/klear-journal/internal/config"
)

var (
	ErrNotAnImage = errors.New("screenshot must be an image")
	ErrTooLarge   = errors.New("screenshot exceeds the maximum size")
)

const (
	DefaultFolder   = "trading-journal"
	DefaultMaxBytes = 10 << 20
)

// Store uploads and deletes trade screenshots
type Store interface {
	// Upload stores the image under name and returns its public URL
	Upload(ctx context.Context, name string, data io.Reader, contentType string) (string, error)
	// Delete removes the image identified by key. Deleting a missing image is not an error.
	Delete(ctx context.Context, key string) error
	// KeyFromURL returns the deletion key for a URL returned by Upload, or "" if none
	KeyFromURL(url string) string
}

// NewStore builds the store selected by cfg.Driver
func NewStore(cfg config.Screenshots) (Store, error) {
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	switch cfg.Driver {
	case "local", "":
		return NewLocalStore(cfg.Local, cfg.Folder)
	case "cloudinary":
		return NewCloudinaryStore(cfg.Cloud, cfg.Folder), nil
	default:
		return nil, fmt.Errorf("unsupported screenshot driver %q", cfg.Driver)
	}
}

// ObjectName is the name given to a screenshot uploaded at now. The random
// suffix keeps uploads in the same millisecond apart.
func ObjectName(now time.Time) string {
	return fmt.Sprintf("trade-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// Image is a validated screenshot payload
type Image struct {
	Data        []byte
	ContentType string
}

// Reader returns a fresh reader over the image bytes
func (i Image) Reader() io.Reader {
	return bytes.NewReader(i.Data)
}

// ReadImage reads at most maxBytes from r and checks that the content is an
// image. An empty payload returns a nil image and no error.
func ReadImage(r io.Reader, maxBytes int64) (*Image, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, ErrNotAnImage
	}

	return &Image{Data: data, ContentType: contentType}, nil
}

// keyFromURL takes the last path segment up to its first '.' and prefixes
// the folder, e.g. ".../trading-journal/trade-1.png" -> "trading-journal/trade-1"
func keyFromURL(folder, url string) string {
	if url == "" {
		return ""
	}
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	segment := url[strings.LastIndex(url, "/")+1:]
	if i := strings.Index(segment, "."); i >= 0 {
		segment = segment[:i]
	}
	if segment == "" {
		return ""
	}
	return folder + "/" + segment
}
