package screenshots

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ksred/klear-journal/internal/config"
)

var extensions = map[string]string{
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/bmp":                ".bmp",
	"image/x-icon":             ".ico",
	"image/vnd.microsoft.icon": ".ico",
}

// LocalStore keeps screenshots on disk below dir; the API serves dir at baseURL
type LocalStore struct {
	dir     string
	baseURL string
	folder  string
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(cfg config.Local, folder string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(cfg.Dir, folder), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	return &LocalStore{
		dir:     cfg.Dir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		folder:  folder,
	}, nil
}

// Dir is the directory to serve under the base URL
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Upload(ctx context.Context, name string, data io.Reader, contentType string) (string, error) {
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid screenshot name %q", name)
	}
	ext, ok := extensions[contentType]
	if !ok {
		ext = ".img"
	}

	path := filepath.Join(s.dir, s.folder, name+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot file: %w", err)
	}
	if _, err := io.Copy(f, data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}

	return s.baseURL + "/" + s.folder + "/" + name + ext, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, `*?[\`) {
		return fmt.Errorf("invalid screenshot key %q", key)
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, filepath.FromSlash(key)) + ".*")
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete screenshot: %w", err)
		}
	}
	return nil
}

func (s *LocalStore) KeyFromURL(url string) string {
	return keyFromURL(s.folder, url)
}
