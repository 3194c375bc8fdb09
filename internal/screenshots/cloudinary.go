package screenshots

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ksred/klear-journal/internal/config"
)

const defaultCloudinaryBaseURL = "https://api.cloudinary.com/v1_1"

// CloudinaryStore talks to the Cloudinary upload API with signed requests
type CloudinaryStore struct {
	client    *resty.Client
	apiKey    string
	apiSecret string
	folder    string
	now       func() time.Time
	logger    zerolog.Logger
}

// ensure CloudinaryStore implements Store
var _ Store = (*CloudinaryStore)(nil)

type uploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

type destroyResponse struct {
	Result string `json:"result"`
}

type cloudinaryError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewCloudinaryStore(cfg config.Cloudinary, folder string) *CloudinaryStore {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultCloudinaryBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/") + "/" + cfg.CloudName).
		SetTimeout(timeout).
		SetError(&cloudinaryError{})

	return &CloudinaryStore{
		client:    client,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		folder:    folder,
		now:       time.Now,
		logger:    log.With().Str("service", "cloudinary").Logger(),
	}
}

// sign returns the SHA-1 signature of the sorted params followed by the secret
func (s *CloudinaryStore) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	h := sha1.New()
	h.Write([]byte(strings.Join(pairs, "&") + s.apiSecret))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *CloudinaryStore) signedParams(params map[string]string) map[string]string {
	params["timestamp"] = strconv.FormatInt(s.now().Unix(), 10)
	signature := s.sign(params)
	params["api_key"] = s.apiKey
	params["signature"] = signature
	return params
}

func (s *CloudinaryStore) Upload(ctx context.Context, name string, data io.Reader, contentType string) (string, error) {
	params := s.signedParams(map[string]string{
		"folder":    s.folder,
		"public_id": name,
	})

	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(params).
		SetMultipartField("file", name, contentType, data).
		SetResult(&uploadResponse{}).
		Post("/image/upload")
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("cloudinary upload: status %d: %s", resp.StatusCode(), errorMessage(resp))
	}

	result := resp.Result().(*uploadResponse)
	if result.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload: response has no secure_url")
	}

	s.logger.Debug().Str("public_id", result.PublicID).Msg("uploaded screenshot")
	return result.SecureURL, nil
}

func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	params := s.signedParams(map[string]string{
		"public_id": key,
	})

	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(params).
		SetResult(&destroyResponse{}).
		Post("/image/destroy")
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("cloudinary destroy: status %d: %s", resp.StatusCode(), errorMessage(resp))
	}

	switch result := resp.Result().(*destroyResponse).Result; result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("cloudinary destroy: unexpected result %q", result)
	}
}

func (s *CloudinaryStore) KeyFromURL(url string) string {
	return keyFromURL(s.folder, url)
}

func errorMessage(resp *resty.Response) string {
	if e, ok := resp.Error().(*cloudinaryError); ok && e.Error.Message != "" {
		return e.Error.Message
	}
	return resp.Status()
}
