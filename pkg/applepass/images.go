package applepass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"walletbridge/internal/constants"
	apperrors "walletbridge/internal/errors"
	"walletbridge/internal/metrics"
	"walletbridge/internal/models"

	"github.com/sirupsen/logrus"
)

const maxImageBytes = 5 * 1024 * 1024

// ImageFetcher downloads pass artwork for embedding in the bundle.
// Images are best-effort: a failed download is logged and skipped, and
// the bundle ships without that asset.
type ImageFetcher struct {
	client  *http.Client
	logger  *logrus.Logger
	metrics *metrics.Registry
}

func NewImageFetcher(httpClient *http.Client, logger *logrus.Logger, registry *metrics.Registry) *ImageFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DefaultImageFetchSec * time.Second}
	}
	if logger == nil {
		logger = logrus.New()
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &ImageFetcher{
		client:  httpClient,
		logger:  logger,
		metrics: registry,
	}
}

// Collect fetches the pass artwork referenced by the data and adds each
// successful download to files under its bundle name. Failures never
// propagate; pass.json alone is a valid bundle.
func (f *ImageFetcher) Collect(ctx context.Context, data models.PassData, files map[string][]byte) {
	assets := map[string]string{
		"logo.png":       data.Logo,
		"icon.png":       data.Icon,
		"thumbnail.png":  data.Thumbnail,
		"strip.png":      data.Strip,
		"background.png": data.Background,
	}

	for name, url := range assets {
		if url == "" {
			continue
		}
		content, err := f.fetch(ctx, url)
		if err != nil {
			apperrors.LogWarn(f.logger, err, "skipping pass image",
				logrus.Fields{"asset": name})
			f.metrics.IncrementCounter("pass_image_fetch_failures", map[string]string{"asset": name})
			continue
		}
		files[name] = content
	}
}

func (f *ImageFetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeImageFetch, "image download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.ErrCodeImageFetch,
			fmt.Sprintf("image download returned status %d", resp.StatusCode)).
			WithContext("url", url)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return content, nil
}
