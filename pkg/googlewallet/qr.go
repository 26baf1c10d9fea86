package googlewallet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"walletbridge/internal/constants"
	apperrors "walletbridge/internal/errors"
	"walletbridge/internal/metrics"
	"walletbridge/pkg/googlewallet/types"

	"github.com/sirupsen/logrus"
)

// QRGenerator produces QR artifacts for a save link. Only URL shortening
// is a network call; the QR image URLs are constructed render-service
// links the client fetches on display. Shortening failures degrade the
// output instead of failing the pass.
type QRGenerator struct {
	shortenerURL string
	renderURL    string
	fallbackURL  string
	client       *http.Client
	logger       *logrus.Logger
	metrics      *metrics.Registry
}

func NewQRGenerator(shortenerURL, renderURL, fallbackURL string, httpClient *http.Client, logger *logrus.Logger, registry *metrics.Registry) *QRGenerator {
	if shortenerURL == "" {
		shortenerURL = constants.DefaultShortenerBaseURL
	}
	if renderURL == "" {
		renderURL = constants.DefaultQRRenderBaseURL
	}
	if fallbackURL == "" {
		fallbackURL = constants.DefaultQRFallbackBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = logrus.New()
	}
	if registry == nil {
		registry = metrics.NewRegistry()
	}

	return &QRGenerator{
		shortenerURL: shortenerURL,
		renderURL:    renderURL,
		fallbackURL:  fallbackURL,
		client:       httpClient,
		logger:       logger,
		metrics:      registry,
	}
}

// Generate shortens the save URL and builds QR render links for it. When
// the shortener is unavailable the QR encodes the original long URL at a
// lower error-correction level so the denser code still scans.
//
// This method never returns an error; the worst case is a degraded
// artifact set.
func (g *QRGenerator) Generate(ctx context.Context, saveURL string) types.LinkArtifacts {
	artifacts := types.LinkArtifacts{OriginalURL: saveURL}

	shortURL, err := g.shorten(ctx, saveURL)
	if err != nil {
		apperrors.LogWarn(g.logger, err, "URL shortening failed, encoding full save URL")
		g.metrics.IncrementCounter("qr_shortener_failures", nil)

		artifacts.Degraded = true
		artifacts.QRCodeURL = g.renderLink(saveURL, "L")
		artifacts.FallbackQRURL = g.fallbackLink(saveURL)
		return artifacts
	}

	artifacts.ShortURL = shortURL
	artifacts.QRCodeURL = g.renderLink(shortURL, "M")
	artifacts.FallbackQRURL = g.fallbackLink(shortURL)
	return artifacts
}

func (g *QRGenerator) shorten(ctx context.Context, longURL string) (string, error) {
	endpoint := g.shortenerURL + "?url=" + url.QueryEscape(longURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create shortener request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", apperrors.WrapRetryable(err, apperrors.ErrCodeShortenerAPI, "shortener request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewProviderError("shortener", g.shortenerURL, resp.StatusCode,
			fmt.Errorf("shortener returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read shortener response: %w", err)
	}

	shortURL := strings.TrimSpace(string(body))
	if !strings.HasPrefix(shortURL, "http") {
		return "", fmt.Errorf("shortener returned unexpected body: %q", shortURL)
	}
	return shortURL, nil
}

func (g *QRGenerator) renderLink(data, eccLevel string) string {
	size := constants.DefaultQRSizePx
	return fmt.Sprintf("%s?size=%dx%d&ecc=%s&data=%s", g.renderURL, size, size, eccLevel, url.QueryEscape(data))
}

func (g *QRGenerator) fallbackLink(data string) string {
	return fmt.Sprintf("%s?size=%d&text=%s", g.fallbackURL, constants.DefaultQRSizePx, url.QueryEscape(data))
}
