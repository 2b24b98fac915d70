package market

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tradon-app/tradon/internal/app/domain/market"
	"github.com/tradon-app/tradon/internal/app/metrics"
	"github.com/tradon-app/tradon/pkg/logger"
)

// DefaultTimeout bounds the upstream market call.
const DefaultTimeout = 5 * time.Second

// Service is the market data gateway. It enforces the upstream timeout and
// never retries; retry policy belongs to the caller.
type Service struct {
	fetcher Fetcher
	timeout time.Duration
	log     *logger.Logger
}

// New constructs the gateway around a fetcher.
func New(fetcher Fetcher, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewDefault("market")
	}
	return &Service{
		fetcher: fetcher,
		timeout: timeout,
		log:     log,
	}
}

// TopAssets returns the normalized ranked asset list. On failure the returned
// error is always an *UpstreamError carrying the status to surface.
func (s *Service) TopAssets(ctx context.Context) ([]market.Asset, error) {
	if s.fetcher == nil {
		return nil, &UpstreamError{StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	assets, err := s.fetcher.Fetch(ctx)
	if err != nil {
		upstream := Classify(err)
		metrics.RecordGatewayCall("market", outcome(upstream.StatusCode), time.Since(start))
		return nil, upstream
	}

	metrics.RecordGatewayCall("market", "ok", time.Since(start))
	return assets, nil
}

// Classify coerces any fetch error into an *UpstreamError.
func Classify(err error) *UpstreamError {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{StatusCode: http.StatusGatewayTimeout, Message: "API request timed out"}
	}
	return &UpstreamError{StatusCode: http.StatusInternalServerError, Message: "Internal Server Error"}
}

func outcome(status int) string {
	switch status {
	case http.StatusGatewayTimeout:
		return "timeout"
	case http.StatusBadGateway:
		return "upstream_error"
	default:
		return "internal_error"
	}
}
