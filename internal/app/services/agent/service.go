package agent

import (
	"context"
	"errors"
	"time"

	"github.com/tradon-app/tradon/internal/app/domain/chat"
	"github.com/tradon-app/tradon/internal/app/metrics"
	"github.com/tradon-app/tradon/pkg/logger"
)

// DefaultTimeout bounds the upstream completion call. The upstream has no
// timeout of its own, so expiry is treated as an upstream failure.
const DefaultTimeout = 30 * time.Second

// Service is the AI commentary gateway. Stateless per call: no history, no
// deduplication, no rate limiting.
type Service struct {
	completer Completer
	timeout   time.Duration
	log       *logger.Logger
}

// New constructs the gateway around an upstream completer.
func New(completer Completer, timeout time.Duration, log *logger.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewDefault("agent")
	}
	return &Service{
		completer: completer,
		timeout:   timeout,
		log:       log,
	}
}

// Reply forwards the conversation and returns the generated text. On failure
// the returned error is always an *UpstreamError carrying diagnostics.
func (s *Service) Reply(ctx context.Context, messages []chat.Message) (string, error) {
	if s.completer == nil {
		return "", &UpstreamError{Message: "agent upstream not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	reply, err := s.completer.Complete(ctx, messages)
	if err != nil {
		upstream := asUpstream(err)
		metrics.RecordGatewayCall("agent", "upstream_error", time.Since(start))
		s.log.WithError(upstream).Warn("agent completion failed")
		return "", upstream
	}

	metrics.RecordGatewayCall("agent", "ok", time.Since(start))
	return reply, nil
}

func asUpstream(err error) *UpstreamError {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamError{Message: "completion API request timed out"}
	}
	return &UpstreamError{Message: err.Error()}
}
