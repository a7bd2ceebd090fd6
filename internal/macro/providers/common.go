package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"github.com/hushenglang/investment-dashboard/internal/common"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *resty.Client
	Backoff BackoffConfig
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errEmptyResponse = errors.New("provider returned no data")
	errMissingAPIKey = errors.New("api key is not configured")
)

// DefaultBackoff is used by the constructors; maxRetries overrides the retry count.
func DefaultBackoff(maxRetries int) BackoffConfig {
	return BackoffConfig{
		MaxRetries:      maxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func newHTTPClientConfig(client *http.Client, backoff BackoffConfig) HTTPClientConfig {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	rc := resty.NewWithClient(client).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetHeader("Accept", "application/json")
	return HTTPClientConfig{Client: rc, Backoff: backoff}
}

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// 4xx responses do not count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errUnexpected)
		},
	})
}

// breakerSet holds one circuit breaker per upstream series so a failing
// series cannot short-circuit its siblings.
type breakerSet struct {
	provider string

	mu    sync.Mutex
	byKey map[string]*gobreaker.CircuitBreaker
}

func newBreakerSet(provider string) *breakerSet {
	return &breakerSet{
		provider: provider,
		byKey:    make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (b *breakerSet) get(key string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	cb, ok := b.byKey[key]
	if !ok {
		cb = newCircuitBreaker(b.provider + ":" + key)
		b.byKey[key] = cb
	}
	return cb
}

// window widens [start, end] to whole calendar days.
func window(start, end time.Time) (time.Time, time.Time) {
	return common.StartOfDay(start), common.EndOfDay(end)
}

// doRequestWithResilience executes the request with retries, exponential backoff,
// and a circuit breaker. send issues one attempt on a fresh request.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	send func(req *resty.Request) (*resty.Response, error),
) (*resty.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := send(cfg.Client.R().SetContext(ctx))
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode() == http.StatusTooManyRequests {
				return nil, errRateLimited
			}
			if resp.StatusCode() >= 500 {
				return nil, errServerError
			}
			if !resp.IsSuccess() {
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode())
			}
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*resty.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		// Client errors other than 429 will not improve on retry.
		if errors.Is(err, errUnexpected) || attempt >= cfg.Backoff.MaxRetries {
			return nil, err
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func decode(resp *resty.Response, v any) error {
	if len(resp.Body()) == 0 {
		return errEmptyResponse
	}
	if err := json.Unmarshal(resp.Body(), v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
