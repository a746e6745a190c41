package backend

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/kava-labs/composer-proxy-service/logging"
)

// BreakerSettings configures the per host circuit breakers
type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker of a host
	ConsecutiveFailures uint32
	// Timeout is how long a breaker stays open before probing again
	Timeout time.Duration
	Logger  *logging.ServiceLogger
}

// serverError lets a 5xx response count as a breaker failure while
// still being handed to the caller
type serverError struct {
	response *Response
}

func (e serverError) Error() string {
	return fmt.Sprintf("backend responded with status %d", e.response.StatusCode)
}

type breakers struct {
	settings BreakerSettings
	mu       sync.Mutex
	byHost   map[string]*gobreaker.CircuitBreaker
}

func (b *breakers) get(host string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.byHost[host]; ok {
		return cb
	}

	logger := b.settings.Logger
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    host,
		Timeout: b.settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= b.settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("host", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("backend circuit breaker changed state")
		},
	})
	b.byHost[host] = cb

	return cb
}

// CircuitBreaker returns a decorator that guards each backend host with
// its own breaker. transport errors and 5xx responses count as failures,
// an open breaker fails the call with gobreaker.ErrOpenState
func CircuitBreaker(settings BreakerSettings) Decorator {
	b := &breakers{settings: settings, byHost: map[string]*gobreaker.CircuitBreaker{}}

	return func(next Client) Client {
		return ClientFunc(func(req *http.Request) (*Response, error) {
			result, err := b.get(req.URL.Host).Execute(func() (interface{}, error) {
				res, err := next.Send(req)
				if err != nil {
					return nil, err
				}
				if res != nil && res.StatusCode >= http.StatusInternalServerError {
					return nil, serverError{response: res}
				}
				return res, nil
			})

			if se, ok := err.(serverError); ok {
				return se.response, nil
			}
			if err != nil {
				return nil, err
			}

			res, _ := result.(*Response)
			return res, nil
		})
	}
}
