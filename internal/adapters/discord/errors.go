package discord

import (
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"highlight-bot/internal/infra/throttle"
)

// RetryAfterExtractor — throttle.WaitExtractor для ответа 429. Сессия должна
// быть создана с ShouldRetryOnRateLimit = false, иначе discordgo спит сам и
// ошибка сюда не доходит. Серверная пауза соблюдается без джиттера.
func RetryAfterExtractor() throttle.WaitExtractor {
	return func(err error) (time.Duration, bool) {
		var rl *discordgo.RateLimitError
		if !errors.As(err, &rl) || rl.RateLimit == nil || rl.TooManyRequests == nil {
			return 0, false
		}
		if rl.RetryAfter <= 0 {
			return 0, false
		}
		return rl.RetryAfter, true
	}
}

// permanentError — отказ, после которого повторять отправку бессмысленно.
type permanentError struct{ err error }

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() error   { return e.err }
func (e *permanentError) StopRetry() bool { return true }

var _ throttle.StopRetryer = (*permanentError)(nil)

// classify помечает клиентские ошибки API (кроме 429) как неповторяемые.
func classify(err error) error {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) || rest.Response == nil {
		return err
	}
	switch code := rest.Response.StatusCode; {
	case code == http.StatusTooManyRequests:
		return err
	case code >= http.StatusBadRequest && code < http.StatusInternalServerError:
		return &permanentError{err: err}
	default:
		return err
	}
}
