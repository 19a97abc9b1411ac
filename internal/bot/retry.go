package bot

import (
	"context"
	"time"

	"github.com/RichardoC/padi-bot/internal/llm"
)

// MaxRetries is how many extra attempts a transient failure gets.
const MaxRetries = 2

// DefaultRetryDelays is the back-off before retrying each transient kind.
var DefaultRetryDelays = map[llm.Kind]time.Duration{
	llm.RateLimited: 20 * time.Second,
	llm.Timeout:     5 * time.Second,
	llm.ServerError: 10 * time.Second,
	llm.ServerBusy:  10 * time.Second,
	llm.Unknown:     10 * time.Second,
}

const defaultRetryDelay = 10 * time.Second

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// apology is shown when a failure has no more specific explanation.
const apology = "I'm a bit tired right now, please try again later."

var errorMessages = map[llm.Kind]string{
	llm.BadRequest:          "invalid request format",
	llm.AuthFailure:         "authentication failed, check the API key",
	llm.InsufficientBalance: "insufficient account balance",
	llm.BadParameters:       "invalid request parameters",
	llm.RateLimited:         "rate limit reached, please slow down",
	llm.ServerError:         "the model server failed",
	llm.ServerBusy:          "the model server is busy",
	llm.Timeout:             "I did not receive your message",
	llm.ConnectionError:     "I cannot reach the model server",
}

// errorMessage is the user-facing text for a terminal failure. Only the
// generic path exposes the underlying error.
func errorMessage(err error) string {
	kind := llm.KindOf(err)
	if kind == llm.Unknown {
		return "unknown error: " + err.Error()
	}
	if msg, ok := errorMessages[kind]; ok {
		return msg
	}
	return apology
}

// clearsSession reports whether a failure of kind should reset the
// session, since a corrupted or oversized history may be the cause.
func clearsSession(kind llm.Kind) bool {
	return kind == llm.AuthFailure || kind == llm.ConnectionError
}
