package session

import (
	"fmt"
	"strings"

	"github.com/RichardoC/padi-bot/internal/tokens"
)

// fieldCounter counts whitespace separated fields, which keeps the
// expected token counts of a test easy to work out by hand.
type fieldCounter struct {
	calls int
}

func (c *fieldCounter) Count(text, _ string) (int, error) {
	c.calls++
	return len(strings.Fields(text)), nil
}

type brokenCounter struct{}

func (brokenCounter) Count(_, model string) (int, error) {
	return 0, fmt.Errorf("%w: model %q", tokens.ErrTokenizationUnavailable, model)
}
