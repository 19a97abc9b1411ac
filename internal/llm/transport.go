package llm

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

// StatusDoer performs HTTP requests for the chat client and turns every
// non-2xx response into an *Error carrying the status code, so callers
// never have to parse status codes out of error strings.
type StatusDoer struct {
	client *http.Client
}

// NewStatusDoer wraps client; nil uses http.DefaultClient.
func NewStatusDoer(client *http.Client) *StatusDoer {
	if client == nil {
		client = http.DefaultClient
	}
	return &StatusDoer{client: client}
}

// Do performs req.
func (d *StatusDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, &Error{
		Kind:       KindFromStatus(resp.StatusCode),
		StatusCode: resp.StatusCode,
		Err:        errors.New(apiErrorMessage(resp.StatusCode, body)),
	}
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func apiErrorMessage(code int, body []byte) string {
	var b apiErrorBody
	if err := json.Unmarshal(body, &b); err == nil && b.Error.Message != "" {
		return b.Error.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return http.StatusText(code)
}
