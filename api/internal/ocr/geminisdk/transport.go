package geminisdk

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// statusError carries a non-2xx Gemini answer past the SDK. The generated REST
// client repeats 503s on its own until the context ends; a transport error is
// never repeated, so every budgeted attempt stays one network call.
type statusError struct {
	Status  int
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gemini-sdk: status %d: %s", e.Status, e.Message)
}

// singleShot adds the API key and turns upstream errors into statusError.
type singleShot struct {
	key  string
	base http.RoundTripper
}

func newHTTPClient(key string) *http.Client {
	return &http.Client{Transport: &singleShot{key: key, base: http.DefaultTransport}}
}

func (t *singleShot) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	q := r.URL.Query()
	q.Set("key", t.key)
	r.URL.RawQuery = q.Encode()

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return nil, &statusError{Status: resp.StatusCode, Message: errorMessage(body)}
}

func errorMessage(body []byte) string {
	var ae struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error.Message != "" {
		return ae.Error.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return "Unknown API Error"
}
