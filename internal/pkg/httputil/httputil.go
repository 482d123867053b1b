package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxErrorBody caps how much of a failed response body is kept for diagnosis.
const maxErrorBody = 4 << 10

// StatusError is returned when an upstream answers with anything but 200 OK.
type StatusError struct {
	URL        string
	Status     string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Status)
}

// Temporary reports whether retrying the same request later may succeed.
func (e *StatusError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Check returns a *StatusError for any response other than 200 OK, draining
// and closing its body. Upstreams answer 200 on success, so an accepted-but-
// not-processed 202 or an empty 204 is a failure too. The request URL is
// redacted so access tokens never reach logs.
func Check(r *http.Response) error {
	if r.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(r.Body, maxErrorBody))
	io.Copy(io.Discard, r.Body)
	r.Body.Close()

	return &StatusError{
		URL:        Redact(r.Request),
		Status:     r.Status,
		StatusCode: r.StatusCode,
		Body:       string(body),
	}
}

// Redact renders the request URL without credentials or query string.
func Redact(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	u := *req.URL
	u.RawQuery = ""
	return u.Redacted()
}

// DoJSON executes req and decodes a successful JSON body into out.
func DoJSON(client *http.Client, req *http.Request, out any) error {
	if client == nil {
		client = http.DefaultClient
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Scrub(req, err)
	}
	if err := Check(resp); err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", Redact(req), err)
	}
	return nil
}

// Scrub rewrites the URL carried by a transport error so it never exposes
// query-string tokens.
func Scrub(req *http.Request, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = Redact(req)
	}
	return err
}
