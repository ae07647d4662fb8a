package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// StatusError is returned when the remote side answers with a non 2xx status.
type StatusError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("http status: %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("http status: %d: %s", e.StatusCode, e.Message)
}

// apiError covers both `{"error": {"type": "...", "message": "..."}}` and
// `{"error": "TYPE"}` bodies.
type apiError struct {
	Error json.RawMessage `json:"error"`
}

type apiErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func Do(ctx context.Context, client *http.Client, method, url string, headers map[string]string, payload []byte, v interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Add(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		d, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return parseStatusError(res.StatusCode, d)
	}
	if v == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(v)
}

func parseStatusError(code int, d []byte) error {
	serr := &StatusError{StatusCode: code, Message: string(d)}

	var body apiError
	if jserr := json.Unmarshal(d, &body); jserr != nil || len(body.Error) == 0 {
		return serr
	}
	var detail apiErrorDetail
	if jserr := json.Unmarshal(body.Error, &detail); jserr == nil {
		serr.Type = detail.Type
		serr.Message = detail.Message
		return serr
	}
	var typ string
	if jserr := json.Unmarshal(body.Error, &typ); jserr == nil {
		serr.Type = typ
		serr.Message = ""
	}
	return serr
}
