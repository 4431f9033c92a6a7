// Package clients talks to the collaborating services over HTTP.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"foodorder/internal/apperr"
	"foodorder/internal/logger"
	"foodorder/internal/services"
)

// maxBody caps how much of an upstream response is read.
const maxBody = 1 << 20

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// doJSON sends in (when non-nil) as JSON and decodes a 2xx response into out. The
// caller's authorization header and request id travel with the request.
func doJSON(ctx context.Context, hc *http.Client, collaborator, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", collaborator, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", collaborator, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred := services.CredentialFromContext(ctx); cred != "" {
		req.Header.Set("Authorization", cred)
	}
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return apperr.Upstream(collaborator, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return apperr.Upstream(collaborator, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(collaborator, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Upstream(collaborator, fmt.Errorf("malformed response: %w", err))
	}
	return nil
}

// statusError classifies a non-2xx response. Only 5xx and unexpected codes are
// treated as an outage; client errors keep their meaning.
func statusError(collaborator string, code int, raw []byte) error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Message
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.Validation("%s rejected the request: %s", collaborator, msg)
	case http.StatusUnauthorized:
		return apperr.InvalidCredential(fmt.Errorf("%s: %s", collaborator, msg))
	case http.StatusForbidden:
		return apperr.Forbidden("%s: %s", collaborator, msg)
	case http.StatusNotFound:
		return apperr.NotFound("%s: %s", collaborator, msg)
	case http.StatusConflict:
		return apperr.Conflict("%s: %s", collaborator, msg)
	}
	return apperr.Upstream(collaborator, fmt.Errorf("unexpected status %d: %s", code, msg))
}
