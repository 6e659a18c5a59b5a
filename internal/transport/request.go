package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/agentstation/fiscal/pkg/errors"
	"github.com/agentstation/fiscal/pkg/logging"
)

// graphError is the error envelope returned by Microsoft Graph.
type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ErrorMessage extracts a readable message from an error response body.
func ErrorMessage(body []byte) string {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err == nil && ge.Error.Message != "" {
		if ge.Error.Code != "" {
			return ge.Error.Code + ": " + ge.Error.Message
		}
		return ge.Error.Message
	}
	return string(bytes.TrimSpace(body))
}

// DecodeResponse decodes a JSON response into the target structure. Non-2xx statuses
// become APIErrors.
func DecodeResponse(resp *http.Response, system string, target any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapAPI(system, 0, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := errors.NewAPIError(system, resp.StatusCode, ErrorMessage(body))
		if resp.Request != nil && resp.Request.URL != nil {
			apiErr.Endpoint = resp.Request.URL.Path
		}
		return apiErr
	}

	if target == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", "response", err)
	}
	return nil
}

// DoJSON sends body as JSON and decodes the response into target.
func (c *Client) DoJSON(ctx context.Context, method, url string, body, target any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.WrapParse("json", "request", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.WrapResource("create", "request", method+" "+url, err)
	}
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return DecodeResponse(resp, c.system, target)
}
