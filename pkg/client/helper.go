package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/efs-sdk/accessmanager/internal/api/presenter"
)

var ErrInvalidSession = errors.New("invalid session token")

// APIError is a structured error returned by the server.
type APIError struct {
	Status        int
	Kind          string
	Code          int
	Message       string
	CorrelationID string
}

func (e APIError) Error() string {
	return fmt.Sprintf("api error %s (%d): '%s' (correlation: %s)", e.Kind, e.Code, e.Message, e.CorrelationID)
}

func (c *Client) get(ctx context.Context, url string, result any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, url string, result any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, result)
}

// postText posts to url and returns the plain text body.
func (c *Client) postText(ctx context.Context, url string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.send(req)
	if err != nil {
		return "", "", err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	correlation := correlationFromResponse(resp)
	if resp.StatusCode >= 400 {
		return "", correlation, parseErrorResponse(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", correlation, fmt.Errorf("reading response: %w", err)
	}
	return string(body), correlation, nil
}

func parseErrorResponse(resp *http.Response) error {
	var errResp presenter.ErrorResponse
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("request failed with status %d and unreadable body: %w", resp.StatusCode, err)
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
		if errResp.Message == "invalid session token" {
			return ErrInvalidSession
		}
		return APIError{
			Status:        resp.StatusCode,
			Kind:          errResp.Error,
			Code:          errResp.ErrorCode,
			Message:       errResp.Message,
			CorrelationID: errResp.CorrelationID,
		}
	}
	return fmt.Errorf("api error: *unparsed '%s' (status %d)", string(body), resp.StatusCode)
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	// inject auth token if available
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	return resp, nil
}

func (c *Client) do(req *http.Request, result any) (string, error) {
	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return correlationFromResponse(resp), parseErrorResponse(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return correlationFromResponse(resp), fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return correlationFromResponse(resp), nil
}

func correlationFromResponse(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	return resp.Header.Get("X-Correlation-ID")
}
