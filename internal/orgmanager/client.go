// Package orgmanager talks to the organization manager, which owns the
// organizations, their spaces and the permissions users hold on them.
package orgmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/audit"
	"github.com/efs-sdk/accessmanager/internal/core"
)

// maxErrorBody limits how much of an upstream error body is kept as detail.
const maxErrorBody = 4 << 10

type Organization struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Space struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type OutcomeKind int

const (
	Allowed OutcomeKind = iota
	Denied
	NotFound
	UpstreamError
)

func (k OutcomeKind) String() string {
	switch k {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	case NotFound:
		return "not_found"
	default:
		return "upstream_error"
	}
}

// Outcome classifies the upstream response status.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	// Detail holds the upstream error body for UpstreamError.
	Detail string
}

type Client struct {
	http                 *http.Client
	organizationEndpoint string
	spaceEndpoint        string
}

// New creates a client using a pooled transport with the given timeout.
func New(organizationEndpoint, spaceEndpoint string, timeout time.Duration) *Client {
	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = timeout
	return NewWithHTTPClient(organizationEndpoint, spaceEndpoint, hc)
}

func NewWithHTTPClient(organizationEndpoint, spaceEndpoint string, hc *http.Client) *Client {
	return &Client{
		http:                 hc,
		organizationEndpoint: strings.TrimRight(organizationEndpoint, "/"),
		spaceEndpoint:        strings.TrimRight(spaceEndpoint, "/"),
	}
}

// Organization looks up an organization by name. The returned organization is
// only set if the outcome is Allowed.
func (c *Client) Organization(ctx context.Context, caller *core.Principal, name string) (*Organization, Outcome, error) {
	endpoint := c.organizationEndpoint + "/name/" + url.PathEscape(name)

	var raw struct {
		ID   *int64 `json:"id"`
		Name string `json:"name"`
	}
	outcome, err := c.get(ctx, caller, endpoint, &raw)
	if err != nil || outcome.Kind != Allowed {
		return nil, outcome, err
	}
	if raw.ID == nil {
		return nil, outcome, core.ErrMalformedResponse.WithDetail("organization '%s' has no id", name)
	}
	return &Organization{ID: *raw.ID, Name: raw.Name}, outcome, nil
}

// Spaces lists the spaces of an organization the caller holds permission on.
func (c *Client) Spaces(ctx context.Context, caller *core.Principal, organizationID int64, permission core.OperationClass) ([]Space, Outcome, error) {
	q := url.Values{}
	q.Set("permissions", permission.String())
	endpoint := c.spaceEndpoint + "/" + strconv.FormatInt(organizationID, 10) + "?" + q.Encode()

	var spaces []Space
	outcome, err := c.get(ctx, caller, endpoint, &spaces)
	if err != nil || outcome.Kind != Allowed {
		return nil, outcome, err
	}
	for i, s := range spaces {
		if s.Name == "" {
			return nil, outcome, core.ErrMalformedResponse.WithDetail("space at index %d has no name", i)
		}
	}
	return spaces, outcome, nil
}

func (c *Client) get(ctx context.Context, caller *core.Principal, endpoint string, out any) (Outcome, error) {
	logger := log.Ctx(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	correlationID := core.CorrelationID(ctx)
	if correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}
	principalID := ""
	if caller != nil {
		principalID = caller.ID
		if caller.Token != "" {
			req.Header.Set("Authorization", "Bearer "+caller.Token)
		}
	}
	req.Header.Set("User-Agent", audit.CreateUserAgent(correlationID, principalID))

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("calling organization manager: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	logger.Debug().
		Str("url", endpoint).
		Int("status", resp.StatusCode).
		Msg("organization manager responded")

	outcome := Outcome{StatusCode: resp.StatusCode}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		outcome.Kind = Allowed
	case resp.StatusCode == http.StatusForbidden:
		outcome.Kind = Denied
		return outcome, nil
	case resp.StatusCode == http.StatusNotFound:
		outcome.Kind = NotFound
		return outcome, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		outcome.Kind = UpstreamError
		outcome.Detail = strings.TrimSpace(string(body))
		if outcome.Detail == "" {
			outcome.Detail = resp.Status
		}
		return outcome, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return outcome, core.ErrMalformedResponse.Wrap(err)
	}
	return outcome, nil
}
