package client

import (
	"context"
	"fmt"

	"github.com/efs-sdk/accessmanager/internal/api"
)

// TokenKind selects the access route a token is requested from.
type TokenKind string

const (
	TokenRead       TokenKind = "read"
	TokenUpload     TokenKind = "upload"
	TokenUploadMain TokenKind = "upload/main"
	TokenDelete     TokenKind = "delete"
)

func (k TokenKind) route() (string, error) {
	switch k {
	case TokenRead:
		return api.ReadRoute, nil
	case TokenUpload:
		return api.UploadRoute, nil
	case TokenUploadMain:
		return api.UploadMainRoute, nil
	case TokenDelete:
		return api.DeleteRoute, nil
	}
	return "", fmt.Errorf("unknown token kind '%s'", k)
}

// IssueToken requests a SAS token for a space. It returns the token and the correlation id.
func (c *Client) IssueToken(ctx context.Context, kind TokenKind, organization, space string) (string, string, error) {
	route, err := kind.route()
	if err != nil {
		return "", "", err
	}
	return c.postText(ctx, c.url().
		setPath(route).
		addQueryParam(api.OrganizationParam, organization).
		addQueryParam(api.SpaceParam, space).
		build())
}

// Commit announces that the loading zone upload for space is complete.
// An empty rootDir lets the server pick its default.
func (c *Client) Commit(ctx context.Context, organization, space, rootDir string) (string, error) {
	ub := c.url().
		setPath(api.CommitRoute).
		addQueryParam(api.OrganizationParam, organization).
		addQueryParam(api.SpaceParam, space)
	if rootDir != "" {
		ub = ub.addQueryParam(api.RootDirParam, rootDir)
	}
	return c.post(ctx, ub.build(), nil)
}

type ListFilesOpts struct {
	// RootDir lists everything below this directory. It takes precedence over Pattern.
	RootDir string

	// Pattern is a regular expression the whole blob name has to match.
	Pattern string
}

func (c *Client) ListFiles(ctx context.Context, organization, space string, opts ListFilesOpts) ([]string, string, error) {
	ub := c.url().
		setPath(api.ListFilesRoute).
		addQueryParam(api.OrganizationParam, organization).
		addQueryParam(api.SpaceParam, space)
	if opts.RootDir != "" {
		ub = ub.addQueryParam(api.RootDirParam, opts.RootDir)
	}
	if opts.Pattern != "" {
		ub = ub.addQueryParam(api.PatternParam, opts.Pattern)
	}
	var files []string
	correlation, err := c.get(ctx, ub.build(), &files)
	return files, correlation, err
}
