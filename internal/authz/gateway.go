// Package authz decides whether a caller may act on a space by asking the
// organization manager which spaces the caller holds a permission on.
package authz

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/core"
	"github.com/efs-sdk/accessmanager/internal/metrics"
	"github.com/efs-sdk/accessmanager/internal/orgmanager"
)

// LoadingZone is the staging space every organization uploads into.
const LoadingZone = "loadingzone"

// Directory is the part of the organization manager the gateway needs.
type Directory interface {
	Organization(ctx context.Context, caller *core.Principal, name string) (*orgmanager.Organization, orgmanager.Outcome, error)
	Spaces(ctx context.Context, caller *core.Principal, organizationID int64, permission core.OperationClass) ([]orgmanager.Space, orgmanager.Outcome, error)
}

type Gateway struct {
	directory Directory
}

func NewGateway(directory Directory) *Gateway {
	return &Gateway{directory: directory}
}

// Check reports whether the caller holds permission on the space.
// READ on the loading zone is granted to anyone who may write somewhere in
// the organization.
func (g *Gateway) Check(ctx context.Context, caller *core.Principal, organization, space string, permission core.OperationClass) (bool, error) {
	if permission == core.ClassRead && strings.EqualFold(space, LoadingZone) {
		return g.CheckAnyAccess(ctx, caller, organization, core.ClassWrite)
	}

	spaces, ok, err := g.spaces(ctx, caller, organization, permission)
	if err != nil || !ok {
		return false, err
	}
	for _, s := range spaces {
		if strings.EqualFold(s.Name, space) {
			g.record(ctx, caller, organization, space, permission, true)
			return true, nil
		}
	}
	g.record(ctx, caller, organization, space, permission, false)
	return false, nil
}

// CheckAnyAccess reports whether the caller holds permission on at least one
// space of the organization.
func (g *Gateway) CheckAnyAccess(ctx context.Context, caller *core.Principal, organization string, permission core.OperationClass) (bool, error) {
	spaces, ok, err := g.spaces(ctx, caller, organization, permission)
	if err != nil || !ok {
		return false, err
	}
	allowed := len(spaces) > 0
	g.record(ctx, caller, organization, "*", permission, allowed)
	return allowed, nil
}

// spaces returns ok=false when the organization manager answered 403.
func (g *Gateway) spaces(ctx context.Context, caller *core.Principal, organization string, permission core.OperationClass) ([]orgmanager.Space, bool, error) {
	org, outcome, err := g.directory.Organization(ctx, caller, organization)
	if err != nil {
		return nil, false, err
	}
	if ok, err := g.evaluate(ctx, caller, organization, permission, outcome); !ok || err != nil {
		return nil, false, err
	}

	spaces, outcome, err := g.directory.Spaces(ctx, caller, org.ID, permission)
	if err != nil {
		return nil, false, err
	}
	if ok, err := g.evaluate(ctx, caller, organization, permission, outcome); !ok || err != nil {
		return nil, false, err
	}
	return spaces, true, nil
}

func (g *Gateway) evaluate(ctx context.Context, caller *core.Principal, organization string, permission core.OperationClass, outcome orgmanager.Outcome) (bool, error) {
	metrics.PermissionChecks.WithLabelValues(permission.String(), outcome.Kind.String()).Inc()

	switch outcome.Kind {
	case orgmanager.Allowed:
		return true, nil
	case orgmanager.Denied:
		g.record(ctx, caller, organization, "", permission, false)
		return false, nil
	case orgmanager.NotFound:
		return false, core.ErrOrganizationNotFound.WithDetail("organization '%s'", organization)
	default:
		return false, core.ErrOrganizationManagerError.WithDetail("%s", outcome.Detail)
	}
}

func (g *Gateway) record(ctx context.Context, caller *core.Principal, organization, space string, permission core.OperationClass, allowed bool) {
	ev := log.Ctx(ctx).Info()
	if !allowed {
		ev = log.Ctx(ctx).Warn()
	}
	ev.Bool("audit", true).
		Str("principal", caller.DisplayName()).
		Str("organization", organization).
		Str("space", space).
		Str("permission", permission.String()).
		Bool("allowed", allowed).
		Msg("permission checked")
}
