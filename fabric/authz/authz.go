// Package authz is the thin authorization gate of spec.md §4.8 (component
// C8). Its correctness is explicitly out of scope for this core; fabricd
// only needs the shape every public operation calls before touching the
// store. Grounded in the teacher's layering style — a small interface with
// two implementations — used throughout hive/handlers/ec2/vpc (e.g.
// VPCService/NATSVPCService), rather than in any real authorization code,
// since hive has none.
package authz

import (
	"context"

	"github.com/mulgadc/fabricd/fabric/apierrors"
)

// Action is one of the operations a caller may be denied.
type Action string

const (
	ActionRead         Action = "read"
	ActionListChildren Action = "list_children"
	ActionCreateChild  Action = "create_child"
	ActionModify       Action = "modify"
	ActionDelete       Action = "delete"
)

// Resource names what is being acted on, for logging and for the
// authorizer's own policy lookup.
type Resource struct {
	Type string // "vpc", "subnet", "project", ...
	ID   string
}

// Authorizer decides whether an actor may perform action on resource.
// A denial is an apierrors.Unauthorized error, which vpcstore operations
// return to their caller unchanged.
type Authorizer interface {
	Authorize(ctx context.Context, actor string, action Action, resource Resource) error
}

// NoopAuthorizer allows every action. It is the default for tests and for
// deployments that delegate authorization to a collaborator outside this
// core (spec.md §1: "authorization context creation" is out of scope).
type NoopAuthorizer struct{}

func (NoopAuthorizer) Authorize(context.Context, string, Action, Resource) error { return nil }

// DenyAuthorizer denies every action; useful in tests that assert an
// operation short-circuits on authz before touching the store.
type DenyAuthorizer struct{}

func (DenyAuthorizer) Authorize(_ context.Context, _ string, action Action, resource Resource) error {
	return apierrors.Unauthorized(string(action), resource.Type)
}
