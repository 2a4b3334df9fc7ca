package vpcstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mulgadc/fabricd/fabric/apierrors"
	"github.com/mulgadc/fabricd/fabric/authz"
	"github.com/mulgadc/fabricd/fabric/model"
	"github.com/mulgadc/fabricd/fabric/store"
)

// CreateRouteParams are the caller-supplied fields of create_route.
type CreateRouteParams struct {
	RouterID    string
	Kind        model.RouteKind
	Name        string
	Target      string
	Destination string
}

// CreateRoute implements create_route. At most one Default route may exist
// per router (spec.md §3 invariant); this is enforced the same way name
// uniqueness is, via a dedicated index bucket keyed on the router rather
// than on (router, name).
func (s *Store) CreateRoute(ctx context.Context, actor string, p CreateRouteParams) (*model.Route, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionCreateChild, authz.Resource{Type: "router", ID: p.RouterID}); err != nil {
		return nil, err
	}
	if _, _, err := store.Get[model.Router](s.routers, p.RouterID); err != nil {
		return nil, apierrors.NotFound("router", p.RouterID)
	}

	id := uuid.NewString()
	nameIdxKey := nameKey(p.RouterID, p.Name)
	if _, err := store.TryCreateUnique(s.routeNames, nameIdxKey, []byte(id)); err != nil {
		return nil, apierrors.AlreadyExists("route", p.Name)
	}
	if p.Kind == model.RouteKindDefault {
		if _, err := store.TryCreateUnique(s.defaultRoute, p.RouterID, []byte(id)); err != nil {
			_ = store.Delete(s.routeNames, nameIdxKey)
			return nil, apierrors.Conflict("router", p.RouterID)
		}
	}

	now := time.Now()
	route := &model.Route{
		Timestamps:  model.Timestamps{TimeCreated: now, TimeModified: now},
		ID:          id,
		VPCRouterID: p.RouterID,
		Kind:        p.Kind,
		Name:        p.Name,
		Target:      p.Target,
		Destination: p.Destination,
	}
	if _, err := store.Put(s.routes, id, route); err != nil {
		if p.Kind == model.RouteKindDefault {
			_ = store.Delete(s.defaultRoute, p.RouterID)
		}
		_ = store.Delete(s.routeNames, nameIdxKey)
		return nil, apierrors.Internal(err)
	}
	return route, nil
}

// GetRoute fetches a live route by id.
func (s *Store) GetRoute(ctx context.Context, actor, id string) (*model.Route, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionRead, authz.Resource{Type: "route", ID: id}); err != nil {
		return nil, err
	}
	r, _, err := store.Get[model.Route](s.routes, id)
	if err != nil || !r.Live() {
		return nil, apierrors.NotFound("route", id)
	}
	return r, nil
}

func (s *Store) listLiveRoutesByRouter(routerID string) ([]model.Route, error) {
	all, err := store.ListLive[model.Route](s.routes)
	if err != nil {
		return nil, err
	}
	out := make([]model.Route, 0, len(all))
	for _, r := range all {
		if r.VPCRouterID == routerID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListRoutes lists every live route of a router.
func (s *Store) ListRoutes(ctx context.Context, actor, routerID string) ([]model.Route, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionListChildren, authz.Resource{Type: "router", ID: routerID}); err != nil {
		return nil, err
	}
	return s.listLiveRoutesByRouter(routerID)
}

// UpdateRouteParams are the mutable fields of update_route.
type UpdateRouteParams struct {
	Target      *string
	Destination *string
}

// UpdateRoute applies a partial update under CAS retry.
func (s *Store) UpdateRoute(ctx context.Context, actor, id string, p UpdateRouteParams) (*model.Route, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionModify, authz.Resource{Type: "route", ID: id}); err != nil {
		return nil, err
	}
	return store.WithRetry(ctx, store.DefaultRetry, func() (*model.Route, error) {
		route, rev, err := store.Get[model.Route](s.routes, id)
		if err != nil || !route.Live() {
			return nil, apierrors.NotFound("route", id)
		}
		if p.Target != nil {
			route.Target = *p.Target
		}
		if p.Destination != nil {
			route.Destination = *p.Destination
		}
		route.TimeModified = time.Now()
		if _, err := store.CASUpdate(s.routes, id, rev, route); err != nil {
			return nil, apierrors.Conflict("route", id)
		}
		return route, nil
	})
}

// DeleteRoute implements delete_route.
func (s *Store) DeleteRoute(ctx context.Context, actor, id string) error {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionDelete, authz.Resource{Type: "route", ID: id}); err != nil {
		return err
	}
	route, rev, err := store.Get[model.Route](s.routes, id)
	if err != nil || !route.Live() {
		return apierrors.NotFound("route", id)
	}
	now := time.Now()
	route.TimeDeleted = &now
	route.TimeModified = now
	if _, err := store.CASUpdate(s.routes, id, rev, route); err != nil {
		return apierrors.Conflict("route", id)
	}
	_ = store.Delete(s.routeNames, nameKey(route.VPCRouterID, route.Name))
	if route.Kind == model.RouteKindDefault {
		_ = store.Delete(s.defaultRoute, route.VPCRouterID)
	}
	return nil
}
