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

// CreateRouter implements create_router. Only Custom routers may be created
// this way; the System router is created implicitly by CreateVPC and
// cannot be recreated or removed independently of its VPC (spec.md §3).
func (s *Store) CreateRouter(ctx context.Context, actor, vpcID, name string) (*model.Router, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionCreateChild, authz.Resource{Type: "vpc", ID: vpcID}); err != nil {
		return nil, err
	}
	if _, _, err := store.Get[model.VPC](s.vpcs, vpcID); err != nil {
		return nil, apierrors.NotFound("vpc", vpcID)
	}

	id := uuid.NewString()
	nameIdxKey := nameKey(vpcID, name)
	if _, err := store.TryCreateUnique(s.routerNames, nameIdxKey, []byte(id)); err != nil {
		return nil, apierrors.AlreadyExists("router", name)
	}

	now := time.Now()
	router := &model.Router{
		Timestamps: model.Timestamps{TimeCreated: now, TimeModified: now},
		ID:         id,
		VPCID:      vpcID,
		Kind:       model.RouterKindCustom,
		Name:       name,
	}
	if _, err := store.Put(s.routers, id, router); err != nil {
		_ = store.Delete(s.routerNames, nameIdxKey)
		return nil, apierrors.Internal(err)
	}
	return router, nil
}

// GetRouter fetches a live router by id.
func (s *Store) GetRouter(ctx context.Context, actor, id string) (*model.Router, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionRead, authz.Resource{Type: "router", ID: id}); err != nil {
		return nil, err
	}
	r, _, err := store.Get[model.Router](s.routers, id)
	if err != nil || !r.Live() {
		return nil, apierrors.NotFound("router", id)
	}
	return r, nil
}

// ListRouters lists every live router of a VPC (System and Custom alike),
// ordered by id or name per page.KeyColumn and bounded by page.Limit
// (spec.md §4.2, §9 "Polymorphism").
func (s *Store) ListRouters(ctx context.Context, actor, vpcID string, page store.PageParams) ([]model.Router, string, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionListChildren, authz.Resource{Type: "vpc", ID: vpcID}); err != nil {
		return nil, "", err
	}
	all, err := store.ListLive[model.Router](s.routers)
	if err != nil {
		return nil, "", err
	}
	out := make([]model.Router, 0, len(all))
	for _, r := range all {
		if r.VPCID == vpcID {
			out = append(out, r)
		}
	}
	rows, next := store.Paginate(out, page,
		func(r model.Router) string { return r.ID },
		func(r model.Router) string { return r.Name },
	)
	return rows, next, nil
}

// DeleteRouter implements delete_router: refuses on the System router and
// while any live route still belongs to it.
func (s *Store) DeleteRouter(ctx context.Context, actor, id string) error {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionDelete, authz.Resource{Type: "router", ID: id}); err != nil {
		return err
	}

	router, rev, err := store.Get[model.Router](s.routers, id)
	if err != nil || !router.Live() {
		return apierrors.NotFound("router", id)
	}
	if router.Kind == model.RouterKindSystem {
		return apierrors.InvalidRequest("the system router cannot be deleted directly")
	}

	routes, err := s.listLiveRoutesByRouter(id)
	if err != nil {
		return err
	}
	if len(routes) > 0 {
		return apierrors.InvalidRequest("router %s still has %d live route(s)", id, len(routes))
	}

	now := time.Now()
	router.TimeDeleted = &now
	router.TimeModified = now
	if _, err := store.CASUpdate(s.routers, id, rev, router); err != nil {
		return apierrors.Conflict("router", id)
	}
	_ = store.Delete(s.routerNames, nameKey(router.VPCID, router.Name))
	return nil
}
