package vpcstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mulgadc/fabricd/fabric/apierrors"
	"github.com/mulgadc/fabricd/fabric/authz"
	"github.com/mulgadc/fabricd/fabric/model"
	"github.com/mulgadc/fabricd/fabric/store"
)

// CreateVPCParams are the caller-supplied fields of create_vpc (spec.md
// §4.2). IPv6Prefix, if empty, is assigned by the caller's IPAM policy
// before this is called — fabricd itself does not allocate prefixes out of
// a ULA pool, matching spec.md's silence on prefix-pool management.
type CreateVPCParams struct {
	ProjectID   string
	Name        string
	Description string
	IPv6Prefix  string
	DNSName     string
}

// CreateVPC implements create_vpc: claims a name, allocates a VNI (C1),
// creates the implicit System router, and writes the VPC row. Each claim is
// unwound if a later step fails, mirroring the compensating-action pattern
// hive/handlers/ec2/vpc/service_impl.go uses around its ENI/IP allocation.
func (s *Store) CreateVPC(ctx context.Context, actor string, p CreateVPCParams) (*model.VPC, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionCreateChild, authz.Resource{Type: "project", ID: p.ProjectID}); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	nameIdxKey := nameKey(p.ProjectID, p.Name)
	if _, err := store.TryCreateUnique(s.vpcNames, nameIdxKey, []byte(id)); err != nil {
		return nil, apierrors.AlreadyExists("vpc", p.Name)
	}

	vni, err := s.AllocateVNI(VNIReservedBelow, id)
	if err != nil {
		_ = store.Delete(s.vpcNames, nameIdxKey)
		return nil, err
	}

	now := time.Now()
	routerID := uuid.NewString()
	router := &model.Router{
		Timestamps: model.Timestamps{TimeCreated: now, TimeModified: now},
		ID:         routerID,
		VPCID:      id,
		Kind:       model.RouterKindSystem,
		Name:       "system",
	}
	if _, err := store.Put(s.routers, routerID, router); err != nil {
		_ = s.releaseVNI(vni)
		_ = store.Delete(s.vpcNames, nameIdxKey)
		return nil, apierrors.Internal(fmt.Errorf("create system router: %w", err))
	}

	vpc := &model.VPC{
		Timestamps:     model.Timestamps{TimeCreated: now, TimeModified: now},
		ID:             id,
		ProjectID:      p.ProjectID,
		Name:           p.Name,
		Description:    p.Description,
		VNI:            vni,
		IPv6Prefix:     p.IPv6Prefix,
		DNSName:        p.DNSName,
		SystemRouterID: routerID,
	}
	if _, err := store.Put(s.vpcs, id, vpc); err != nil {
		_ = store.Delete(s.routers, routerID)
		_ = s.releaseVNI(vni)
		_ = store.Delete(s.vpcNames, nameIdxKey)
		return nil, apierrors.Internal(fmt.Errorf("create vpc: %w", err))
	}

	return vpc, nil
}

// GetVPC fetches a live VPC by id.
func (s *Store) GetVPC(ctx context.Context, actor, id string) (*model.VPC, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionRead, authz.Resource{Type: "vpc", ID: id}); err != nil {
		return nil, err
	}
	vpc, _, err := store.Get[model.VPC](s.vpcs, id)
	if err != nil || !vpc.Live() {
		return nil, apierrors.NotFound("vpc", id)
	}
	return vpc, nil
}

// ListVPCs implements list_vpcs(project, page): every live VPC in a
// project, ordered by id or name per page.KeyColumn and bounded by
// page.Limit (spec.md §4.2, §9 "Polymorphism"). The returned cursor is
// empty once the last page has been reached.
func (s *Store) ListVPCs(ctx context.Context, actor, projectID string, page store.PageParams) ([]model.VPC, string, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionListChildren, authz.Resource{Type: "project", ID: projectID}); err != nil {
		return nil, "", err
	}
	all, err := store.ListLive[model.VPC](s.vpcs)
	if err != nil {
		return nil, "", err
	}
	out := make([]model.VPC, 0, len(all))
	for _, v := range all {
		if v.ProjectID == projectID {
			out = append(out, v)
		}
	}
	rows, next := store.Paginate(out, page,
		func(v model.VPC) string { return v.ID },
		func(v model.VPC) string { return v.Name },
	)
	return rows, next, nil
}

// UpdateVPCParams are the mutable fields of update_vpc. A nil pointer means
// "leave unchanged".
type UpdateVPCParams struct {
	Description *string
	DNSName     *string
}

// UpdateVPC applies a partial update under CAS retry.
func (s *Store) UpdateVPC(ctx context.Context, actor, id string, p UpdateVPCParams) (*model.VPC, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionModify, authz.Resource{Type: "vpc", ID: id}); err != nil {
		return nil, err
	}
	return store.WithRetry(ctx, store.DefaultRetry, func() (*model.VPC, error) {
		vpc, rev, err := store.Get[model.VPC](s.vpcs, id)
		if err != nil || !vpc.Live() {
			return nil, apierrors.NotFound("vpc", id)
		}
		if p.Description != nil {
			vpc.Description = *p.Description
		}
		if p.DNSName != nil {
			vpc.DNSName = *p.DNSName
		}
		vpc.TimeModified = time.Now()
		if _, err := store.CASUpdate(s.vpcs, id, rev, vpc); err != nil {
			return nil, apierrors.Conflict("vpc", id)
		}
		return vpc, nil
	})
}

// DeleteVPC implements delete_vpc: refuses while any live subnet still
// belongs to the VPC (spec.md §4.2 edge case), otherwise soft-deletes the
// row, releases its name and VNI claims and deletes its system router row.
// Routers and firewall rules are not checked. A revision conflict that
// outlasts the retries is reported as InvalidRequest.
//
// The "no live subnets" check is re-run inside the CAS retry loop against
// the same revision the CAS targets, rather than once up front: subnet_gen
// is bumped on the VPC row by every CreateSubnet/DeleteSubnet (subnet.go),
// so a sibling created between the scan and the CAS either is already
// visible to the rescan, or bumps subnet_gen out from under this attempt's
// revision and forces a retry that rescans — either way the race that would
// otherwise orphan a subnet (P3) is closed.
func (s *Store) DeleteVPC(ctx context.Context, actor, id string) error {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionDelete, authz.Resource{Type: "vpc", ID: id}); err != nil {
		return err
	}

	_, err := store.WithRetry(ctx, store.DefaultRetry, func() (struct{}, error) {
		vpc, rev, err := store.Get[model.VPC](s.vpcs, id)
		if err != nil || !vpc.Live() {
			return struct{}{}, apierrors.NotFound("vpc", id)
		}

		subnets, err := s.listLiveSubnetsByVPC(id)
		if err != nil {
			return struct{}{}, err
		}
		if len(subnets) > 0 {
			return struct{}{}, apierrors.InvalidRequest("vpc %s still has %d live subnet(s)", id, len(subnets))
		}

		now := time.Now()
		vpc.TimeDeleted = &now
		vpc.TimeModified = now
		if _, err := store.CASUpdate(s.vpcs, id, rev, vpc); err != nil {
			return struct{}{}, apierrors.Conflict("vpc", id)
		}
		_ = store.Delete(s.vpcNames, nameKey(vpc.ProjectID, vpc.Name))
		_ = s.releaseVNI(vpc.VNI)
		_ = store.Delete(s.routers, vpc.SystemRouterID)
		return struct{}{}, nil
	})
	if store.IsConflict(err) {
		return apierrors.InvalidRequest("deletion failed due to concurrent modification")
	}
	return err
}
