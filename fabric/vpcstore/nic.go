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

// CreateNetworkInterfaceParams are the caller-supplied fields of
// create_network_interface. Grounded in hive/handlers/ec2/vpc/eni.go's ENI
// allocation, generalized to also cover the Service-kind NICs a Zone gets
// when it owns external networking (spec.md §4.5(b)).
type CreateNetworkInterfaceParams struct {
	Kind     model.NetworkInterfaceKind
	SubnetID string
	VPCID    string
	ParentID string
	IP       string
	Slot     int64
}

// CreateNetworkInterface implements create_network_interface. The
// (parent, slot) uniqueness invariant (spec.md §3) is enforced the same way
// as every other name-uniqueness constraint in this package: a
// TryCreateUnique claim on the pair before the row itself is written,
// unwound if the write fails.
func (s *Store) CreateNetworkInterface(ctx context.Context, actor string, p CreateNetworkInterfaceParams) (*model.NetworkInterface, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionCreateChild, authz.Resource{Type: "subnet", ID: p.SubnetID}); err != nil {
		return nil, err
	}
	if _, _, err := store.Get[model.Subnet](s.subnets, p.SubnetID); err != nil {
		return nil, apierrors.NotFound("subnet", p.SubnetID)
	}

	id := uuid.NewString()
	slotIdxKey := slotKey(p.ParentID, p.Slot)
	if _, err := store.TryCreateUnique(s.nicSlots, slotIdxKey, []byte(id)); err != nil {
		return nil, apierrors.AlreadyExists("network_interface slot", fmt.Sprintf("%s/%d", p.ParentID, p.Slot))
	}

	now := time.Now()
	nic := &model.NetworkInterface{
		Timestamps: model.Timestamps{TimeCreated: now, TimeModified: now},
		ID:         id,
		Kind:       p.Kind,
		SubnetID:   p.SubnetID,
		VPCID:      p.VPCID,
		ParentID:   p.ParentID,
		IP:         p.IP,
		Slot:       p.Slot,
	}
	if _, err := store.Put(s.nics, id, nic); err != nil {
		_ = store.Delete(s.nicSlots, slotIdxKey)
		return nil, apierrors.Internal(err)
	}
	return nic, nil
}

// GetNetworkInterface fetches a live NIC by id.
func (s *Store) GetNetworkInterface(ctx context.Context, actor, id string) (*model.NetworkInterface, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionRead, authz.Resource{Type: "network_interface", ID: id}); err != nil {
		return nil, err
	}
	n, _, err := store.Get[model.NetworkInterface](s.nics, id)
	if err != nil || !n.Live() {
		return nil, apierrors.NotFound("network_interface", id)
	}
	return n, nil
}

// ListNetworkInterfacesByParent lists every live NIC belonging to an
// instance or zone. The Fabric Resolver does not call it; it lists NICs
// with ListNetworkInterfacesByVPC.
func (s *Store) ListNetworkInterfacesByParent(parentID string) ([]model.NetworkInterface, error) {
	all, err := store.ListLive[model.NetworkInterface](s.nics)
	if err != nil {
		return nil, err
	}
	out := make([]model.NetworkInterface, 0, len(all))
	for _, n := range all {
		if n.ParentID == parentID {
			out = append(out, n)
		}
	}
	return out, nil
}

// ListSubnetNICs implements list_subnet_nics(subnet, page): every live NIC
// in a subnet, ordered by id (NetworkInterface has no name to page by) and
// bounded by page.Limit (spec.md §4.2, §9 "Polymorphism").
func (s *Store) ListSubnetNICs(ctx context.Context, actor, subnetID string, page store.PageParams) ([]model.NetworkInterface, string, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionListChildren, authz.Resource{Type: "subnet", ID: subnetID}); err != nil {
		return nil, "", err
	}
	all, err := store.ListLive[model.NetworkInterface](s.nics)
	if err != nil {
		return nil, "", err
	}
	out := make([]model.NetworkInterface, 0, len(all))
	for _, n := range all {
		if n.SubnetID == subnetID {
			out = append(out, n)
		}
	}
	idOf := func(n model.NetworkInterface) string { return n.ID }
	rows, next := store.Paginate(out, page, idOf, idOf)
	return rows, next, nil
}

// ListNetworkInterfacesByVPC lists every live NIC in a VPC, guest and
// service alike — the Fabric Resolver's entry point into both paths.
func (s *Store) ListNetworkInterfacesByVPC(vpcID string) ([]model.NetworkInterface, error) {
	all, err := store.ListLive[model.NetworkInterface](s.nics)
	if err != nil {
		return nil, err
	}
	out := make([]model.NetworkInterface, 0, len(all))
	for _, n := range all {
		if n.VPCID == vpcID {
			out = append(out, n)
		}
	}
	return out, nil
}

// DeleteNetworkInterface implements delete_network_interface.
func (s *Store) DeleteNetworkInterface(ctx context.Context, actor, id string) error {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionDelete, authz.Resource{Type: "network_interface", ID: id}); err != nil {
		return err
	}
	n, rev, err := store.Get[model.NetworkInterface](s.nics, id)
	if err != nil || !n.Live() {
		return apierrors.NotFound("network_interface", id)
	}
	now := time.Now()
	n.TimeDeleted = &now
	n.TimeModified = now
	if _, err := store.CASUpdate(s.nics, id, rev, n); err != nil {
		return apierrors.Conflict("network_interface", id)
	}
	_ = store.Delete(s.nicSlots, slotKey(n.ParentID, n.Slot))
	return nil
}
