package vpcstore

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/mulgadc/fabricd/fabric/apierrors"
	"github.com/mulgadc/fabricd/fabric/authz"
	"github.com/mulgadc/fabricd/fabric/model"
	"github.com/mulgadc/fabricd/fabric/store"
)

// CreateSubnetParams are the caller-supplied fields of create_subnet.
type CreateSubnetParams struct {
	VPCID     string
	Name      string
	IPv4Block string
	IPv6Block string
}

func parseBlock(cidr string) (*net.IPNet, error) {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, apierrors.InvalidRequest("invalid CIDR %q: %v", cidr, err)
	}
	return ipnet, nil
}

func blocksOverlap(a, b *net.IPNet) bool {
	return a.Contains(b.IP) || b.Contains(a.IP)
}

func validateIPv4Block(ipnet *net.IPNet) error {
	ones, bits := ipnet.Mask.Size()
	if bits != 32 {
		return apierrors.InvalidRequest("ipv4 block must be an IPv4 CIDR")
	}
	if ones > MaxIPv4SubnetPrefix {
		return apierrors.InvalidRequest("ipv4 prefix /%d narrower than the configured maximum /%d", ones, MaxIPv4SubnetPrefix)
	}
	hostBits := bits - ones
	if (int64(1)<<uint(hostBits))-ReservedSubnetAddresses < 1 {
		return apierrors.InvalidRequest("ipv4 block too small to leave usable addresses after %d reserved", ReservedSubnetAddresses)
	}
	return nil
}

// CreateSubnet implements create_subnet (component C2, conflict check C3).
// The overlap scan and the insert are serialized against concurrent
// siblings via a CollectionInsert: the parent VPC's subnet_gen is CAS-bumped
// using the revision observed before the scan, so a sibling inserted mid-scan
// is caught by the CAS and the whole attempt retries rather than racing past
// it. This reproduces, with a retry loop instead of a single SQL statement,
// the atomicity the relational design gets from one transaction (SPEC_FULL
// §4.0).
func (s *Store) CreateSubnet(ctx context.Context, actor string, p CreateSubnetParams) (*model.Subnet, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionCreateChild, authz.Resource{Type: "vpc", ID: p.VPCID}); err != nil {
		return nil, err
	}

	v4, err := parseBlock(p.IPv4Block)
	if err != nil {
		return nil, err
	}
	if err := validateIPv4Block(v4); err != nil {
		return nil, err
	}
	var v6 *net.IPNet
	if p.IPv6Block != "" {
		v6, err = parseBlock(p.IPv6Block)
		if err != nil {
			return nil, err
		}
	}

	return store.WithRetry(ctx, store.DefaultRetry, func() (*model.Subnet, error) {
		vpc, vpcRev, err := store.Get[model.VPC](s.vpcs, p.VPCID)
		if err != nil || !vpc.Live() {
			return nil, apierrors.NotFound("vpc", p.VPCID)
		}

		siblings, err := s.listLiveSubnetsByVPC(p.VPCID)
		if err != nil {
			return nil, err
		}
		for _, sib := range siblings {
			sib4, err := parseBlock(sib.IPv4Block)
			if err == nil && blocksOverlap(v4, sib4) {
				return nil, apierrors.OverlappingIPRange("ipv4")
			}
			if v6 != nil && sib.IPv6Block != "" {
				sib6, err := parseBlock(sib.IPv6Block)
				if err == nil && blocksOverlap(v6, sib6) {
					return nil, apierrors.OverlappingIPRange("ipv6")
				}
			}
		}

		id := uuid.NewString()
		nameIdxKey := nameKey(p.VPCID, p.Name)
		if _, err := store.TryCreateUnique(s.subnetNames, nameIdxKey, []byte(id)); err != nil {
			return nil, apierrors.AlreadyExists("subnet", p.Name)
		}

		now := time.Now()
		subnet := &model.Subnet{
			Timestamps: model.Timestamps{TimeCreated: now, TimeModified: now},
			ID:         id,
			VPCID:      p.VPCID,
			Name:       p.Name,
			IPv4Block:  p.IPv4Block,
			IPv6Block:  p.IPv6Block,
		}
		if _, err := store.Put(s.subnets, id, subnet); err != nil {
			_ = store.Delete(s.subnetNames, nameIdxKey)
			return nil, apierrors.Internal(err)
		}

		vpc.SubnetGen++
		vpc.TimeModified = now
		if _, err := store.CASUpdate(s.vpcs, p.VPCID, vpcRev, vpc); err != nil {
			// A sibling insert raced us between the scan and here; undo
			// this insert and let the retry wrapper rescan.
			_ = store.Delete(s.subnets, id)
			_ = store.Delete(s.subnetNames, nameIdxKey)
			return nil, apierrors.Conflict("vpc", p.VPCID)
		}

		return subnet, nil
	})
}

func (s *Store) listLiveSubnetsByVPC(vpcID string) ([]model.Subnet, error) {
	all, err := store.ListLive[model.Subnet](s.subnets)
	if err != nil {
		return nil, err
	}
	out := make([]model.Subnet, 0, len(all))
	for _, sub := range all {
		if sub.VPCID == vpcID {
			out = append(out, sub)
		}
	}
	return out, nil
}

// GetSubnet fetches a live subnet by id.
func (s *Store) GetSubnet(ctx context.Context, actor, id string) (*model.Subnet, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionRead, authz.Resource{Type: "subnet", ID: id}); err != nil {
		return nil, err
	}
	sub, _, err := store.Get[model.Subnet](s.subnets, id)
	if err != nil || !sub.Live() {
		return nil, apierrors.NotFound("subnet", id)
	}
	return sub, nil
}

// ListSubnets implements the subnet analogue of list_vpcs(project, page):
// every live subnet of a VPC, ordered by id or name per page.KeyColumn and
// bounded by page.Limit (spec.md §4.2, §9 "Polymorphism").
func (s *Store) ListSubnets(ctx context.Context, actor, vpcID string, page store.PageParams) ([]model.Subnet, string, error) {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionListChildren, authz.Resource{Type: "vpc", ID: vpcID}); err != nil {
		return nil, "", err
	}
	all, err := s.listLiveSubnetsByVPC(vpcID)
	if err != nil {
		return nil, "", err
	}
	rows, next := store.Paginate(all, page,
		func(sub model.Subnet) string { return sub.ID },
		func(sub model.Subnet) string { return sub.Name },
	)
	return rows, next, nil
}

// DeleteSubnet implements delete_subnet: refuses while any live network
// interface still lives in the subnet, otherwise soft-deletes it and bumps
// the parent VPC's subnet_gen so concurrent creators observe the freed
// space.
func (s *Store) DeleteSubnet(ctx context.Context, actor, id string) error {
	if err := s.Authorizer.Authorize(ctx, actor, authz.ActionDelete, authz.Resource{Type: "subnet", ID: id}); err != nil {
		return err
	}

	nics, err := store.ListLive[model.NetworkInterface](s.nics)
	if err != nil {
		return err
	}
	for _, n := range nics {
		if n.SubnetID == id {
			return apierrors.InvalidRequest("subnet %s still has live network interfaces", id)
		}
	}

	_, err = store.WithRetry(ctx, store.DefaultRetry, func() (struct{}, error) {
		sub, rev, err := store.Get[model.Subnet](s.subnets, id)
		if err != nil || !sub.Live() {
			return struct{}{}, apierrors.NotFound("subnet", id)
		}
		vpc, vpcRev, err := store.Get[model.VPC](s.vpcs, sub.VPCID)
		if err != nil {
			return struct{}{}, apierrors.CollectionNotFound("vpc", sub.VPCID)
		}

		now := time.Now()
		sub.TimeDeleted = &now
		sub.TimeModified = now
		if _, err := store.CASUpdate(s.subnets, id, rev, sub); err != nil {
			return struct{}{}, apierrors.Conflict("subnet", id)
		}

		vpc.SubnetGen++
		vpc.TimeModified = now
		if _, err := store.CASUpdate(s.vpcs, sub.VPCID, vpcRev, vpc); err != nil {
			return struct{}{}, apierrors.Conflict("vpc", sub.VPCID)
		}
		_ = store.Delete(s.subnetNames, nameKey(sub.VPCID, sub.Name))
		return struct{}{}, nil
	})
	if nf, ok := apierrors.AsCollectionNotFound(err); ok {
		return nf
	}
	if store.IsConflict(err) {
		return apierrors.InvalidRequest("deletion failed due to concurrent modification")
	}
	return err
}
