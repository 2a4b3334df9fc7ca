package resolve

import (
	"github.com/mulgadc/fabricd/fabric/model"
)

// Inventory is what the resolver's guest path (spec.md §4.5(a)) needs:
// Instance -> active Vmm -> Sled.
type Inventory interface {
	Instance(id string) (*model.Instance, error)
	Vmm(id string) (*model.Vmm, error)
	Sled(id string) (*model.Sled, error)
}

// NICSource is what the resolver needs from the VPC store: every network
// interface attached to a VPC, to find both the guest instances and the
// service zones that participate in it.
type NICSource interface {
	ListNetworkInterfacesByVPC(vpcID string) ([]model.NetworkInterface, error)
}

// Resolver implements vpc_resolve_to_sleds (component C5), joining the
// guest path (hive/services/vpcd/topology.go's Instance->Vmm->Sled walk,
// generalized off OVN southbound state) with the service path (Zone
// membership in the current blueprint target), intersected with the C6
// sled eligibility filter.
type Resolver struct {
	Inventory  Inventory
	NICs       NICSource
	Blueprints BlueprintReader
}

// ResolveVPCToSleds returns the set of sled IDs that must receive this
// VPC's network configuration: every sled hosting a live guest instance
// with a NIC in the VPC, plus every sled hosting an InService or Quiesced
// zone with a service NIC in the VPC, restricted to sleds SledEligible allows
// (spec.md §4.6) and, if allowlist is non-empty, further restricted to it
// (used by callers pushing to a specific subset of the rack, e.g. during a
// rolling upgrade).
func (r *Resolver) ResolveVPCToSleds(vpcID string, allowlist []string) (map[string]bool, error) {
	nics, err := r.NICs.ListNetworkInterfacesByVPC(vpcID)
	if err != nil {
		return nil, err
	}

	_, bp, err := r.Blueprints.CurrentTarget()
	if err != nil {
		return nil, err
	}
	zoneSled := make(map[string]string)
	zoneDisposition := make(map[string]model.ZoneDisposition)
	for sledID, zones := range bp.ZonesBySled {
		for _, z := range zones {
			zoneSled[z.ID] = sledID
			zoneDisposition[z.ID] = z.Disposition
		}
	}

	var allow map[string]bool
	if len(allowlist) > 0 {
		allow = make(map[string]bool, len(allowlist))
		for _, id := range allowlist {
			allow[id] = true
		}
	}

	sleds := make(map[string]bool)
	considerSled := func(sledID string) error {
		if sledID == "" {
			return nil
		}
		if allow != nil && !allow[sledID] {
			return nil
		}
		sled, err := r.Inventory.Sled(sledID)
		if err != nil {
			return nil // a sled that has vanished from inventory simply contributes nothing
		}
		if SledEligible(*sled) {
			sleds[sledID] = true
		}
		return nil
	}

	for _, nic := range nics {
		switch nic.Kind {
		case model.NetworkInterfaceKindInstance:
			inst, err := r.Inventory.Instance(nic.ParentID)
			if err != nil || !inst.Live() || inst.ActiveVmmID == "" {
				continue // no running Vmm: nothing to push to for this instance
			}
			vmm, err := r.Inventory.Vmm(inst.ActiveVmmID)
			if err != nil || !vmm.Live() {
				continue
			}
			if err := considerSled(vmm.SledID); err != nil {
				return nil, err
			}
		case model.NetworkInterfaceKindService:
			disp, ok := zoneDisposition[nic.ParentID]
			if !ok || !ZoneEligible(model.Zone{Disposition: disp}) {
				continue // zone not part of the current target, or expunged
			}
			if err := considerSled(zoneSled[nic.ParentID]); err != nil {
				return nil, err
			}
		}
	}

	return sleds, nil
}
