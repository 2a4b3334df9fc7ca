// Package resolve implements the Fabric Resolver (spec.md §4.5, component
// C5) and its sled eligibility filter (§4.6, component C6). Grounded in
// hive/services/vpcd/topology.go, which already walks sled/zone placement
// to build the OVN chassis topology; resolve generalizes that walk into a
// pure function over Instance/Vmm/Zone/Blueprint rows instead of OVN
// southbound state.
package resolve

import "github.com/mulgadc/fabricd/fabric/model"

// SledFilter is one column of the policy/state truth table in spec.md §4.6,
// mirrored from original_source/nexus/types/src/deployment/planning_input.rs's
// SledFilter enum.
type SledFilter string

const (
	FilterCommissioned      SledFilter = "commissioned"
	FilterDecommissioned    SledFilter = "decommissioned"
	FilterDiscretionary     SledFilter = "discretionary"
	FilterInService         SledFilter = "in_service"
	FilterQueryInventory    SledFilter = "query_inventory"
	FilterReservationCreate SledFilter = "reservation_create"
	FilterVpcFirewall       SledFilter = "vpc_firewall"
)

// policyTable is spec.md §4.6's policy x filter truth table.
var policyTable = map[model.SledPolicy]map[SledFilter]bool{
	model.SledPolicyInServiceProvisionable: {
		FilterCommissioned:      true,
		FilterDecommissioned:    false,
		FilterDiscretionary:     true,
		FilterInService:         true,
		FilterQueryInventory:    true,
		FilterReservationCreate: true,
		FilterVpcFirewall:       true,
	},
	model.SledPolicyInServiceNonProvisionable: {
		FilterCommissioned:      true,
		FilterDecommissioned:    false,
		FilterDiscretionary:     false,
		FilterInService:         true,
		FilterQueryInventory:    true,
		FilterReservationCreate: false,
		FilterVpcFirewall:       true,
	},
	model.SledPolicyExpunged: {
		FilterCommissioned:      true,
		FilterDecommissioned:    true,
		FilterDiscretionary:     false,
		FilterInService:         false,
		FilterQueryInventory:    false,
		FilterReservationCreate: false,
		FilterVpcFirewall:       false,
	},
}

// stateTable is spec.md §4.6's state x filter truth table.
var stateTable = map[model.SledState]map[SledFilter]bool{
	model.SledStateActive: {
		FilterCommissioned:      true,
		FilterDecommissioned:    false,
		FilterDiscretionary:     true,
		FilterInService:         true,
		FilterQueryInventory:    true,
		FilterReservationCreate: true,
		FilterVpcFirewall:       true,
	},
	model.SledStateDecommissioned: {
		FilterCommissioned:      false,
		FilterDecommissioned:    true,
		FilterDiscretionary:     false,
		FilterInService:         false,
		FilterQueryInventory:    false,
		FilterReservationCreate: false,
		FilterVpcFirewall:       false,
	},
}

// matchesPolicy reports whether policy satisfies filter (policyTable column).
func (f SledFilter) matchesPolicy(policy model.SledPolicy) bool {
	row, ok := policyTable[policy]
	return ok && row[f]
}

// matchesState reports whether state satisfies filter (stateTable column).
func (f SledFilter) matchesState(state model.SledState) bool {
	row, ok := stateTable[state]
	return ok && row[f]
}

// Matches reports whether a sled satisfies filter: both its policy.matches
// and state.matches must hold (spec.md §4.6's "A sled matches a filter iff
// both policy.matches(filter) and state.matches(filter) hold").
func (f SledFilter) Matches(s model.Sled) bool {
	return f.matchesPolicy(s.Policy) && f.matchesState(s.State)
}

// SledEligible implements the Fabric Resolver's VpcFirewall sled filter
// (spec.md §4.5/§4.6): a sled may receive VPC firewall state only while it
// matches FilterVpcFirewall.
func SledEligible(s model.Sled) bool {
	return FilterVpcFirewall.Matches(s)
}

// FilterEligibleSleds narrows sleds to the ones SledEligible allows.
func FilterEligibleSleds(sleds []model.Sled) []model.Sled {
	out := make([]model.Sled, 0, len(sleds))
	for _, s := range sleds {
		if SledEligible(s) {
			out = append(out, s)
		}
	}
	return out
}

// ZoneEligible mirrors SledEligible for the service path: zones the current
// blueprint target disposes as InService or Quiesced still carry live
// traffic and must receive network state; only Expunged zones are excluded
// (spec.md §4.5(b)).
func ZoneEligible(z model.Zone) bool {
	return z.Disposition == model.ZoneDispositionInService || z.Disposition == model.ZoneDispositionQuiesced
}

// DiskZpoolFilter is the second, independent lattice of spec.md §4.6: two
// filters over a disk/zpool's own (policy, state), kept as a distinct type
// from SledFilter per §4.6's "using two tables... is deliberate" rationale.
type DiskZpoolFilter string

const (
	// FilterDiskZpoolAll always matches.
	FilterDiskZpoolAll DiskZpoolFilter = "all"
	// FilterDiskZpoolInService matches iff policy = InService AND state = Active.
	FilterDiskZpoolInService DiskZpoolFilter = "in_service"
)

// Matches implements the Disk/Zpool lattice: All is always true; InService
// holds iff policy is InService and state is Active.
func (f DiskZpoolFilter) Matches(policy model.SledPolicy, state model.SledState) bool {
	switch f {
	case FilterDiskZpoolAll:
		return true
	case FilterDiskZpoolInService:
		inService := policy == model.SledPolicyInServiceProvisionable || policy == model.SledPolicyInServiceNonProvisionable
		return inService && state == model.SledStateActive
	}
	return false
}
