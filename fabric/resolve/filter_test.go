package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mulgadc/fabricd/fabric/model"
)

// TestSledFilterTruthTable asserts the full policy/state x filter truth
// table from spec.md §4.6 (scenario S6) for every (policy, state, filter)
// combination.
func TestSledFilterTruthTable(t *testing.T) {
	policies := []model.SledPolicy{
		model.SledPolicyInServiceProvisionable,
		model.SledPolicyInServiceNonProvisionable,
		model.SledPolicyExpunged,
	}
	states := []model.SledState{
		model.SledStateActive,
		model.SledStateDecommissioned,
	}
	filters := []SledFilter{
		FilterCommissioned,
		FilterDecommissioned,
		FilterDiscretionary,
		FilterInService,
		FilterQueryInventory,
		FilterReservationCreate,
		FilterVpcFirewall,
	}

	// want[policy][filter] and want[state][filter] encode spec.md §4.6's two
	// tables; a sled matches iff both agree.
	policyWant := map[model.SledPolicy]map[SledFilter]bool{
		model.SledPolicyInServiceProvisionable: {
			FilterCommissioned: true, FilterDecommissioned: false, FilterDiscretionary: true,
			FilterInService: true, FilterQueryInventory: true, FilterReservationCreate: true, FilterVpcFirewall: true,
		},
		model.SledPolicyInServiceNonProvisionable: {
			FilterCommissioned: true, FilterDecommissioned: false, FilterDiscretionary: false,
			FilterInService: true, FilterQueryInventory: true, FilterReservationCreate: false, FilterVpcFirewall: true,
		},
		model.SledPolicyExpunged: {
			FilterCommissioned: true, FilterDecommissioned: true, FilterDiscretionary: false,
			FilterInService: false, FilterQueryInventory: false, FilterReservationCreate: false, FilterVpcFirewall: false,
		},
	}
	stateWant := map[model.SledState]map[SledFilter]bool{
		model.SledStateActive: {
			FilterCommissioned: true, FilterDecommissioned: false, FilterDiscretionary: true,
			FilterInService: true, FilterQueryInventory: true, FilterReservationCreate: true, FilterVpcFirewall: true,
		},
		model.SledStateDecommissioned: {
			FilterCommissioned: false, FilterDecommissioned: true, FilterDiscretionary: false,
			FilterInService: false, FilterQueryInventory: false, FilterReservationCreate: false, FilterVpcFirewall: false,
		},
	}

	for _, policy := range policies {
		for _, state := range states {
			for _, filter := range filters {
				want := policyWant[policy][filter] && stateWant[state][filter]
				sled := model.Sled{ID: "sled-1", Policy: policy, State: state}
				got := filter.Matches(sled)
				assert.Equal(t, want, got, "policy=%s state=%s filter=%s", policy, state, filter)
			}
		}
	}
}

func TestSledEligibleIsVpcFirewallFilter(t *testing.T) {
	cases := []struct {
		name   string
		sled   model.Sled
		expect bool
	}{
		{"provisionable+active", model.Sled{Policy: model.SledPolicyInServiceProvisionable, State: model.SledStateActive}, true},
		{"non-provisionable+active", model.Sled{Policy: model.SledPolicyInServiceNonProvisionable, State: model.SledStateActive}, true},
		{"provisionable+decommissioned", model.Sled{Policy: model.SledPolicyInServiceProvisionable, State: model.SledStateDecommissioned}, false},
		{"expunged+active", model.Sled{Policy: model.SledPolicyExpunged, State: model.SledStateActive}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expect, SledEligible(c.sled))
			assert.Equal(t, c.expect, FilterVpcFirewall.Matches(c.sled))
		})
	}
}

func TestDiskZpoolFilter(t *testing.T) {
	cases := []struct {
		name   string
		policy model.SledPolicy
		state  model.SledState
		filter DiskZpoolFilter
		expect bool
	}{
		{"all always matches", model.SledPolicyExpunged, model.SledStateDecommissioned, FilterDiskZpoolAll, true},
		{"in-service matches active+provisionable", model.SledPolicyInServiceProvisionable, model.SledStateActive, FilterDiskZpoolInService, true},
		{"in-service matches active+non-provisionable", model.SledPolicyInServiceNonProvisionable, model.SledStateActive, FilterDiskZpoolInService, true},
		{"in-service rejects decommissioned", model.SledPolicyInServiceProvisionable, model.SledStateDecommissioned, FilterDiskZpoolInService, false},
		{"in-service rejects expunged", model.SledPolicyExpunged, model.SledStateActive, FilterDiskZpoolInService, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expect, c.filter.Matches(c.policy, c.state))
		})
	}
}
