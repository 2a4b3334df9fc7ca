package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mulgadc/fabricd/fabric/model"
)

func TestSledEligible(t *testing.T) {
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
		})
	}
}

type fakeInventory struct {
	instances map[string]*model.Instance
	vmms      map[string]*model.Vmm
	sleds     map[string]*model.Sled
}

func (f *fakeInventory) Instance(id string) (*model.Instance, error) { return f.instances[id], nil }
func (f *fakeInventory) Vmm(id string) (*model.Vmm, error)            { return f.vmms[id], nil }
func (f *fakeInventory) Sled(id string) (*model.Sled, error)          { return f.sleds[id], nil }

type fakeNICs struct {
	byVPC map[string][]model.NetworkInterface
}

func (f *fakeNICs) ListNetworkInterfacesByVPC(vpcID string) ([]model.NetworkInterface, error) {
	return f.byVPC[vpcID], nil
}

type fakeBlueprints struct {
	target *model.BlueprintTarget
	bp     *model.Blueprint
}

func (f *fakeBlueprints) CurrentTarget() (*model.BlueprintTarget, *model.Blueprint, error) {
	return f.target, f.bp, nil
}

func TestResolveVPCToSledsGuestPath(t *testing.T) {
	inv := &fakeInventory{
		instances: map[string]*model.Instance{"inst-1": {ID: "inst-1", ActiveVmmID: "vmm-1"}},
		vmms:      map[string]*model.Vmm{"vmm-1": {ID: "vmm-1", SledID: "sled-1"}},
		sleds: map[string]*model.Sled{
			"sled-1": {ID: "sled-1", Policy: model.SledPolicyInServiceProvisionable, State: model.SledStateActive},
		},
	}
	nics := &fakeNICs{byVPC: map[string][]model.NetworkInterface{
		"vpc-1": {{Kind: model.NetworkInterfaceKindInstance, VPCID: "vpc-1", ParentID: "inst-1"}},
	}}
	bps := &fakeBlueprints{target: &model.BlueprintTarget{}, bp: &model.Blueprint{ZonesBySled: map[string][]model.Zone{}}}

	r := &Resolver{Inventory: inv, NICs: nics, Blueprints: bps}
	sleds, err := r.ResolveVPCToSleds("vpc-1", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"sled-1": true}, sleds)
}

func TestResolveVPCToSledsExcludesIneligibleSled(t *testing.T) {
	inv := &fakeInventory{
		instances: map[string]*model.Instance{"inst-1": {ID: "inst-1", ActiveVmmID: "vmm-1"}},
		vmms:      map[string]*model.Vmm{"vmm-1": {ID: "vmm-1", SledID: "sled-1"}},
		sleds: map[string]*model.Sled{
			"sled-1": {ID: "sled-1", Policy: model.SledPolicyExpunged, State: model.SledStateActive},
		},
	}
	nics := &fakeNICs{byVPC: map[string][]model.NetworkInterface{
		"vpc-1": {{Kind: model.NetworkInterfaceKindInstance, VPCID: "vpc-1", ParentID: "inst-1"}},
	}}
	bps := &fakeBlueprints{target: &model.BlueprintTarget{}, bp: &model.Blueprint{ZonesBySled: map[string][]model.Zone{}}}

	r := &Resolver{Inventory: inv, NICs: nics, Blueprints: bps}
	sleds, err := r.ResolveVPCToSleds("vpc-1", nil)
	require.NoError(t, err)
	assert.Empty(t, sleds)
}

func TestResolveVPCToSledsServicePath(t *testing.T) {
	inv := &fakeInventory{
		instances: map[string]*model.Instance{},
		vmms:      map[string]*model.Vmm{},
		sleds: map[string]*model.Sled{
			"sled-2": {ID: "sled-2", Policy: model.SledPolicyInServiceProvisionable, State: model.SledStateActive},
		},
	}
	nics := &fakeNICs{byVPC: map[string][]model.NetworkInterface{
		"vpc-1": {{Kind: model.NetworkInterfaceKindService, VPCID: "vpc-1", ParentID: "zone-1"}},
	}}
	bps := &fakeBlueprints{
		target: &model.BlueprintTarget{Version: 3},
		bp: &model.Blueprint{ZonesBySled: map[string][]model.Zone{
			"sled-2": {{ID: "zone-1", SledID: "sled-2", Disposition: model.ZoneDispositionInService}},
		}},
	}

	r := &Resolver{Inventory: inv, NICs: nics, Blueprints: bps}
	sleds, err := r.ResolveVPCToSleds("vpc-1", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"sled-2": true}, sleds)
}

// TestResolveVPCToSledsIncludesQuiescedZone matches spec scenario S5's last
// step: a quiesced zone is still part of the current target and must keep
// receiving network state, so its sled is returned (only Expunged zones are
// dropped — spec.md §4.5(b), original_source/nexus/db-queries/src/db/
// datastore/vpc.rs:1714-1742).
func TestResolveVPCToSledsIncludesQuiescedZone(t *testing.T) {
	inv := &fakeInventory{sleds: map[string]*model.Sled{
		"sled-2": {ID: "sled-2", Policy: model.SledPolicyInServiceProvisionable, State: model.SledStateActive},
	}}
	nics := &fakeNICs{byVPC: map[string][]model.NetworkInterface{
		"vpc-1": {{Kind: model.NetworkInterfaceKindService, VPCID: "vpc-1", ParentID: "zone-1"}},
	}}
	bps := &fakeBlueprints{
		target: &model.BlueprintTarget{Version: 3},
		bp: &model.Blueprint{ZonesBySled: map[string][]model.Zone{
			"sled-2": {{ID: "zone-1", SledID: "sled-2", Disposition: model.ZoneDispositionQuiesced}},
		}},
	}

	r := &Resolver{Inventory: inv, NICs: nics, Blueprints: bps}
	sleds, err := r.ResolveVPCToSleds("vpc-1", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"sled-2": true}, sleds)
}

func TestResolveVPCToSledsSkipsExpungedZone(t *testing.T) {
	inv := &fakeInventory{sleds: map[string]*model.Sled{
		"sled-2": {ID: "sled-2", Policy: model.SledPolicyInServiceProvisionable, State: model.SledStateActive},
	}}
	nics := &fakeNICs{byVPC: map[string][]model.NetworkInterface{
		"vpc-1": {{Kind: model.NetworkInterfaceKindService, VPCID: "vpc-1", ParentID: "zone-1"}},
	}}
	bps := &fakeBlueprints{
		target: &model.BlueprintTarget{Version: 3},
		bp: &model.Blueprint{ZonesBySled: map[string][]model.Zone{
			"sled-2": {{ID: "zone-1", SledID: "sled-2", Disposition: model.ZoneDispositionExpunged}},
		}},
	}

	r := &Resolver{Inventory: inv, NICs: nics, Blueprints: bps}
	sleds, err := r.ResolveVPCToSleds("vpc-1", nil)
	require.NoError(t, err)
	assert.Empty(t, sleds)
}

func TestResolveVPCToSledsHonorsAllowlist(t *testing.T) {
	inv := &fakeInventory{
		instances: map[string]*model.Instance{"inst-1": {ID: "inst-1", ActiveVmmID: "vmm-1"}},
		vmms:      map[string]*model.Vmm{"vmm-1": {ID: "vmm-1", SledID: "sled-1"}},
		sleds: map[string]*model.Sled{
			"sled-1": {ID: "sled-1", Policy: model.SledPolicyInServiceProvisionable, State: model.SledStateActive},
		},
	}
	nics := &fakeNICs{byVPC: map[string][]model.NetworkInterface{
		"vpc-1": {{Kind: model.NetworkInterfaceKindInstance, VPCID: "vpc-1", ParentID: "inst-1"}},
	}}
	bps := &fakeBlueprints{target: &model.BlueprintTarget{}, bp: &model.Blueprint{ZonesBySled: map[string][]model.Zone{}}}

	r := &Resolver{Inventory: inv, NICs: nics, Blueprints: bps}
	sleds, err := r.ResolveVPCToSleds("vpc-1", []string{"sled-9"})
	require.NoError(t, err)
	assert.Empty(t, sleds)
}
