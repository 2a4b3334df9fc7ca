package vpcstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mulgadc/fabricd/fabric/apierrors"
	"github.com/mulgadc/fabricd/fabric/model"
)

func TestCreateNetworkInterfaceRejectsDuplicateSlot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	vpc, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	require.NoError(t, err)
	sub, err := s.CreateSubnet(ctx, "alice", CreateSubnetParams{VPCID: vpc.ID, Name: "sub-a", IPv4Block: "10.0.0.0/24"})
	require.NoError(t, err)

	_, err = s.CreateNetworkInterface(ctx, "alice", CreateNetworkInterfaceParams{
		Kind: model.NetworkInterfaceKindInstance, SubnetID: sub.ID, VPCID: vpc.ID, ParentID: "inst-1", IP: "10.0.0.5", Slot: 0,
	})
	require.NoError(t, err)

	_, err = s.CreateNetworkInterface(ctx, "alice", CreateNetworkInterfaceParams{
		Kind: model.NetworkInterfaceKindInstance, SubnetID: sub.ID, VPCID: vpc.ID, ParentID: "inst-1", IP: "10.0.0.6", Slot: 0,
	})
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindAlreadyExists, apiErr.Kind)

	// A different slot on the same parent is fine.
	_, err = s.CreateNetworkInterface(ctx, "alice", CreateNetworkInterfaceParams{
		Kind: model.NetworkInterfaceKindInstance, SubnetID: sub.ID, VPCID: vpc.ID, ParentID: "inst-1", IP: "10.0.0.7", Slot: 1,
	})
	require.NoError(t, err)
}

func TestCreateNetworkInterfaceAllowsSameSlotOnDifferentParent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	vpc, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	require.NoError(t, err)
	sub, err := s.CreateSubnet(ctx, "alice", CreateSubnetParams{VPCID: vpc.ID, Name: "sub-a", IPv4Block: "10.0.0.0/24"})
	require.NoError(t, err)

	_, err = s.CreateNetworkInterface(ctx, "alice", CreateNetworkInterfaceParams{
		Kind: model.NetworkInterfaceKindInstance, SubnetID: sub.ID, VPCID: vpc.ID, ParentID: "inst-1", IP: "10.0.0.5", Slot: 0,
	})
	require.NoError(t, err)

	_, err = s.CreateNetworkInterface(ctx, "alice", CreateNetworkInterfaceParams{
		Kind: model.NetworkInterfaceKindInstance, SubnetID: sub.ID, VPCID: vpc.ID, ParentID: "inst-2", IP: "10.0.0.6", Slot: 0,
	})
	require.NoError(t, err)
}

func TestDeleteNetworkInterfaceFreesSlotForReuse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	vpc, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	require.NoError(t, err)
	sub, err := s.CreateSubnet(ctx, "alice", CreateSubnetParams{VPCID: vpc.ID, Name: "sub-a", IPv4Block: "10.0.0.0/24"})
	require.NoError(t, err)

	nic, err := s.CreateNetworkInterface(ctx, "alice", CreateNetworkInterfaceParams{
		Kind: model.NetworkInterfaceKindInstance, SubnetID: sub.ID, VPCID: vpc.ID, ParentID: "inst-1", IP: "10.0.0.5", Slot: 0,
	})
	require.NoError(t, err)
	require.NoError(t, s.DeleteNetworkInterface(ctx, "alice", nic.ID))

	_, err = s.CreateNetworkInterface(ctx, "alice", CreateNetworkInterfaceParams{
		Kind: model.NetworkInterfaceKindInstance, SubnetID: sub.ID, VPCID: vpc.ID, ParentID: "inst-1", IP: "10.0.0.6", Slot: 0,
	})
	require.NoError(t, err)
}
