package vpcstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mulgadc/fabricd/fabric/apierrors"
	"github.com/mulgadc/fabricd/fabric/authz"
	"github.com/mulgadc/fabricd/fabric/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	opts := &server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	}
	ns, err := server.NewServer(opts)
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second))
	t.Cleanup(ns.Shutdown)

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	js, err := nc.JetStream()
	require.NoError(t, err)

	s, err := New(js, nil)
	require.NoError(t, err)
	return s
}

func TestCreateVPCAssignsVNIAndSystemRouter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	vpc, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1025), vpc.VNI)
	assert.NotEmpty(t, vpc.SystemRouterID)

	router, err := s.GetRouter(ctx, "alice", vpc.SystemRouterID)
	require.NoError(t, err)
	assert.Equal(t, "system", router.Name)

	_, err = s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindAlreadyExists, apiErr.Kind)
}

// TestVNIWindowedAllocation exercises the windowed scan end to end: fill
// window 0 exactly ([2048, 4096)) then observe the raw single-window
// primitive report exhaustion while the higher-level allocator advances to
// the next window, matching spec.md §4.1's tie-break rule.
func TestVNIWindowedAllocation(t *testing.T) {
	s := newTestStore(t)
	s.VNIStep = 2048
	s.MaxVNISearchWindows = 8

	seed := int64(2048)
	windowSize := 2048

	var lastVNI int64
	for i := 0; i < windowSize+1; i++ {
		vni, err := s.AllocateVNI(seed, fmt.Sprintf("vpc-%d", i))
		require.NoError(t, err)
		lastVNI = vni
	}
	assert.Equal(t, seed+int64(windowSize), lastVNI) // first VPC of window 1

	vni, ok, err := s.createVPCRawInWindow(vniWindow{lo: seed, hi: seed + int64(windowSize)}, "vpc-overflow")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, vni)

	next, err := s.AllocateVNI(seed, "vpc-next")
	require.NoError(t, err)
	assert.Equal(t, seed+int64(windowSize)+1, next)
}

func TestCreateSubnetRejectsOverlap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	vpc, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	require.NoError(t, err)

	_, err = s.CreateSubnet(ctx, "alice", CreateSubnetParams{VPCID: vpc.ID, Name: "sub-a", IPv4Block: "10.0.0.0/24"})
	require.NoError(t, err)

	_, err = s.CreateSubnet(ctx, "alice", CreateSubnetParams{VPCID: vpc.ID, Name: "sub-b", IPv4Block: "10.0.0.128/25"})
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindOverlappingIPRange, apiErr.Kind)

	_, err = s.CreateSubnet(ctx, "alice", CreateSubnetParams{VPCID: vpc.ID, Name: "sub-c", IPv4Block: "10.0.1.0/24"})
	require.NoError(t, err)
}

func TestCreateSubnetRejectsPrefixAboveMaximum(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	vpc, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	require.NoError(t, err)

	_, err = s.CreateSubnet(ctx, "alice", CreateSubnetParams{VPCID: vpc.ID, Name: "sub-a", IPv4Block: "10.0.0.0/27"})
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindInvalidRequest, apiErr.Kind)
}

func TestDeleteVPCRefusesWithLiveSubnet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	vpc, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	require.NoError(t, err)
	_, err = s.CreateSubnet(ctx, "alice", CreateSubnetParams{VPCID: vpc.ID, Name: "sub-a", IPv4Block: "10.0.0.0/24"})
	require.NoError(t, err)

	err = s.DeleteVPC(ctx, "alice", vpc.ID)
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindInvalidRequest, apiErr.Kind)

	require.NoError(t, s.DeleteSubnet(ctx, "alice", func() string {
		subs, _, _ := s.ListSubnets(ctx, "alice", vpc.ID, store.PageParams{})
		return subs[0].ID
	}()))
	require.NoError(t, s.DeleteVPC(ctx, "alice", vpc.ID))

	_, err = s.GetVPC(ctx, "alice", vpc.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindNotFound, apiErr.Kind)
}

func TestDefaultRouteUniquePerRouter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	vpc, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	require.NoError(t, err)

	_, err = s.CreateRoute(ctx, "alice", CreateRouteParams{
		RouterID: vpc.SystemRouterID, Kind: "default", Name: "r1", Target: "inetgw", Destination: "0.0.0.0/0",
	})
	require.NoError(t, err)

	_, err = s.CreateRoute(ctx, "alice", CreateRouteParams{
		RouterID: vpc.SystemRouterID, Kind: "default", Name: "r2", Target: "inetgw", Destination: "0.0.0.0/0",
	})
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindConflict, apiErr.Kind)
}

func TestReplaceFirewallRulesIsAtomicWholeSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	vpc, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	require.NoError(t, err)

	rules, err := s.ReplaceFirewallRules(ctx, "alice", vpc.ID, []FirewallRuleInput{
		{Name: "allow-ssh", Status: "enabled", Direction: "inbound", Action: "allow", Priority: 10},
	})
	require.NoError(t, err)
	require.Len(t, rules, 1)

	rules, err = s.ReplaceFirewallRules(ctx, "alice", vpc.ID, []FirewallRuleInput{
		{Name: "allow-http", Status: "enabled", Direction: "inbound", Action: "allow", Priority: 20},
		{Name: "deny-all", Status: "enabled", Direction: "inbound", Action: "deny", Priority: 100},
	})
	require.NoError(t, err)
	require.Len(t, rules, 2)

	live, err := s.ListFirewallRules(ctx, "alice", vpc.ID)
	require.NoError(t, err)
	assert.Len(t, live, 2)
}

func TestListVPCsPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"vpc-c", "vpc-a", "vpc-b"} {
		_, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: name})
		require.NoError(t, err)
	}

	page1, cursor, err := s.ListVPCs(ctx, "alice", "proj-1", store.PageParams{KeyColumn: "name", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, []string{"vpc-a", "vpc-b"}, []string{page1[0].Name, page1[1].Name})
	assert.Equal(t, "vpc-b", cursor)

	page2, cursor, err := s.ListVPCs(ctx, "alice", "proj-1", store.PageParams{KeyColumn: "name", Cursor: cursor, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "vpc-c", page2[0].Name)
	assert.Empty(t, cursor)
}

func TestListFirewallRulesOrderedByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	vpc, err := s.CreateVPC(ctx, "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	require.NoError(t, err)

	_, err = s.ReplaceFirewallRules(ctx, "alice", vpc.ID, []FirewallRuleInput{
		{Name: "zeta", Status: "enabled", Direction: "inbound", Action: "allow", Priority: 10},
		{Name: "alpha", Status: "enabled", Direction: "inbound", Action: "allow", Priority: 20},
		{Name: "mike", Status: "enabled", Direction: "inbound", Action: "allow", Priority: 30},
	})
	require.NoError(t, err)

	live, err := s.ListFirewallRules(ctx, "alice", vpc.ID)
	require.NoError(t, err)
	require.Len(t, live, 3)
	assert.Equal(t, []string{"alpha", "mike", "zeta"}, []string{live[0].Name, live[1].Name, live[2].Name})
}

func TestAuthzDenyShortCircuits(t *testing.T) {
	s := newTestStore(t)
	s.Authorizer = authz.DenyAuthorizer{}
	_, err := s.CreateVPC(context.Background(), "alice", CreateVPCParams{ProjectID: "proj-1", Name: "vpc-a"})
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierrors.KindUnauthorized, apiErr.Kind)
}
