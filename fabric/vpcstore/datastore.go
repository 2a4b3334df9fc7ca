// Package vpcstore implements spec.md components C1-C4: the VNI allocator,
// the VPC child-resource lifecycle (VPCs, subnets, routers, routes,
// firewall rules), the subnet conflict filter, and the firewall-rule bulk
// replacement engine. It is grounded in
// hive/handlers/ec2/vpc/service_impl.go, eni.go and ipam.go, generalized
// from hive's EC2-shaped VPC/Subnet/ENI records to the spec's VPC/Subnet/
// Router/Route/FirewallRule/NetworkInterface model and from a flat VNI
// counter to the windowed-scan allocator spec.md §4.1 describes.
package vpcstore

import (
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mulgadc/fabricd/fabric/authz"
	"github.com/mulgadc/fabricd/fabric/store"
)

const (
	bucketVPCs           = "fabricd-vpcs"
	bucketVPCNames       = "fabricd-vpc-names"  // key: project_id/name -> vpc id
	bucketVNIIndex       = "fabricd-vni-index"  // key: vni -> vpc id
	bucketSubnets        = "fabricd-subnets"
	bucketSubnetNames    = "fabricd-subnet-names" // key: vpc_id/name -> subnet id
	bucketRouters        = "fabricd-routers"
	bucketRouterNames    = "fabricd-router-names" // key: vpc_id/name -> router id
	bucketRoutes         = "fabricd-routes"
	bucketRouteNames     = "fabricd-route-names"   // key: router_id/name -> route id
	bucketDefaultRouteIx = "fabricd-default-route" // key: router_id -> route id, enforces "at most one Default route"
	bucketFirewallRules  = "fabricd-firewall-rules"
	bucketFirewallNames  = "fabricd-firewall-names" // key: vpc_id/name -> rule id
	bucketNICs           = "fabricd-nics"
	bucketNICSlots       = "fabricd-nic-slots" // key: parent_id/slot -> nic id, enforces "at most one NIC per (parent, slot)"
)

// Reserved and legal-domain boundaries for the VNI allocator (spec.md §3,
// §4.1). ServicesVNI is the single carve-out reserved for control-plane
// services; values below VNIReservedBelow are never assigned.
const (
	VNIReservedBelow = 1024
	VNIMax           = 1 << 24
	ServicesVNI      = 1024

	// DefaultVNIStep is the recommended window size from spec.md §4.1.
	DefaultVNIStep = 2048
	// DefaultMaxVNISearchWindows bounds how many windows create_vpc will
	// try before reporting InsufficientCapacity.
	DefaultMaxVNISearchWindows = 4096

	// MaxIPv4SubnetPrefix is the configured maximum prefix length from
	// spec.md §4.3 (so subnets retain at least 58 usable addresses after 6
	// reserved).
	MaxIPv4SubnetPrefix = 26
	// ReservedSubnetAddresses is the count of addresses reserved at the
	// start of every subnet for control-plane use (spec.md §4.3).
	ReservedSubnetAddresses = 6
)

// Store holds every JetStream KV bucket the VPC resource manager needs and
// the dependencies (authorizer, VNI allocator tuning) every operation
// shares.
type Store struct {
	vpcs          *store.Bucket
	vpcNames      *store.Bucket
	vniIndex      *store.Bucket
	subnets       *store.Bucket
	subnetNames   *store.Bucket
	routers       *store.Bucket
	routerNames   *store.Bucket
	routes        *store.Bucket
	routeNames    *store.Bucket
	defaultRoute  *store.Bucket
	firewall      *store.Bucket
	firewallNames *store.Bucket
	nics          *store.Bucket
	nicSlots      *store.Bucket

	Authorizer authz.Authorizer

	VNIStep           int64
	MaxVNISearchWindows int
}

// New opens every bucket this store needs against js, creating any that do
// not yet exist (mirrors hive's getOrCreateKVBucket pattern, lifted to
// store.OpenBucket).
func New(js nats.JetStreamContext, authorizer authz.Authorizer) (*Store, error) {
	if authorizer == nil {
		authorizer = authz.NoopAuthorizer{}
	}

	s := &Store{
		Authorizer:          authorizer,
		VNIStep:             DefaultVNIStep,
		MaxVNISearchWindows: DefaultMaxVNISearchWindows,
	}

	buckets := []struct {
		name string
		dst  **store.Bucket
	}{
		{bucketVPCs, &s.vpcs},
		{bucketVPCNames, &s.vpcNames},
		{bucketVNIIndex, &s.vniIndex},
		{bucketSubnets, &s.subnets},
		{bucketSubnetNames, &s.subnetNames},
		{bucketRouters, &s.routers},
		{bucketRouterNames, &s.routerNames},
		{bucketRoutes, &s.routes},
		{bucketRouteNames, &s.routeNames},
		{bucketDefaultRouteIx, &s.defaultRoute},
		{bucketFirewallRules, &s.firewall},
		{bucketFirewallNames, &s.firewallNames},
		{bucketNICs, &s.nics},
		{bucketNICSlots, &s.nicSlots},
	}

	for _, b := range buckets {
		bucket, err := store.OpenBucket(js, b.name, 10)
		if err != nil {
			return nil, fmt.Errorf("vpcstore: %w", err)
		}
		*b.dst = bucket
	}

	slog.Info("vpcstore initialized", "buckets", len(buckets))
	return s, nil
}

func nameKey(parentID, name string) string {
	return parentID + "/" + name
}

func slotKey(parentID string, slot int64) string {
	return fmt.Sprintf("%s/%d", parentID, slot)
}
