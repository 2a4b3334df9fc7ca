// Package model defines the entity types shared across fabricd's VPC
// resource store and fabric resolver. Shapes follow spec.md §3 directly;
// Instance/Vmm/Zone/Blueprint are the supplement described in
// SPEC_FULL.md §3, grounded in original_source's datastore/vpc.rs and
// planning_input.rs.
package model

import "time"

// Timestamps is embedded by every row that participates in soft-delete.
type Timestamps struct {
	TimeCreated  time.Time  `json:"time_created"`
	TimeModified time.Time  `json:"time_modified"`
	TimeDeleted  *time.Time `json:"time_deleted,omitempty"`
}

// Live reports whether the row has not been soft-deleted.
func (t Timestamps) Live() bool { return t.TimeDeleted == nil }

// VPC is the spec.md §3 VPC row.
type VPC struct {
	Timestamps
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	VNI            int64  `json:"vni"`
	IPv6Prefix     string `json:"ipv6_prefix"`
	DNSName        string `json:"dns_name"`
	SystemRouterID string `json:"system_router_id"`
	SubnetGen      int64  `json:"subnet_gen"`
	FirewallGen    int64  `json:"firewall_gen"`
}

// Subnet is the spec.md §3 Subnet row.
type Subnet struct {
	Timestamps
	ID              string `json:"id"`
	VPCID           string `json:"vpc_id"`
	Name            string `json:"name"`
	IPv4Block       string `json:"ipv4_block"`
	IPv6Block       string `json:"ipv6_block"`
	CustomRouterID  string `json:"custom_router_id,omitempty"`
	Rcgen           int64  `json:"rcgen"`
}

// RouterKind distinguishes the one System router per VPC from Custom ones.
type RouterKind string

const (
	RouterKindSystem RouterKind = "system"
	RouterKindCustom RouterKind = "custom"
)

// Router is the spec.md §3 Router row.
type Router struct {
	Timestamps
	ID    string     `json:"id"`
	VPCID string     `json:"vpc_id"`
	Kind  RouterKind `json:"kind"`
	Name  string     `json:"name"`
}

// RouteKind is the spec.md §3 Route.kind enumeration.
type RouteKind string

const (
	RouteKindDefault    RouteKind = "default"
	RouteKindVPCSubnet  RouteKind = "vpc_subnet"
	RouteKindVPCPeering RouteKind = "vpc_peering"
	RouteKindCustom     RouteKind = "custom"
)

// Route is the spec.md §3 Route row.
type Route struct {
	Timestamps
	ID           string    `json:"id"`
	VPCRouterID  string    `json:"vpc_router_id"`
	Kind         RouteKind `json:"kind"`
	Name         string    `json:"name"`
	Target       string    `json:"target"`
	Destination  string    `json:"destination"`
}

// FirewallDirection is the direction a FirewallRule applies to.
type FirewallDirection string

const (
	FirewallDirectionInbound  FirewallDirection = "inbound"
	FirewallDirectionOutbound FirewallDirection = "outbound"
)

// FirewallAction is the action a matching FirewallRule takes.
type FirewallAction string

const (
	FirewallActionAllow FirewallAction = "allow"
	FirewallActionDeny  FirewallAction = "deny"
)

// FirewallRuleStatus controls whether a rule is actively enforced.
type FirewallRuleStatus string

const (
	FirewallRuleStatusEnabled  FirewallRuleStatus = "enabled"
	FirewallRuleStatusDisabled FirewallRuleStatus = "disabled"
)

// FirewallFilters narrows which traffic a rule matches.
type FirewallFilters struct {
	Protocols []string `json:"protocols,omitempty"`
	Ports     []string `json:"ports,omitempty"`
	Hosts     []string `json:"hosts,omitempty"`
}

// FirewallRule is the spec.md §3 FirewallRule row.
type FirewallRule struct {
	Timestamps
	ID        string             `json:"id"`
	VPCID     string             `json:"vpc_id"`
	Name      string             `json:"name"`
	Status    FirewallRuleStatus `json:"status"`
	Direction FirewallDirection  `json:"direction"`
	Targets   []string           `json:"targets"`
	Filters   FirewallFilters    `json:"filters"`
	Action    FirewallAction     `json:"action"`
	Priority  int64              `json:"priority"`
}

// NetworkInterfaceKind distinguishes guest NICs from control-plane service
// NICs, per spec.md §3 and the Fabric Resolver's guest/service paths.
type NetworkInterfaceKind string

const (
	NetworkInterfaceKindInstance NetworkInterfaceKind = "instance"
	NetworkInterfaceKindService  NetworkInterfaceKind = "service"
)

// NetworkInterface is the spec.md §3 NetworkInterface row.
type NetworkInterface struct {
	Timestamps
	ID       string               `json:"id"`
	Kind     NetworkInterfaceKind `json:"kind"`
	SubnetID string               `json:"subnet_id"`
	VPCID    string               `json:"vpc_id"`
	ParentID string               `json:"parent_id"` // Instance.ID or Zone.ID
	IP       string               `json:"ip"`
	MAC      string               `json:"mac"`
	Slot     int64                `json:"slot"`
}

// Instance and Vmm back the Fabric Resolver's guest path (spec.md §4.5(a)).
// Grounded in original_source/nexus/db-queries/src/db/datastore/vpc.rs,
// which resolves sleds through exactly this Instance -> active Vmm -> sled
// indirection.
type Instance struct {
	Timestamps
	ID           string `json:"id"`
	ProjectID    string `json:"project_id"`
	Name         string `json:"name"`
	ActiveVmmID  string `json:"active_vmm_id,omitempty"`
}

// Vmm is coarse: only its sled assignment matters here.
type Vmm struct {
	Timestamps
	ID     string `json:"id"`
	SledID string `json:"sled_id"`
}

// SledPolicy is operator intent for a sled (spec.md §4.6).
type SledPolicy string

const (
	SledPolicyInServiceProvisionable    SledPolicy = "in_service_provisionable"
	SledPolicyInServiceNonProvisionable SledPolicy = "in_service_non_provisionable"
	SledPolicyExpunged                  SledPolicy = "expunged"
)

// SledState is observed lifecycle (spec.md §4.6).
type SledState string

const (
	SledStateActive         SledState = "active"
	SledStateDecommissioned SledState = "decommissioned"
)

// Sled is a physical compute node in the rack.
type Sled struct {
	ID     string     `json:"id"`
	Policy SledPolicy `json:"policy"`
	State  SledState  `json:"state"`
}

// ZoneDisposition is the per-zone lifecycle tag in a Blueprint.
type ZoneDisposition string

const (
	ZoneDispositionInService ZoneDisposition = "in_service"
	ZoneDispositionQuiesced  ZoneDisposition = "quiesced"
	ZoneDispositionExpunged  ZoneDisposition = "expunged"
)

// Zone is a control-plane service instance placed on a sled by a blueprint.
type Zone struct {
	ID                 string          `json:"id"`
	SledID             string          `json:"sled_id"`
	Disposition        ZoneDisposition `json:"disposition"`
	ExternalNetworking bool            `json:"external_networking,omitempty"`
}

// Blueprint is the declarative target placement of all control-plane zones.
type Blueprint struct {
	ID           string `json:"id"`
	Generation   int64  `json:"generation"`
	ZonesBySled  map[string][]Zone `json:"zones_by_sled"`
}

// BlueprintTarget names the blueprint the system is trying to realise.
// The row with the maximum Version is the current target (spec.md §3).
type BlueprintTarget struct {
	BlueprintID   string    `json:"blueprint_id"`
	Version       int64     `json:"version"`
	Enabled       bool      `json:"enabled"`
	TimeMadeTarget time.Time `json:"time_made_target"`
}
