// Package nbdb contains Go structs representing the OVN Northbound Database
// schema fabricd's downstream push (spec.md §6) writes to. Grounded in
// hive/services/vpcd/nbdb/model.go, extended with the NAT, static route and
// ACL tables the teacher's model.go omitted (ovn.go
// referenced nbdb.NAT and nbdb.LogicalRouterStaticRoute without ever
// defining them) — ACL is new, added so FirewallRule has somewhere to land.
//
// To regenerate from the full OVN NB schema (requires OVN installed):
//
//	go install github.com/ovn-kubernetes/libovsdb/cmd/modelgen@latest
//	modelgen -p nbdb -o fabric/ovnpush/nbdb /usr/share/ovn/ovn-nb.ovsschema
package nbdb

import "github.com/ovn-kubernetes/libovsdb/model"

// LogicalSwitch represents an OVN Logical_Switch (L2 segment, maps to a Subnet).
type LogicalSwitch struct {
	UUID        string            `ovsdb:"_uuid"`
	Name        string            `ovsdb:"name"`
	Ports       []string          `ovsdb:"ports"`
	ACLs        []string          `ovsdb:"acls"`
	DNSRecords  []string          `ovsdb:"dns_records"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
	OtherConfig map[string]string `ovsdb:"other_config"`
}

// LogicalSwitchPort represents an OVN Logical_Switch_Port (a NetworkInterface).
type LogicalSwitchPort struct {
	UUID          string            `ovsdb:"_uuid"`
	Name          string            `ovsdb:"name"`
	Type          string            `ovsdb:"type"`
	Addresses     []string          `ovsdb:"addresses"`
	PortSecurity  []string          `ovsdb:"port_security"`
	DHCPv4Options *string           `ovsdb:"dhcpv4_options"`
	Enabled       *bool             `ovsdb:"enabled"`
	Up            *bool             `ovsdb:"up"`
	ExternalIDs   map[string]string `ovsdb:"external_ids"`
	Options       map[string]string `ovsdb:"options"`
}

// LogicalRouter represents an OVN Logical_Router (maps to a Router).
type LogicalRouter struct {
	UUID         string            `ovsdb:"_uuid"`
	Name         string            `ovsdb:"name"`
	Ports        []string          `ovsdb:"ports"`
	StaticRoutes []string          `ovsdb:"static_routes"`
	NAT          []string          `ovsdb:"nat"`
	Policies     []string          `ovsdb:"policies"`
	Enabled      *bool             `ovsdb:"enabled"`
	ExternalIDs  map[string]string `ovsdb:"external_ids"`
	Options      map[string]string `ovsdb:"options"`
}

// LogicalRouterPort represents an OVN Logical_Router_Port.
type LogicalRouterPort struct {
	UUID           string            `ovsdb:"_uuid"`
	Name           string            `ovsdb:"name"`
	MAC            string            `ovsdb:"mac"`
	Networks       []string          `ovsdb:"networks"`
	GatewayChassis []string          `ovsdb:"gateway_chassis"`
	ExternalIDs    map[string]string `ovsdb:"external_ids"`
	Options        map[string]string `ovsdb:"options"`
}

// LogicalRouterStaticRoute represents an OVN Logical_Router_Static_Route
// (maps to a Route of any kind: Default/VPCSubnet/VPCPeering/Custom).
type LogicalRouterStaticRoute struct {
	UUID        string            `ovsdb:"_uuid"`
	IPPrefix    string            `ovsdb:"ip_prefix"`
	Nexthop     string            `ovsdb:"nexthop"`
	Policy      *string           `ovsdb:"policy"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
}

// NAT represents an OVN NAT row. It is part of the database model only;
// push.go writes no NAT rows.
type NAT struct {
	UUID        string            `ovsdb:"_uuid"`
	Type        string            `ovsdb:"type"` // "snat", "dnat", or "dnat_and_snat"
	ExternalIP  string            `ovsdb:"external_ip"`
	LogicalIP   string            `ovsdb:"logical_ip"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
}

// ACL represents an OVN ACL row — the push target for a FirewallRule.
// Direction/Priority/Match/Action follow the OVN ACL table directly;
// FirewallRule's richer filter shape (protocols/ports/hosts) is compiled
// down to a single Match expression by push.go.
type ACL struct {
	UUID        string            `ovsdb:"_uuid"`
	Name        *string           `ovsdb:"name"`
	Direction   string            `ovsdb:"direction"` // "to-lport" or "from-lport"
	Priority    int               `ovsdb:"priority"`
	Match       string            `ovsdb:"match"`
	Action      string            `ovsdb:"action"` // "allow", "allow-related", "drop", "reject"
	Log         bool              `ovsdb:"log"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
}

// DHCPOptions represents an OVN DHCP_Options row.
type DHCPOptions struct {
	UUID        string            `ovsdb:"_uuid"`
	CIDR        string            `ovsdb:"cidr"`
	Options     map[string]string `ovsdb:"options"`
	ExternalIDs map[string]string `ovsdb:"external_ids"`
}

// FullDatabaseModel returns a ClientDBModel for the OVN Northbound database
// containing every table fabricd's downstream push needs.
func FullDatabaseModel() (model.ClientDBModel, error) {
	return model.NewClientDBModel("OVN_Northbound", map[string]model.Model{
		"Logical_Switch":              &LogicalSwitch{},
		"Logical_Switch_Port":         &LogicalSwitchPort{},
		"Logical_Router":              &LogicalRouter{},
		"Logical_Router_Port":         &LogicalRouterPort{},
		"Logical_Router_Static_Route": &LogicalRouterStaticRoute{},
		"NAT":                         &NAT{},
		"ACL":                         &ACL{},
		"DHCP_Options":                &DHCPOptions{},
	})
}
