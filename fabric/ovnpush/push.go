package ovnpush

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mulgadc/fabricd/fabric/model"
	"github.com/mulgadc/fabricd/fabric/ovnpush/nbdb"
)

func switchName(subnetID string) string { return "subnet-" + subnetID }
func routerName(vpcID string) string    { return "vpc-" + vpcID }
func portName(nicID string) string      { return "port-" + nicID }

// Pusher translates VPC resource store writes into OVN Northbound DB state.
// PushRouter, PushSubnet and PushNetworkInterface skip the create when the
// object already exists, and PushFirewallRules clears a switch's ACLs before
// writing the new set, so repeating one of these pushes leaves the same
// state; multiple fabricd instances may observe and push the same change,
// as hive/services/vpcd/topology.go's handler comments note. The Remove
// methods return the client's error when the object is already absent.
type Pusher struct {
	Client Client
}

// PushRouter ensures vpc's logical router exists in the NB DB.
func (p *Pusher) PushRouter(ctx context.Context, vpc *model.VPC) error {
	name := routerName(vpc.ID)
	if _, err := p.Client.GetLogicalRouter(ctx, name); err == nil {
		return nil
	}
	return p.Client.CreateLogicalRouter(ctx, &nbdb.LogicalRouter{
		Name: name,
		ExternalIDs: map[string]string{
			"fabricd:vpc_id": vpc.ID,
			"fabricd:vni":    fmt.Sprintf("%d", vpc.VNI),
		},
	})
}

// RemoveRouter deletes vpc's logical router.
func (p *Pusher) RemoveRouter(ctx context.Context, vpcID string) error {
	return p.Client.DeleteLogicalRouter(ctx, routerName(vpcID))
}

// PushSubnet ensures subnet's logical switch exists.
func (p *Pusher) PushSubnet(ctx context.Context, subnet *model.Subnet) error {
	name := switchName(subnet.ID)
	if _, err := p.Client.GetLogicalSwitch(ctx, name); err == nil {
		return nil
	}
	return p.Client.CreateLogicalSwitch(ctx, &nbdb.LogicalSwitch{
		Name: name,
		ExternalIDs: map[string]string{
			"fabricd:subnet_id": subnet.ID,
			"fabricd:vpc_id":    subnet.VPCID,
		},
	})
}

// RemoveSubnet deletes subnet's logical switch.
func (p *Pusher) RemoveSubnet(ctx context.Context, subnetID string) error {
	return p.Client.DeleteLogicalSwitch(ctx, switchName(subnetID))
}

// PushNetworkInterface ensures a logical switch port exists for nic.
func (p *Pusher) PushNetworkInterface(ctx context.Context, nic *model.NetworkInterface) error {
	name := portName(nic.ID)
	if _, err := p.Client.GetLogicalSwitchPort(ctx, name); err == nil {
		return nil
	}
	addrs := []string{nic.MAC, nic.IP}
	if nic.MAC == "" {
		addrs = []string{"dynamic"}
	}
	return p.Client.CreateLogicalSwitchPort(ctx, switchName(nic.SubnetID), &nbdb.LogicalSwitchPort{
		Name:      name,
		Addresses: addrs,
		ExternalIDs: map[string]string{
			"fabricd:parent_id": nic.ParentID,
			"fabricd:kind":      string(nic.Kind),
		},
	})
}

// RemoveNetworkInterface deletes nic's logical switch port.
func (p *Pusher) RemoveNetworkInterface(ctx context.Context, subnetID, nicID string) error {
	return p.Client.DeleteLogicalSwitchPort(ctx, switchName(subnetID), portName(nicID))
}

// PushRoute adds route as a static route on its router. All Route kinds
// (Default/VPCSubnet/VPCPeering/Custom) compile to the same OVN primitive:
// OVN's own policy routing distinguishes them by ip_prefix/nexthop alone.
func (p *Pusher) PushRoute(ctx context.Context, vpcID string, route *model.Route) error {
	return p.Client.AddStaticRoute(ctx, routerName(vpcID), &nbdb.LogicalRouterStaticRoute{
		IPPrefix: route.Destination,
		Nexthop:  route.Target,
		ExternalIDs: map[string]string{
			"fabricd:route_id": route.ID,
			"fabricd:kind":     string(route.Kind),
		},
	})
}

// RemoveRoute deletes route from its router.
func (p *Pusher) RemoveRoute(ctx context.Context, vpcID string, destination string) error {
	return p.Client.DeleteStaticRoute(ctx, routerName(vpcID), destination)
}

// PushFirewallRules replaces every ACL on each of the VPC's subnets with
// the compiled form of rules, the OVN analogue of
// vpcstore.ReplaceFirewallRules' whole-collection semantics. targetSleds
// names the sleds the Fabric Resolver determined should receive this
// state (spec.md §6); OVN's southbound controller does the actual
// per-chassis distribution, so this is logged for observability rather
// than iterated over.
func (p *Pusher) PushFirewallRules(ctx context.Context, subnetIDs []string, rules []model.FirewallRule, targetSleds map[string]bool) error {
	slog.Info("pushing firewall rules", "subnets", len(subnetIDs), "rules", len(rules), "target_sleds", len(targetSleds))
	for _, subnetID := range subnetIDs {
		name := switchName(subnetID)
		if err := p.Client.ClearACLs(ctx, name); err != nil {
			return fmt.Errorf("clear ACLs on %s: %w", name, err)
		}
		for _, rule := range rules {
			if rule.Status != model.FirewallRuleStatusEnabled {
				continue
			}
			acl := compileACL(rule)
			if err := p.Client.CreateACL(ctx, name, &acl); err != nil {
				return fmt.Errorf("create ACL for rule %s on %s: %w", rule.Name, name, err)
			}
		}
	}
	return nil
}

// compileACL translates a FirewallRule's direction/filters/action into a
// single OVN ACL row. Priority is carried through unchanged since OVN and
// spec.md §3 both use "higher wins".
func compileACL(rule model.FirewallRule) nbdb.ACL {
	direction := "to-lport"
	if rule.Direction == model.FirewallDirectionOutbound {
		direction = "from-lport"
	}
	action := "drop"
	if rule.Action == model.FirewallActionAllow {
		action = "allow-related"
	}
	name := rule.Name
	return nbdb.ACL{
		Name:      &name,
		Direction: direction,
		Priority:  int(rule.Priority),
		Match:     compileMatch(rule),
		Action:    action,
		ExternalIDs: map[string]string{
			"fabricd:firewall_rule_id": rule.ID,
			"fabricd:vpc_id":           rule.VPCID,
		},
	}
}

// compileMatch builds the OVN match expression for a rule's filters. An
// empty filter set matches all traffic in its direction, mirroring
// spec.md §3's "absent Filters field means unrestricted".
func compileMatch(rule model.FirewallRule) string {
	var clauses []string
	side := "ip4.dst"
	if rule.Direction == model.FirewallDirectionOutbound {
		side = "ip4.src"
	}
	if len(rule.Filters.Hosts) > 0 {
		clauses = append(clauses, fmt.Sprintf("%s == {%s}", side, strings.Join(rule.Filters.Hosts, ", ")))
	}
	if len(rule.Filters.Protocols) > 0 {
		clauses = append(clauses, fmt.Sprintf("%s", strings.Join(rule.Filters.Protocols, " || ")))
	}
	if len(rule.Filters.Ports) > 0 {
		ports := make([]string, len(rule.Filters.Ports))
		for i, port := range rule.Filters.Ports {
			ports[i] = fmt.Sprintf("%s.dst == %s", protoHint(rule.Filters.Protocols), port)
		}
		clauses = append(clauses, strings.Join(ports, " || "))
	}
	if len(clauses) == 0 {
		return "ip4"
	}
	return strings.Join(clauses, " && ")
}

func protoHint(protocols []string) string {
	if len(protocols) == 1 {
		return strings.ToLower(protocols[0])
	}
	return "tcp"
}
