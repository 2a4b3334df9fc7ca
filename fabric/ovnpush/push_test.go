package ovnpush

import (
	"context"
	"testing"

	"github.com/mulgadc/fabricd/fabric/model"
)

func TestPushRouterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := &Pusher{Client: NewMockClient()}
	vpc := &model.VPC{ID: "vpc-1", VNI: 2048}

	if err := p.PushRouter(ctx, vpc); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := p.PushRouter(ctx, vpc); err != nil {
		t.Fatalf("second push should be a no-op, got: %v", err)
	}

	lr, err := p.Client.GetLogicalRouter(ctx, routerName(vpc.ID))
	if err != nil {
		t.Fatalf("GetLogicalRouter: %v", err)
	}
	if lr.ExternalIDs["fabricd:vpc_id"] != vpc.ID {
		t.Fatal("external_ids not preserved")
	}
}

func TestPushSubnetAndNetworkInterface(t *testing.T) {
	ctx := context.Background()
	p := &Pusher{Client: NewMockClient()}
	subnet := &model.Subnet{ID: "subnet-1", VPCID: "vpc-1", IPv4Block: "10.0.0.0/24"}
	if err := p.PushSubnet(ctx, subnet); err != nil {
		t.Fatalf("PushSubnet: %v", err)
	}

	nic := &model.NetworkInterface{ID: "nic-1", SubnetID: subnet.ID, ParentID: "instance-1", MAC: "02:00:00:00:00:01", IP: "10.0.0.5"}
	if err := p.PushNetworkInterface(ctx, nic); err != nil {
		t.Fatalf("PushNetworkInterface: %v", err)
	}

	ls, err := p.Client.GetLogicalSwitch(ctx, switchName(subnet.ID))
	if err != nil {
		t.Fatalf("GetLogicalSwitch: %v", err)
	}
	if len(ls.Ports) != 1 {
		t.Fatalf("expected 1 port on switch, got %d", len(ls.Ports))
	}

	if err := p.RemoveNetworkInterface(ctx, subnet.ID, nic.ID); err != nil {
		t.Fatalf("RemoveNetworkInterface: %v", err)
	}
	if _, err := p.Client.GetLogicalSwitchPort(ctx, portName(nic.ID)); err == nil {
		t.Fatal("expected port removed")
	}
}

func TestPushRouteAddAndRemove(t *testing.T) {
	ctx := context.Background()
	p := &Pusher{Client: NewMockClient()}
	vpc := &model.VPC{ID: "vpc-1"}
	if err := p.PushRouter(ctx, vpc); err != nil {
		t.Fatalf("PushRouter: %v", err)
	}

	route := &model.Route{ID: "route-1", Kind: model.RouteKindDefault, Destination: "0.0.0.0/0", Target: "10.0.0.1"}
	if err := p.PushRoute(ctx, vpc.ID, route); err != nil {
		t.Fatalf("PushRoute: %v", err)
	}

	lr, err := p.Client.GetLogicalRouter(ctx, routerName(vpc.ID))
	if err != nil {
		t.Fatalf("GetLogicalRouter: %v", err)
	}
	if len(lr.StaticRoutes) != 1 {
		t.Fatalf("expected 1 static route, got %d", len(lr.StaticRoutes))
	}

	if err := p.RemoveRoute(ctx, vpc.ID, route.Destination); err != nil {
		t.Fatalf("RemoveRoute: %v", err)
	}
}

func TestPushFirewallRulesReplacesWholeSet(t *testing.T) {
	ctx := context.Background()
	p := &Pusher{Client: NewMockClient()}
	subnet := &model.Subnet{ID: "subnet-1", VPCID: "vpc-1"}
	if err := p.PushSubnet(ctx, subnet); err != nil {
		t.Fatalf("PushSubnet: %v", err)
	}

	rules := []model.FirewallRule{
		{
			ID:        "fw-1",
			VPCID:     "vpc-1",
			Name:      "allow-ssh",
			Status:    model.FirewallRuleStatusEnabled,
			Direction: model.FirewallDirectionInbound,
			Action:    model.FirewallActionAllow,
			Priority:  100,
			Filters:   model.FirewallFilters{Protocols: []string{"tcp"}, Ports: []string{"22"}},
		},
		{
			ID:        "fw-2",
			VPCID:     "vpc-1",
			Name:      "disabled-rule",
			Status:    model.FirewallRuleStatusDisabled,
			Direction: model.FirewallDirectionInbound,
			Action:    model.FirewallActionDeny,
			Priority:  50,
		},
	}

	if err := p.PushFirewallRules(ctx, []string{subnet.ID}, rules, map[string]bool{"sled-1": true}); err != nil {
		t.Fatalf("PushFirewallRules: %v", err)
	}

	acls, err := p.Client.ListACLs(ctx, switchName(subnet.ID))
	if err != nil {
		t.Fatalf("ListACLs: %v", err)
	}
	if len(acls) != 1 {
		t.Fatalf("expected 1 ACL (disabled rule skipped), got %d", len(acls))
	}
	if acls[0].Action != "allow-related" {
		t.Fatalf("expected allow-related action, got %s", acls[0].Action)
	}

	// Replacing again with an empty set must clear the previous ACLs.
	if err := p.PushFirewallRules(ctx, []string{subnet.ID}, nil, nil); err != nil {
		t.Fatalf("PushFirewallRules (clear): %v", err)
	}
	acls, err = p.Client.ListACLs(ctx, switchName(subnet.ID))
	if err != nil {
		t.Fatalf("ListACLs after clear: %v", err)
	}
	if len(acls) != 0 {
		t.Fatalf("expected 0 ACLs after replace with empty set, got %d", len(acls))
	}
}

func TestCompileMatchBuildsExpectedExpression(t *testing.T) {
	rule := model.FirewallRule{
		Direction: model.FirewallDirectionInbound,
		Filters: model.FirewallFilters{
			Hosts:     []string{"10.0.0.0/24"},
			Protocols: []string{"tcp"},
			Ports:     []string{"443"},
		},
	}
	match := compileMatch(rule)
	if match != "ip4.dst == {10.0.0.0/24} && tcp && tcp.dst == 443" {
		t.Fatalf("unexpected match expression, got %q", match)
	}
}

func TestCompileMatchDefaultsToUnrestricted(t *testing.T) {
	rule := model.FirewallRule{Direction: model.FirewallDirectionOutbound}
	if got := compileMatch(rule); got != "ip4" {
		t.Fatalf("expected unrestricted match for empty filters, got %q", got)
	}
}
