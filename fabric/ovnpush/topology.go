package ovnpush

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mulgadc/fabricd/fabric/model"
)

// NATS topics for VPC resource lifecycle events, generalized from
// hive/services/vpcd/topology.go's vpc.* topics to fabricd's own domain
// (Router/Route replace hive's flat ENI/IGW shape).
const (
	TopicVPCCreate          = "fabricd.vpc.create"
	TopicVPCDelete          = "fabricd.vpc.delete"
	TopicSubnetCreate       = "fabricd.subnet.create"
	TopicSubnetDelete       = "fabricd.subnet.delete"
	TopicNICCreate          = "fabricd.nic.create"
	TopicNICDelete          = "fabricd.nic.delete"
	TopicRouteCreate        = "fabricd.route.create"
	TopicRouteDelete        = "fabricd.route.delete"
	TopicFirewallRuleReplace = "fabricd.firewall.replace"
)

// VPCEvent is published on TopicVPCCreate/TopicVPCDelete.
type VPCEvent struct {
	VPC model.VPC `json:"vpc"`
}

// SubnetEvent is published on TopicSubnetCreate/TopicSubnetDelete.
type SubnetEvent struct {
	Subnet model.Subnet `json:"subnet"`
}

// NICEvent is published on TopicNICCreate/TopicNICDelete.
type NICEvent struct {
	NIC model.NetworkInterface `json:"nic"`
}

// RouteEvent is published on TopicRouteCreate/TopicRouteDelete.
type RouteEvent struct {
	VPCID string      `json:"vpc_id"`
	Route model.Route `json:"route"`
}

// FirewallRuleReplaceEvent is the payload TopologyHandler consumes on
// TopicFirewallRuleReplace: a VPC's whole replaced firewall rule set.
// vpcstore.ReplaceFirewallRules does not publish it.
type FirewallRuleReplaceEvent struct {
	VPCID       string               `json:"vpc_id"`
	SubnetIDs   []string             `json:"subnet_ids"`
	Rules       []model.FirewallRule `json:"rules"`
	TargetSleds []string             `json:"target_sleds"`
}

// TopologyHandler subscribes to VPC resource lifecycle events and drives
// Pusher to realize them in the OVN NB DB. One handler instance runs per
// fabricd node; all nodes subscribe (no queue group) because OVN NB DB
// writes are idempotent and centralized, mirroring
// hive/services/vpcd/topology.go's Subscribe doc comment.
type TopologyHandler struct {
	pusher *Pusher
}

// NewTopologyHandler creates a handler that pushes through client.
func NewTopologyHandler(client Client) *TopologyHandler {
	return &TopologyHandler{pusher: &Pusher{Client: client}}
}

// Subscribe registers NATS subscriptions for every resource lifecycle topic.
func (h *TopologyHandler) Subscribe(nc *nats.Conn) ([]*nats.Subscription, error) {
	type sub struct {
		topic   string
		handler nats.MsgHandler
	}

	subs := []sub{
		{TopicVPCCreate, h.handleVPCCreate},
		{TopicVPCDelete, h.handleVPCDelete},
		{TopicSubnetCreate, h.handleSubnetCreate},
		{TopicSubnetDelete, h.handleSubnetDelete},
		{TopicNICCreate, h.handleNICCreate},
		{TopicNICDelete, h.handleNICDelete},
		{TopicRouteCreate, h.handleRouteCreate},
		{TopicRouteDelete, h.handleRouteDelete},
		{TopicFirewallRuleReplace, h.handleFirewallRuleReplace},
	}

	var result []*nats.Subscription
	for _, s := range subs {
		natsSub, err := nc.Subscribe(s.topic, s.handler)
		if err != nil {
			for _, r := range result {
				_ = r.Unsubscribe()
			}
			return nil, fmt.Errorf("subscribe %s: %w", s.topic, err)
		}
		result = append(result, natsSub)
		slog.Info("subscribed to VPC resource topic", "topic", s.topic)
	}
	return result, nil
}

func (h *TopologyHandler) handleVPCCreate(msg *nats.Msg) {
	var evt VPCEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		slog.Error("unmarshal vpc create event", "err", err)
		return
	}
	if err := h.pusher.PushRouter(context.Background(), &evt.VPC); err != nil {
		slog.Error("push VPC router", "vpc_id", evt.VPC.ID, "err", err)
	}
}

func (h *TopologyHandler) handleVPCDelete(msg *nats.Msg) {
	var evt VPCEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		slog.Error("unmarshal vpc delete event", "err", err)
		return
	}
	if err := h.pusher.RemoveRouter(context.Background(), evt.VPC.ID); err != nil {
		slog.Error("remove VPC router", "vpc_id", evt.VPC.ID, "err", err)
	}
}

func (h *TopologyHandler) handleSubnetCreate(msg *nats.Msg) {
	var evt SubnetEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		slog.Error("unmarshal subnet create event", "err", err)
		return
	}
	if err := h.pusher.PushSubnet(context.Background(), &evt.Subnet); err != nil {
		slog.Error("push subnet switch", "subnet_id", evt.Subnet.ID, "err", err)
	}
}

func (h *TopologyHandler) handleSubnetDelete(msg *nats.Msg) {
	var evt SubnetEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		slog.Error("unmarshal subnet delete event", "err", err)
		return
	}
	if err := h.pusher.RemoveSubnet(context.Background(), evt.Subnet.ID); err != nil {
		slog.Error("remove subnet switch", "subnet_id", evt.Subnet.ID, "err", err)
	}
}

func (h *TopologyHandler) handleNICCreate(msg *nats.Msg) {
	var evt NICEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		slog.Error("unmarshal nic create event", "err", err)
		return
	}
	if err := h.pusher.PushNetworkInterface(context.Background(), &evt.NIC); err != nil {
		slog.Error("push network interface port", "nic_id", evt.NIC.ID, "err", err)
	}
}

func (h *TopologyHandler) handleNICDelete(msg *nats.Msg) {
	var evt NICEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		slog.Error("unmarshal nic delete event", "err", err)
		return
	}
	if err := h.pusher.RemoveNetworkInterface(context.Background(), evt.NIC.SubnetID, evt.NIC.ID); err != nil {
		slog.Error("remove network interface port", "nic_id", evt.NIC.ID, "err", err)
	}
}

func (h *TopologyHandler) handleRouteCreate(msg *nats.Msg) {
	var evt RouteEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		slog.Error("unmarshal route create event", "err", err)
		return
	}
	if err := h.pusher.PushRoute(context.Background(), evt.VPCID, &evt.Route); err != nil {
		slog.Error("push route", "route_id", evt.Route.ID, "err", err)
	}
}

func (h *TopologyHandler) handleRouteDelete(msg *nats.Msg) {
	var evt RouteEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		slog.Error("unmarshal route delete event", "err", err)
		return
	}
	if err := h.pusher.RemoveRoute(context.Background(), evt.VPCID, evt.Route.Destination); err != nil {
		slog.Error("remove route", "route_id", evt.Route.ID, "err", err)
	}
}

func (h *TopologyHandler) handleFirewallRuleReplace(msg *nats.Msg) {
	var evt FirewallRuleReplaceEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		slog.Error("unmarshal firewall replace event", "err", err)
		return
	}
	targetSleds := make(map[string]bool, len(evt.TargetSleds))
	for _, id := range evt.TargetSleds {
		targetSleds[id] = true
	}
	if err := h.pusher.PushFirewallRules(context.Background(), evt.SubnetIDs, evt.Rules, targetSleds); err != nil {
		slog.Error("push firewall rules", "vpc_id", evt.VPCID, "err", err)
	}
}
