// Package ovnpush implements the downstream push side-effect contract of
// spec.md §6: once the Fabric Resolver names the sleds a VPC's state must
// reach, this package writes that state into the OVN Northbound Database,
// whose own controller distributes it to every chassis (one per sled).
// Grounded in hive/services/vpcd/ovn.go, generalized from hive's flat
// ENI/security-group shape to fabricd's Router/Route/FirewallRule model and
// extended with ACL push for firewall rules.
package ovnpush

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ovn-kubernetes/libovsdb/client"
	"github.com/ovn-kubernetes/libovsdb/model"
	"github.com/ovn-kubernetes/libovsdb/ovsdb"

	"github.com/mulgadc/fabricd/fabric/ovnpush/nbdb"
)

// Client is the interface push.go drives; LiveOVNClient implements it
// against a real OVN NB DB and mockClient implements it in memory for
// tests.
type Client interface {
	Connect(ctx context.Context) error
	Close()
	Connected() bool

	CreateLogicalSwitch(ctx context.Context, ls *nbdb.LogicalSwitch) error
	DeleteLogicalSwitch(ctx context.Context, name string) error
	GetLogicalSwitch(ctx context.Context, name string) (*nbdb.LogicalSwitch, error)

	CreateLogicalSwitchPort(ctx context.Context, switchName string, lsp *nbdb.LogicalSwitchPort) error
	DeleteLogicalSwitchPort(ctx context.Context, switchName string, portName string) error
	GetLogicalSwitchPort(ctx context.Context, name string) (*nbdb.LogicalSwitchPort, error)

	CreateLogicalRouter(ctx context.Context, lr *nbdb.LogicalRouter) error
	DeleteLogicalRouter(ctx context.Context, name string) error
	GetLogicalRouter(ctx context.Context, name string) (*nbdb.LogicalRouter, error)

	CreateLogicalRouterPort(ctx context.Context, routerName string, lrp *nbdb.LogicalRouterPort) error
	DeleteLogicalRouterPort(ctx context.Context, routerName string, portName string) error

	AddStaticRoute(ctx context.Context, routerName string, route *nbdb.LogicalRouterStaticRoute) error
	DeleteStaticRoute(ctx context.Context, routerName string, ipPrefix string) error

	CreateACL(ctx context.Context, switchName string, acl *nbdb.ACL) error
	ClearACLs(ctx context.Context, switchName string) error
	ListACLs(ctx context.Context, switchName string) ([]nbdb.ACL, error)
}

func namedUUID(prefix, name string) string {
	s := prefix + name
	result := make([]byte, len(s))
	for i := range s {
		switch s[i] {
		case '-', '.', '/':
			result[i] = '_'
		default:
			result[i] = s[i]
		}
	}
	return string(result)
}

// LiveOVNClient implements Client using libovsdb against a real OVN NB DB.
type LiveOVNClient struct {
	endpoint string
	client   client.Client
}

// NewLiveOVNClient targets a real OVN NB DB; endpoint is "tcp:host:port" or
// "unix:/path/to/socket".
func NewLiveOVNClient(endpoint string) *LiveOVNClient {
	return &LiveOVNClient{endpoint: endpoint}
}

func (c *LiveOVNClient) transactOps(ctx context.Context, ops []ovsdb.Operation) error {
	results, err := c.client.Transact(ctx, ops...)
	if err != nil {
		return err
	}
	_, err = ovsdb.CheckOperationResults(results, ops)
	if err != nil {
		for i, r := range results {
			if r.Error != "" {
				opTable := ""
				if i < len(ops) {
					opTable = fmt.Sprintf("%s on %s", ops[i].Op, ops[i].Table)
				}
				slog.Error("OVSDB operation failed", "index", i, "op", opTable, "error", r.Error, "details", r.Details)
			}
		}
	}
	return err
}

func (c *LiveOVNClient) Connect(ctx context.Context) error {
	dbModel, err := nbdb.FullDatabaseModel()
	if err != nil {
		return fmt.Errorf("build database model: %w", err)
	}
	ovn, err := client.NewOVSDBClient(dbModel, client.WithEndpoint(c.endpoint))
	if err != nil {
		return fmt.Errorf("create OVSDB client: %w", err)
	}
	if err := ovn.Connect(ctx); err != nil {
		return fmt.Errorf("connect OVN NB DB at %s: %w", c.endpoint, err)
	}
	if _, err := ovn.MonitorAll(ctx); err != nil {
		ovn.Close()
		return fmt.Errorf("monitor OVN NB DB: %w", err)
	}
	c.client = ovn
	slog.Info("connected to OVN NB DB", "endpoint", c.endpoint)
	return nil
}

func (c *LiveOVNClient) Close() {
	if c.client != nil {
		c.client.Close()
		slog.Info("disconnected from OVN NB DB")
	}
}

func (c *LiveOVNClient) Connected() bool { return c.client != nil }

func (c *LiveOVNClient) CreateLogicalSwitch(ctx context.Context, ls *nbdb.LogicalSwitch) error {
	ops, err := c.client.Create(ls)
	if err != nil {
		return fmt.Errorf("create logical switch ops: %w", err)
	}
	return c.transactOps(ctx, ops)
}

func (c *LiveOVNClient) DeleteLogicalSwitch(ctx context.Context, name string) error {
	ls, err := c.GetLogicalSwitch(ctx, name)
	if err != nil {
		return fmt.Errorf("delete logical switch lookup: %w", err)
	}
	ops, err := c.client.Where(ls).Delete()
	if err != nil {
		return fmt.Errorf("delete logical switch ops: %w", err)
	}
	return c.transactOps(ctx, ops)
}

func (c *LiveOVNClient) GetLogicalSwitch(ctx context.Context, name string) (*nbdb.LogicalSwitch, error) {
	var switches []nbdb.LogicalSwitch
	if err := c.client.WhereCache(func(ls *nbdb.LogicalSwitch) bool { return ls.Name == name }).List(ctx, &switches); err != nil {
		return nil, fmt.Errorf("get logical switch: %w", err)
	}
	if len(switches) == 0 {
		return nil, fmt.Errorf("logical switch %q not found", name)
	}
	return &switches[0], nil
}

func (c *LiveOVNClient) CreateLogicalSwitchPort(ctx context.Context, switchName string, lsp *nbdb.LogicalSwitchPort) error {
	if lsp.UUID == "" {
		lsp.UUID = namedUUID("lsp_", lsp.Name)
	}
	createOps, err := c.client.Create(lsp)
	if err != nil {
		return fmt.Errorf("create logical switch port ops: %w", err)
	}
	ls, err := c.GetLogicalSwitch(ctx, switchName)
	if err != nil {
		return fmt.Errorf("get logical switch for port add: %w", err)
	}
	mutateOps, err := c.client.Where(ls).Mutate(ls, model.Mutation{Field: &ls.Ports, Mutator: "insert", Value: []string{lsp.UUID}})
	if err != nil {
		return fmt.Errorf("mutate logical switch ports ops: %w", err)
	}
	return c.transactOps(ctx, append(createOps, mutateOps...))
}

func (c *LiveOVNClient) DeleteLogicalSwitchPort(ctx context.Context, switchName string, portName string) error {
	lsp, err := c.GetLogicalSwitchPort(ctx, portName)
	if err != nil {
		return fmt.Errorf("get logical switch port for delete: %w", err)
	}
	ls, err := c.GetLogicalSwitch(ctx, switchName)
	if err != nil {
		return fmt.Errorf("get logical switch for port delete: %w", err)
	}
	mutateOps, err := c.client.Where(ls).Mutate(ls, model.Mutation{Field: &ls.Ports, Mutator: "delete", Value: []string{lsp.UUID}})
	if err != nil {
		return fmt.Errorf("mutate logical switch ports ops: %w", err)
	}
	deleteOps, err := c.client.Where(lsp).Delete()
	if err != nil {
		return fmt.Errorf("delete logical switch port ops: %w", err)
	}
	return c.transactOps(ctx, append(mutateOps, deleteOps...))
}

func (c *LiveOVNClient) GetLogicalSwitchPort(ctx context.Context, name string) (*nbdb.LogicalSwitchPort, error) {
	var ports []nbdb.LogicalSwitchPort
	if err := c.client.WhereCache(func(lsp *nbdb.LogicalSwitchPort) bool { return lsp.Name == name }).List(ctx, &ports); err != nil {
		return nil, fmt.Errorf("get logical switch port: %w", err)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("logical switch port %q not found", name)
	}
	return &ports[0], nil
}

func (c *LiveOVNClient) CreateLogicalRouter(ctx context.Context, lr *nbdb.LogicalRouter) error {
	ops, err := c.client.Create(lr)
	if err != nil {
		return fmt.Errorf("create logical router ops: %w", err)
	}
	return c.transactOps(ctx, ops)
}

func (c *LiveOVNClient) DeleteLogicalRouter(ctx context.Context, name string) error {
	lr, err := c.GetLogicalRouter(ctx, name)
	if err != nil {
		return fmt.Errorf("delete logical router lookup: %w", err)
	}
	ops, err := c.client.Where(lr).Delete()
	if err != nil {
		return fmt.Errorf("delete logical router ops: %w", err)
	}
	return c.transactOps(ctx, ops)
}

func (c *LiveOVNClient) GetLogicalRouter(ctx context.Context, name string) (*nbdb.LogicalRouter, error) {
	var routers []nbdb.LogicalRouter
	if err := c.client.WhereCache(func(lr *nbdb.LogicalRouter) bool { return lr.Name == name }).List(ctx, &routers); err != nil {
		return nil, fmt.Errorf("get logical router: %w", err)
	}
	if len(routers) == 0 {
		return nil, fmt.Errorf("logical router %q not found", name)
	}
	return &routers[0], nil
}

func (c *LiveOVNClient) CreateLogicalRouterPort(ctx context.Context, routerName string, lrp *nbdb.LogicalRouterPort) error {
	if lrp.UUID == "" {
		lrp.UUID = namedUUID("lrp_", lrp.Name)
	}
	createOps, err := c.client.Create(lrp)
	if err != nil {
		return fmt.Errorf("create logical router port ops: %w", err)
	}
	lr, err := c.GetLogicalRouter(ctx, routerName)
	if err != nil {
		return fmt.Errorf("get logical router for port add: %w", err)
	}
	mutateOps, err := c.client.Where(lr).Mutate(lr, model.Mutation{Field: &lr.Ports, Mutator: "insert", Value: []string{lrp.UUID}})
	if err != nil {
		return fmt.Errorf("mutate logical router ports ops: %w", err)
	}
	return c.transactOps(ctx, append(createOps, mutateOps...))
}

func (c *LiveOVNClient) DeleteLogicalRouterPort(ctx context.Context, routerName string, portName string) error {
	var ports []nbdb.LogicalRouterPort
	if err := c.client.WhereCache(func(lrp *nbdb.LogicalRouterPort) bool { return lrp.Name == portName }).List(ctx, &ports); err != nil {
		return fmt.Errorf("get logical router port: %w", err)
	}
	if len(ports) == 0 {
		return fmt.Errorf("logical router port %q not found", portName)
	}
	lrp := &ports[0]
	lr, err := c.GetLogicalRouter(ctx, routerName)
	if err != nil {
		return fmt.Errorf("get logical router for port delete: %w", err)
	}
	mutateOps, err := c.client.Where(lr).Mutate(lr, model.Mutation{Field: &lr.Ports, Mutator: "delete", Value: []string{lrp.UUID}})
	if err != nil {
		return fmt.Errorf("mutate logical router ports ops: %w", err)
	}
	deleteOps, err := c.client.Where(lrp).Delete()
	if err != nil {
		return fmt.Errorf("delete logical router port ops: %w", err)
	}
	return c.transactOps(ctx, append(mutateOps, deleteOps...))
}

func (c *LiveOVNClient) AddStaticRoute(ctx context.Context, routerName string, route *nbdb.LogicalRouterStaticRoute) error {
	if route.UUID == "" {
		route.UUID = namedUUID("route_", route.IPPrefix)
	}
	createOps, err := c.client.Create(route)
	if err != nil {
		return fmt.Errorf("create static route ops: %w", err)
	}
	lr, err := c.GetLogicalRouter(ctx, routerName)
	if err != nil {
		return fmt.Errorf("get logical router for route add: %w", err)
	}
	mutateOps, err := c.client.Where(lr).Mutate(lr, model.Mutation{Field: &lr.StaticRoutes, Mutator: "insert", Value: []string{route.UUID}})
	if err != nil {
		return fmt.Errorf("mutate router static routes ops: %w", err)
	}
	return c.transactOps(ctx, append(createOps, mutateOps...))
}

func (c *LiveOVNClient) DeleteStaticRoute(ctx context.Context, routerName string, ipPrefix string) error {
	var routes []nbdb.LogicalRouterStaticRoute
	if err := c.client.WhereCache(func(r *nbdb.LogicalRouterStaticRoute) bool { return r.IPPrefix == ipPrefix }).List(ctx, &routes); err != nil {
		return fmt.Errorf("find static route: %w", err)
	}
	if len(routes) == 0 {
		return fmt.Errorf("static route %s not found", ipPrefix)
	}
	route := &routes[0]
	lr, err := c.GetLogicalRouter(ctx, routerName)
	if err != nil {
		return fmt.Errorf("get logical router for route delete: %w", err)
	}
	mutateOps, err := c.client.Where(lr).Mutate(lr, model.Mutation{Field: &lr.StaticRoutes, Mutator: "delete", Value: []string{route.UUID}})
	if err != nil {
		return fmt.Errorf("mutate router static routes ops: %w", err)
	}
	deleteOps, err := c.client.Where(route).Delete()
	if err != nil {
		return fmt.Errorf("delete static route ops: %w", err)
	}
	return c.transactOps(ctx, append(mutateOps, deleteOps...))
}

func (c *LiveOVNClient) CreateACL(ctx context.Context, switchName string, acl *nbdb.ACL) error {
	if acl.UUID == "" {
		acl.UUID = namedUUID("acl_", fmt.Sprintf("%s_%d", switchName, acl.Priority))
	}
	createOps, err := c.client.Create(acl)
	if err != nil {
		return fmt.Errorf("create ACL ops: %w", err)
	}
	ls, err := c.GetLogicalSwitch(ctx, switchName)
	if err != nil {
		return fmt.Errorf("get logical switch for ACL add: %w", err)
	}
	mutateOps, err := c.client.Where(ls).Mutate(ls, model.Mutation{Field: &ls.ACLs, Mutator: "insert", Value: []string{acl.UUID}})
	if err != nil {
		return fmt.Errorf("mutate switch ACLs ops: %w", err)
	}
	return c.transactOps(ctx, append(createOps, mutateOps...))
}

func (c *LiveOVNClient) ListACLs(ctx context.Context, switchName string) ([]nbdb.ACL, error) {
	ls, err := c.GetLogicalSwitch(ctx, switchName)
	if err != nil {
		return nil, fmt.Errorf("get logical switch for ACL list: %w", err)
	}
	have := make(map[string]bool, len(ls.ACLs))
	for _, uuid := range ls.ACLs {
		have[uuid] = true
	}
	var all []nbdb.ACL
	if err := c.client.List(ctx, &all); err != nil {
		return nil, fmt.Errorf("list ACLs: %w", err)
	}
	out := make([]nbdb.ACL, 0, len(have))
	for _, a := range all {
		if have[a.UUID] {
			out = append(out, a)
		}
	}
	return out, nil
}

// ClearACLs removes every ACL currently attached to switchName — used by
// push.go before writing a freshly replaced firewall rule set, mirroring
// vpcstore.ReplaceFirewallRules' whole-collection replace semantics.
func (c *LiveOVNClient) ClearACLs(ctx context.Context, switchName string) error {
	ls, err := c.GetLogicalSwitch(ctx, switchName)
	if err != nil {
		return fmt.Errorf("get logical switch for ACL clear: %w", err)
	}
	if len(ls.ACLs) == 0 {
		return nil
	}
	acls, err := c.ListACLs(ctx, switchName)
	if err != nil {
		return err
	}
	var ops []ovsdb.Operation
	mutateOps, err := c.client.Where(ls).Mutate(ls, model.Mutation{Field: &ls.ACLs, Mutator: "delete", Value: ls.ACLs})
	if err != nil {
		return fmt.Errorf("mutate switch ACLs ops: %w", err)
	}
	ops = append(ops, mutateOps...)
	for i := range acls {
		deleteOps, err := c.client.Where(&acls[i]).Delete()
		if err != nil {
			return fmt.Errorf("delete ACL ops: %w", err)
		}
		ops = append(ops, deleteOps...)
	}
	return c.transactOps(ctx, ops)
}
