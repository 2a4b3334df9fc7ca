package ovnpush

import (
	"context"
	"fmt"
	"sync"

	"github.com/mulgadc/fabricd/fabric/ovnpush/nbdb"
	"github.com/mulgadc/fabricd/hive/utils"
)

// mockClient implements Client with in-memory storage, grounded in
// hive/services/vpcd/mock_ovn.go's MockOVNClient.
type mockClient struct {
	mu        sync.Mutex
	connected bool

	switches    map[string]*nbdb.LogicalSwitch
	ports       map[string]*nbdb.LogicalSwitchPort
	routers     map[string]*nbdb.LogicalRouter
	routerPorts map[string]*nbdb.LogicalRouterPort
	routes      map[string]*nbdb.LogicalRouterStaticRoute
	acls        map[string]*nbdb.ACL
}

// NewMockClient creates an in-memory Client for tests.
func NewMockClient() Client {
	return &mockClient{
		switches:    make(map[string]*nbdb.LogicalSwitch),
		ports:       make(map[string]*nbdb.LogicalSwitchPort),
		routers:     make(map[string]*nbdb.LogicalRouter),
		routerPorts: make(map[string]*nbdb.LogicalRouterPort),
		routes:      make(map[string]*nbdb.LogicalRouterStaticRoute),
		acls:        make(map[string]*nbdb.ACL),
	}
}

func (m *mockClient) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *mockClient) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
}

func (m *mockClient) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockClient) CreateLogicalSwitch(_ context.Context, ls *nbdb.LogicalSwitch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.switches[ls.Name]; exists {
		return fmt.Errorf("logical switch %q already exists", ls.Name)
	}
	if ls.UUID == "" {
		ls.UUID = utils.GenerateResourceID("ovn")
	}
	stored := *ls
	m.switches[ls.Name] = &stored
	return nil
}

func (m *mockClient) DeleteLogicalSwitch(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.switches[name]; !exists {
		return fmt.Errorf("logical switch %q not found", name)
	}
	delete(m.switches, name)
	return nil
}

func (m *mockClient) GetLogicalSwitch(_ context.Context, name string) (*nbdb.LogicalSwitch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, exists := m.switches[name]
	if !exists {
		return nil, fmt.Errorf("logical switch %q not found", name)
	}
	result := *ls
	return &result, nil
}

func (m *mockClient) CreateLogicalSwitchPort(_ context.Context, switchName string, lsp *nbdb.LogicalSwitchPort) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, exists := m.switches[switchName]
	if !exists {
		return fmt.Errorf("logical switch %q not found", switchName)
	}
	if _, exists := m.ports[lsp.Name]; exists {
		return fmt.Errorf("logical switch port %q already exists", lsp.Name)
	}
	if lsp.UUID == "" {
		lsp.UUID = utils.GenerateResourceID("ovn")
	}
	stored := *lsp
	m.ports[lsp.Name] = &stored
	ls.Ports = append(ls.Ports, lsp.UUID)
	return nil
}

func (m *mockClient) DeleteLogicalSwitchPort(_ context.Context, switchName string, portName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	port, exists := m.ports[portName]
	if !exists {
		return fmt.Errorf("logical switch port %q not found", portName)
	}
	ls, exists := m.switches[switchName]
	if !exists {
		return fmt.Errorf("logical switch %q not found", switchName)
	}
	for i, uuid := range ls.Ports {
		if uuid == port.UUID {
			ls.Ports = append(ls.Ports[:i], ls.Ports[i+1:]...)
			break
		}
	}
	delete(m.ports, portName)
	return nil
}

func (m *mockClient) GetLogicalSwitchPort(_ context.Context, name string) (*nbdb.LogicalSwitchPort, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lsp, exists := m.ports[name]
	if !exists {
		return nil, fmt.Errorf("logical switch port %q not found", name)
	}
	result := *lsp
	return &result, nil
}

func (m *mockClient) CreateLogicalRouter(_ context.Context, lr *nbdb.LogicalRouter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.routers[lr.Name]; exists {
		return fmt.Errorf("logical router %q already exists", lr.Name)
	}
	if lr.UUID == "" {
		lr.UUID = utils.GenerateResourceID("ovn")
	}
	stored := *lr
	m.routers[lr.Name] = &stored
	return nil
}

func (m *mockClient) DeleteLogicalRouter(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.routers[name]; !exists {
		return fmt.Errorf("logical router %q not found", name)
	}
	delete(m.routers, name)
	return nil
}

func (m *mockClient) GetLogicalRouter(_ context.Context, name string) (*nbdb.LogicalRouter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lr, exists := m.routers[name]
	if !exists {
		return nil, fmt.Errorf("logical router %q not found", name)
	}
	result := *lr
	return &result, nil
}

func (m *mockClient) CreateLogicalRouterPort(_ context.Context, routerName string, lrp *nbdb.LogicalRouterPort) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lr, exists := m.routers[routerName]
	if !exists {
		return fmt.Errorf("logical router %q not found", routerName)
	}
	if _, exists := m.routerPorts[lrp.Name]; exists {
		return fmt.Errorf("logical router port %q already exists", lrp.Name)
	}
	if lrp.UUID == "" {
		lrp.UUID = utils.GenerateResourceID("ovn")
	}
	stored := *lrp
	m.routerPorts[lrp.Name] = &stored
	lr.Ports = append(lr.Ports, lrp.UUID)
	return nil
}

func (m *mockClient) DeleteLogicalRouterPort(_ context.Context, routerName string, portName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	port, exists := m.routerPorts[portName]
	if !exists {
		return fmt.Errorf("logical router port %q not found", portName)
	}
	lr, exists := m.routers[routerName]
	if !exists {
		return fmt.Errorf("logical router %q not found", routerName)
	}
	for i, uuid := range lr.Ports {
		if uuid == port.UUID {
			lr.Ports = append(lr.Ports[:i], lr.Ports[i+1:]...)
			break
		}
	}
	delete(m.routerPorts, portName)
	return nil
}

func (m *mockClient) AddStaticRoute(_ context.Context, routerName string, route *nbdb.LogicalRouterStaticRoute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lr, exists := m.routers[routerName]
	if !exists {
		return fmt.Errorf("logical router %q not found", routerName)
	}
	if route.UUID == "" {
		route.UUID = utils.GenerateResourceID("route")
	}
	stored := *route
	m.routes[route.UUID] = &stored
	lr.StaticRoutes = append(lr.StaticRoutes, route.UUID)
	return nil
}

func (m *mockClient) DeleteStaticRoute(_ context.Context, routerName string, ipPrefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lr, exists := m.routers[routerName]
	if !exists {
		return fmt.Errorf("logical router %q not found", routerName)
	}
	var found *nbdb.LogicalRouterStaticRoute
	for _, r := range m.routes {
		if r.IPPrefix == ipPrefix {
			found = r
			break
		}
	}
	if found == nil {
		return fmt.Errorf("static route %s not found", ipPrefix)
	}
	for i, uuid := range lr.StaticRoutes {
		if uuid == found.UUID {
			lr.StaticRoutes = append(lr.StaticRoutes[:i], lr.StaticRoutes[i+1:]...)
			break
		}
	}
	delete(m.routes, found.UUID)
	return nil
}

func (m *mockClient) CreateACL(_ context.Context, switchName string, acl *nbdb.ACL) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, exists := m.switches[switchName]
	if !exists {
		return fmt.Errorf("logical switch %q not found", switchName)
	}
	if acl.UUID == "" {
		acl.UUID = utils.GenerateResourceID("acl")
	}
	stored := *acl
	m.acls[acl.UUID] = &stored
	ls.ACLs = append(ls.ACLs, acl.UUID)
	return nil
}

func (m *mockClient) ListACLs(_ context.Context, switchName string) ([]nbdb.ACL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, exists := m.switches[switchName]
	if !exists {
		return nil, fmt.Errorf("logical switch %q not found", switchName)
	}
	out := make([]nbdb.ACL, 0, len(ls.ACLs))
	for _, uuid := range ls.ACLs {
		if acl, ok := m.acls[uuid]; ok {
			out = append(out, *acl)
		}
	}
	return out, nil
}

func (m *mockClient) ClearACLs(_ context.Context, switchName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, exists := m.switches[switchName]
	if !exists {
		return fmt.Errorf("logical switch %q not found", switchName)
	}
	for _, uuid := range ls.ACLs {
		delete(m.acls, uuid)
	}
	ls.ACLs = nil
	return nil
}
