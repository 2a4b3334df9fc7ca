// Package svc is fabricd's service registry, generalized from
// hive/service/service.go: it maps a service type name to a constructor and
// gives cmd/fabricd a single Service interface to Start/Stop/Reload any of
// them.
package svc

import (
	"fmt"

	"github.com/mulgadc/fabricd/fabric/ovnpush"
	"github.com/mulgadc/fabricd/hive/services/nats"
)

// Service is the lifecycle contract every fabricd daemon implements.
type Service interface {
	Start() (int, error)
	Stop() error
	Status() (string, error)
	Shutdown() error
	Reload() error
}

// New constructs the named service. btype selects which fabricd daemon to
// run; config is that daemon's *Config, type-asserted inside its New.
func New(btype string, config any) (Service, error) {
	switch btype {
	case "nats":
		return nats.New(config)
	case "ovnpush":
		return ovnpush.New(config)
	}
	return nil, fmt.Errorf("unknown service type: %s", btype)
}
