package ovnpush

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/mulgadc/fabricd/hive/utils"
)

// sudoCommand wraps exec.Command with sudo when running as non-root. OVS/OVN
// commands require elevated privileges; running as root (containers) needs
// no wrapper.
func sudoCommand(name string, args ...string) *exec.Cmd {
	if os.Getuid() == 0 {
		return exec.Command(name, args...)
	}
	return exec.Command("sudo", append([]string{name}, args...)...)
}

var serviceName = "fabricd-ovnpush"

// Config holds the ovnpush service configuration.
type Config struct {
	// NatsHost is the NATS server address (host:port).
	NatsHost string
	// NatsToken is the NATS authentication token.
	NatsToken string
	// OVNNBAddr is the OVN Northbound DB address (e.g. "tcp:127.0.0.1:6641").
	OVNNBAddr string
	// BaseDir is the base directory for PID files and state.
	BaseDir string
	// Debug enables debug logging.
	Debug bool
}

// Service implements fabricd's svc.Service interface for the OVN downstream
// push daemon.
type Service struct {
	Config *Config
}

// New creates a new ovnpush Service.
func New(config any) (*Service, error) {
	return &Service{Config: config.(*Config)}, nil
}

func (svc *Service) Start() (int, error) {
	if err := utils.WritePidFileTo(svc.Config.BaseDir, serviceName, os.Getpid()); err != nil {
		slog.Error("failed to write pid file", "err", err)
	}
	if err := launchService(svc.Config); err != nil {
		slog.Error("failed to launch ovnpush service", "err", err)
		return 0, err
	}
	return os.Getpid(), nil
}

func (svc *Service) Stop() error {
	return utils.StopProcessAt(svc.Config.BaseDir, serviceName)
}

func (svc *Service) Status() (string, error) {
	return "", nil
}

func (svc *Service) Shutdown() error {
	return svc.Stop()
}

func (svc *Service) Reload() error {
	return nil
}

// checkBrInt verifies the OVS integration bridge (br-int) exists.
var checkBrInt = func() error {
	cmd := sudoCommand("ovs-vsctl", "br-exists", "br-int")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("br-int does not exist: run ./scripts/setup-ovn.sh --management")
	}
	return nil
}

// checkOVNController verifies ovn-controller is running on this host.
var checkOVNController = func() error {
	cmd := sudoCommand("ovs-appctl", "-t", "ovn-controller", "version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ovn-controller is not running: run ./scripts/setup-ovn.sh --management")
	}
	return nil
}

func preflightOVN() error {
	if err := checkBrInt(); err != nil {
		return fmt.Errorf("OVN preflight failed: %w", err)
	}
	if err := checkOVNController(); err != nil {
		return fmt.Errorf("OVN preflight failed: %w", err)
	}
	return nil
}

func launchService(cfg *Config) error {
	slog.Info("starting ovnpush service", "ovn_nb_addr", cfg.OVNNBAddr, "nats_host", cfg.NatsHost)

	if err := preflightOVN(); err != nil {
		slog.Error("OVN preflight check failed — ovnpush cannot start without OVN", "err", err)
		return err
	}
	slog.Info("OVN preflight passed (br-int exists, ovn-controller running)")

	nc, err := utils.ConnectNATS(cfg.NatsHost, cfg.NatsToken)
	if err != nil {
		slog.Error("failed to connect to NATS", "err", err)
		return err
	}
	defer nc.Close()

	if cfg.OVNNBAddr == "" {
		return fmt.Errorf("OVN NB DB address not configured (ovn_nb_addr is empty)")
	}

	liveClient := NewLiveOVNClient(cfg.OVNNBAddr)
	ctx := context.Background()
	if err := liveClient.Connect(ctx); err != nil {
		slog.Error("failed to connect to OVN NB DB", "endpoint", cfg.OVNNBAddr, "err", err)
		return fmt.Errorf("connect OVN NB DB: %w", err)
	}
	defer liveClient.Close()

	topo := NewTopologyHandler(liveClient)
	subs, err := topo.Subscribe(nc)
	if err != nil {
		slog.Error("failed to subscribe to VPC resource topics", "err", err)
		return err
	}
	defer func() {
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
	}()

	slog.Info("ovnpush service started, waiting for VPC resource events", "subscriptions", len(subs))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("ovnpush service shutting down")
	return nil
}
