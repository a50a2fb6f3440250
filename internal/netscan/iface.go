package netscan

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strings"

	"github.com/officewatch/officewatch/internal/logging"
)

// defaultInterface is the final hardcoded fallback when every detection
// strategy fails. en0 is the conventional primary interface on macOS, where
// this tool historically ran.
const defaultInterface = "en0"

// routeLookupAddr is only used to ask the routing table for the outbound
// interface; no packet is sent to it.
const routeLookupAddr = "1.1.1.1"

// ifaceStrategy returns an interface name or an error to fail over to the
// next strategy in the table.
type ifaceStrategy func(ctx context.Context) (string, error)

// Detector resolves the active network interface for scanning. Detection
// failures are never surfaced to callers; the detector falls through its
// strategy table and ends at the hardcoded default.
type Detector struct {
	// Explicit overrides every strategy when non-empty.
	Explicit string

	goos       string
	logger     *logging.Logger
	routeQuery func(ctx context.Context) (string, error)
}

// NewDetector creates a detector for the current platform.
func NewDetector(explicit string, logger *logging.Logger) *Detector {
	if logger == nil {
		logger = logging.Default()
	}
	return &Detector{
		Explicit:   explicit,
		goos:       runtime.GOOS,
		logger:     logger.WithComponent("iface-detect"),
		routeQuery: queryRouteTable,
	}
}

// Detect returns the interface to scan on. It never fails: strategies are
// tried in platform order and the hardcoded default closes the chain.
func (d *Detector) Detect(ctx context.Context) string {
	if d.Explicit != "" {
		return d.Explicit
	}

	for _, strategy := range d.strategies() {
		iface, err := strategy(ctx)
		if err != nil {
			d.logger.Debug("Interface detection strategy failed", "error", err)
			continue
		}
		if iface != "" {
			return iface
		}
	}

	d.logger.Warn("All interface detection strategies failed, using default",
		"interface", defaultInterface)
	return defaultInterface
}

// strategies returns the platform-ordered strategy table.
func (d *Detector) strategies() []ifaceStrategy {
	switch d.goos {
	case "linux":
		return []ifaceStrategy{d.fromRouteTable, firstActiveInterface}
	case "darwin":
		return []ifaceStrategy{fixedDefault}
	default:
		return []ifaceStrategy{firstActiveInterface}
	}
}

// fromRouteTable asks the kernel routing table which interface carries
// traffic toward a public address.
func (d *Detector) fromRouteTable(ctx context.Context) (string, error) {
	out, err := d.routeQuery(ctx)
	if err != nil {
		return "", err
	}
	return parseRouteInterface(out)
}

func fixedDefault(_ context.Context) (string, error) {
	return defaultInterface, nil
}

// queryRouteTable runs `ip route get` against the lookup address.
func queryRouteTable(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "ip", "route", "get", routeLookupAddr).Output()
	if err != nil {
		return "", fmt.Errorf("ip route get: %w", err)
	}
	return string(out), nil
}

// parseRouteInterface extracts the interface token following "dev" from
// `ip route get` output, e.g.
//
//	1.1.1.1 via 192.168.1.1 dev wlp3s0 src 192.168.1.20 uid 1000
func parseRouteInterface(out string) (string, error) {
	fields := strings.Fields(out)
	for i, f := range fields {
		if f == "dev" && i+1 < len(fields) {
			return fields[i+1], nil
		}
	}
	return "", fmt.Errorf("no dev token in route output")
}

// firstActiveInterface enumerates local interfaces and picks the first
// non-loopback one with an assigned IPv4 address.
func firstActiveInterface(_ context.Context) (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ipnet.IP.To4() != nil {
				return iface.Name, nil
			}
		}
	}
	return "", fmt.Errorf("no active IPv4 interface found")
}
