// Package netscan implements the office presence scan pipeline: invoking
// the external arp-scan utility, detecting the active network interface,
// parsing scanner output into observations, and aggregating a double scan
// into a deduplicated observation set.
package netscan

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/officewatch/officewatch/internal/errors"
)

// Fixed arp-scan tuning flags. One retry with a short interval and per-host
// timeout keeps a full sweep of a /24 in the low seconds; --ignoredups and
// --plain give machine-parsable one-line-per-host output.
const (
	scanRetries      = 1
	scanIntervalMs   = 100
	scanTimeoutMs    = 200
	defaultScanGrace = 2 * time.Minute
)

// Runner invokes one network scan on the given interface and returns the
// scanner's raw stdout. Implementations wrap the external scan binary; the
// rest of the pipeline only sees this interface so it can be tested with a
// fake.
type Runner interface {
	Run(ctx context.Context, iface string) (string, error)
}

// ArpScanRunner shells out to arp-scan as a privileged subprocess.
type ArpScanRunner struct {
	// Path to the arp-scan binary.
	Path string

	// Run through sudo; arp-scan needs raw socket access.
	UseSudo bool

	// Hard timeout for one invocation. The scanner has its own per-host
	// timeout but a wedged subprocess must still be bounded.
	Timeout time.Duration
}

// NewArpScanRunner creates a runner for the given binary path.
func NewArpScanRunner(path string, useSudo bool, timeout time.Duration) *ArpScanRunner {
	if path == "" {
		path = "arp-scan"
	}
	if timeout <= 0 {
		timeout = defaultScanGrace
	}
	return &ArpScanRunner{Path: path, UseSudo: useSudo, Timeout: timeout}
}

// Run executes one arp-scan sweep of the local subnet on iface. A non-zero
// exit surfaces as a scan error carrying the subprocess stderr; a spawn
// failure surfaces as a scanner-spawn error.
func (r *ArpScanRunner) Run(ctx context.Context, iface string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	args := []string{
		fmt.Sprintf("--interface=%s", iface),
		"--localnet",
		fmt.Sprintf("--retry=%d", scanRetries),
		fmt.Sprintf("--interval=%d", scanIntervalMs),
		fmt.Sprintf("--timeout=%d", scanTimeoutMs),
		"--ignoredups",
		"--plain",
		"--quiet",
	}

	var cmd *exec.Cmd
	if r.UseSudo {
		cmd = exec.CommandContext(ctx, "sudo", append([]string{"-n", r.Path}, args...)...)
	} else {
		cmd = exec.CommandContext(ctx, r.Path, args...) //nolint:gosec // path comes from config, not user input
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", errors.ErrScannerSpawn(iface, err)
	}

	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", errors.ErrScanFailed(iface, detail, err)
	}

	return stdout.String(), nil
}
