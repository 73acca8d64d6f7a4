// Package provision checks which analysis tools are installed and tells the
// operator how to install the missing ones. Nothing here is fatal; analysis
// degrades per tool.
package provision

import (
	"context"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"panopticon/internal/analyzer"
	"panopticon/internal/logging"
)

const versionProbeTimeout = 10 * time.Second

// ToolStatus is the provisioning state of one tool.
type ToolStatus struct {
	Name        string `json:"name"`
	Installed   bool   `json:"installed"`
	Version     string `json:"version,omitempty"`
	Outdated    bool   `json:"outdated,omitempty"`
	MinVersion  string `json:"minVersion,omitempty"`
	InstallHint string `json:"installHint,omitempty"`
}

// Checker probes the tool table against the local system.
type Checker struct {
	registry *analyzer.Registry
	logger   *logging.Logger
	lookPath func(string) (string, error)
	probe    func(ctx context.Context, binary string, args []string) (string, error)
}

// NewChecker builds a checker over the given registry.
func NewChecker(registry *analyzer.Registry, logger *logging.Logger) *Checker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Checker{
		registry: registry,
		logger:   logger.Component("provision"),
		lookPath: exec.LookPath,
		probe:    runVersionProbe,
	}
}

// Check probes every registered tool and returns statuses in registry order.
func (c *Checker) Check(ctx context.Context) []ToolStatus {
	specs := c.registry.All()
	out := make([]ToolStatus, 0, len(specs))
	for _, spec := range specs {
		if spec.Disabled {
			continue
		}
		out = append(out, c.checkOne(ctx, spec))
	}
	return out
}

func (c *Checker) checkOne(ctx context.Context, spec analyzer.ToolSpec) ToolStatus {
	status := ToolStatus{
		Name:        spec.Name,
		MinVersion:  spec.MinVersion,
		InstallHint: installHint(spec),
	}

	if _, err := c.lookPath(spec.Binary); err != nil {
		c.logger.Debug("Tool missing", map[string]interface{}{"tool": spec.Name})
		return status
	}
	status.Installed = true

	if len(spec.VersionArgs) == 0 {
		return status
	}
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()
	output, err := c.probe(probeCtx, spec.Binary, spec.VersionArgs)
	if err != nil {
		// Present but the version probe failed; still usable.
		return status
	}
	status.Version = parseVersion(output)
	if spec.MinVersion != "" && !versionAtLeast(status.Version, spec.MinVersion) {
		status.Outdated = true
	}
	return status
}

func runVersionProbe(ctx context.Context, binary string, args []string) (string, error) {
	output, err := exec.CommandContext(ctx, binary, args...).Output()
	return string(output), err
}

// installHint picks the per-OS install command, falling back to "default".
func installHint(spec analyzer.ToolSpec) string {
	if hint, ok := spec.Install[runtime.GOOS]; ok {
		return hint
	}
	return spec.Install["default"]
}

var versionPattern = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)

// parseVersion extracts "1.2.3" from the usual version banner shapes
// ("v1.2.3", "tool version 1.2.3", multi-line banners).
func parseVersion(output string) string {
	if matches := versionPattern.FindStringSubmatch(output); len(matches) >= 2 {
		return matches[1]
	}
	return strings.TrimSpace(output)
}

func versionAtLeast(version, minVersion string) bool {
	v := versionParts(version)
	m := versionParts(minVersion)
	for i := 0; i < 3; i++ {
		if v[i] > m[i] {
			return true
		}
		if v[i] < m[i] {
			return false
		}
	}
	return true
}

func versionParts(v string) [3]int {
	var parts [3]int
	split := strings.Split(strings.TrimPrefix(v, "v"), ".")
	for i := 0; i < 3 && i < len(split); i++ {
		parts[i], _ = strconv.Atoi(split[i])
	}
	return parts
}
