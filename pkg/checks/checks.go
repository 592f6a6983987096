// Package checks runs fast, read-only toolchain probes for the
// ecosystems detected in a repository, reporting which tools are ready
// before any heavier work is attempted. All failures are recoverable.
package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/reposetup/pkg/execute"
	"github.com/arthur-debert/reposetup/pkg/logging"
	"github.com/arthur-debert/reposetup/pkg/sanitize"
	"github.com/arthur-debert/reposetup/pkg/types"
)

// probeTimeout bounds each version probe; these are expected to be instant.
const probeTimeout = 30 * time.Second

// probes maps each manifest kind to the tool whose presence it implies.
var probes = map[types.ManifestKind][]string{
	types.PythonRequirements:    {"pip", "--version"},
	types.PythonPoetryPyproject: {"poetry", "--version"},
	types.PythonPlainPyproject:  {"pip", "--version"},
	types.PythonSetupPy:         {"pip", "--version"},
	types.PythonPipfile:         {"pipenv", "--version"},
	types.NodePackageJson:       {"npm", "--version"},
	types.RubyGemfile:           {"bundle", "--version"},
	types.GoMod:                 {"go", "version"},
	types.RustCargo:             {"cargo", "--version"},
	types.JavaMaven:             {"mvn", "--version"},
	types.JavaGradle:            {"gradle", "--version"},
	types.Dockerfile:            {"docker", "--version"},
}

// Checker verifies toolchain readiness for discovered roots.
type Checker struct {
	runner    *execute.Runner
	sanitizer *sanitize.Sanitizer
	sink      types.LogSink
	logger    zerolog.Logger
}

// NewChecker returns a Checker.
func NewChecker(runner *execute.Runner, sanitizer *sanitize.Sanitizer, sink types.LogSink) *Checker {
	if sanitizer == nil {
		sanitizer = sanitize.New("")
	}
	return &Checker{
		runner:    runner,
		sanitizer: sanitizer,
		sink:      sink,
		logger:    logging.GetLogger("checks"),
	}
}

// Run probes each toolchain needed by the roots' manifests, once per
// tool, and logs readiness. Returns the number of ready toolchains.
func (c *Checker) Run(ctx context.Context, roots []types.ProjectRoot) int {
	probed := map[string]bool{}
	ready := 0

	for _, root := range roots {
		for _, kind := range types.AllManifestKinds {
			if !root.HasManifest(kind) {
				continue
			}
			argv := probes[kind]
			if probed[argv[0]] {
				continue
			}
			probed[argv[0]] = true
			if c.probe(ctx, argv) {
				ready++
			}
		}
	}

	if len(probed) == 0 {
		c.info("Quick checks: no toolchains to verify")
	} else {
		c.info("Quick checks: %d of %d toolchains ready", ready, len(probed))
	}
	return ready
}

func (c *Checker) probe(ctx context.Context, argv []string) bool {
	if !c.runner.LookPath(argv[0]) {
		c.warn("Toolchain check: %s is not installed or not in PATH", argv[0])
		return false
	}

	result, err := c.runner.Execute(ctx, execute.Command{
		Argv:    argv,
		Timeout: probeTimeout,
	})
	if err != nil {
		c.warn("Toolchain check for %s failed: %s", argv[0], c.sanitizer.SanitizeError(err))
		return false
	}

	c.logger.Debug().Str("tool", argv[0]).Str("version", firstLine(result.Stdout)).Msg("Toolchain ready")
	c.info("Toolchain ready: %s", argv[0])
	return true
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func (c *Checker) info(format string, args ...interface{}) {
	msg := c.sanitizer.Sanitize(fmt.Sprintf(format, args...))
	c.logger.Info().Msg(msg)
	if c.sink != nil {
		c.sink.Log(types.LevelInfo, msg)
	}
}

func (c *Checker) warn(format string, args ...interface{}) {
	msg := c.sanitizer.Sanitize(fmt.Sprintf(format, args...))
	c.logger.Warn().Msg(msg)
	if c.sink != nil {
		c.sink.Log(types.LevelWarning, msg)
	}
}
