// Package provision installs dependencies for every discovered project
// root by dispatching to each matching ecosystem's external tool. Every
// failure here is recoverable: one tool failing never blocks the other
// ecosystems in the same root or the remaining roots.
package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"

	setuperr "github.com/arthur-debert/reposetup/pkg/errors"
	"github.com/arthur-debert/reposetup/pkg/execute"
	"github.com/arthur-debert/reposetup/pkg/logging"
	"github.com/arthur-debert/reposetup/pkg/sanitize"
	"github.com/arthur-debert/reposetup/pkg/types"
)

// attempt is one planned tool invocation for a project root.
type attempt struct {
	tool string
	argv []string
	note string
}

// Provisioner dispatches dependency installation per project root.
type Provisioner struct {
	runner    *execute.Runner
	sanitizer *sanitize.Sanitizer
	sink      types.LogSink
	isolated  bool
	logger    zerolog.Logger
}

// New returns a Provisioner. When isolated is true a per-root interpreter
// environment is created for Python tooling.
func New(runner *execute.Runner, sanitizer *sanitize.Sanitizer, sink types.LogSink, isolated bool) *Provisioner {
	if sanitizer == nil {
		sanitizer = sanitize.New("")
	}
	return &Provisioner{
		runner:    runner,
		sanitizer: sanitizer,
		sink:      sink,
		isolated:  isolated,
		logger:    logging.GetLogger("provision"),
	}
}

// Provision runs every matching ecosystem tool for every root, strictly in
// discovery order. The returned outcomes record each attempt; they are
// informational and never affect the run's verdict.
func (p *Provisioner) Provision(ctx context.Context, roots []types.ProjectRoot) []types.ProvisionOutcome {
	var outcomes []types.ProvisionOutcome

	for _, root := range roots {
		p.info("Checking for dependencies in %s", root.Path)
		for _, a := range p.plan(ctx, root) {
			outcomes = append(outcomes, p.run(ctx, root.Path, a))
		}
	}

	if !AnySucceeded(outcomes) {
		p.info("No dependency files found or no package managers available")
	}

	return outcomes
}

// AnySucceeded reports whether at least one installation attempt succeeded.
func AnySucceeded(outcomes []types.ProvisionOutcome) bool {
	for _, o := range outcomes {
		if o.Succeeded {
			return true
		}
	}
	return false
}

// plan builds the ordered tool invocations for one root. All matching
// ecosystems run; only Python is narrowed to a single attempt by the
// Pipfile > poetry > requirements > plain precedence.
func (p *Provisioner) plan(ctx context.Context, root types.ProjectRoot) []attempt {
	var attempts []attempt

	if a := p.planPython(ctx, root); a != nil {
		attempts = append(attempts, *a)
	}
	if root.HasManifest(types.NodePackageJson) {
		p.info("Found package.json")
		attempts = append(attempts, attempt{tool: "npm", argv: []string{"npm", "install"}})
	}
	if root.HasManifest(types.RubyGemfile) {
		p.info("Found Gemfile")
		attempts = append(attempts, attempt{tool: "bundle", argv: []string{"bundle", "install"}})
	}
	if root.HasManifest(types.GoMod) {
		p.info("Found go.mod")
		attempts = append(attempts, attempt{tool: "go", argv: []string{"go", "mod", "download"}})
	}
	if root.HasManifest(types.RustCargo) {
		p.info("Found Cargo.toml%s", cargoPackageNote(root.Path))
		attempts = append(attempts, attempt{tool: "cargo", argv: []string{"cargo", "fetch"}})
	}
	if root.HasManifest(types.JavaMaven) {
		p.info("Found pom.xml%s", mavenCoordinatesNote(root.Path))
		attempts = append(attempts, attempt{
			tool: "mvn",
			argv: []string{"mvn", "dependency:resolve", "-B"},
		})
	}
	if root.HasManifest(types.JavaGradle) {
		p.info("Found Gradle build file")
		attempts = append(attempts, p.gradleAttempt(root.Path))
	}

	return attempts
}

// planPython applies the Python resolution precedence: Pipfile, then
// Poetry pyproject, then requirements.txt, then a plain setup.py or
// non-Poetry pyproject installed as a directory.
func (p *Provisioner) planPython(ctx context.Context, root types.ProjectRoot) *attempt {
	pythonBin := ""
	if p.isolated && rootNeedsPython(root) {
		pythonBin = p.ensureEnvironment(ctx, root.Path)
	}

	switch {
	case root.HasManifest(types.PythonPipfile):
		p.info("Found Pipfile")
		return &attempt{tool: "pipenv", argv: []string{p.pythonTool(pythonBin, "pipenv"), "install"}}
	case root.HasManifest(types.PythonPoetryPyproject):
		p.info("Found pyproject.toml (poetry)")
		return &attempt{tool: "poetry", argv: []string{p.pythonTool(pythonBin, "poetry"), "install"}}
	case root.HasManifest(types.PythonRequirements):
		p.info("Found requirements.txt")
		return &attempt{tool: "pip", argv: []string{p.pythonTool(pythonBin, "pip"), "install", "-r", "requirements.txt"}}
	case root.HasManifest(types.PythonSetupPy) || root.HasManifest(types.PythonPlainPyproject):
		p.info("Found Python package definition")
		return &attempt{tool: "pip", argv: []string{p.pythonTool(pythonBin, "pip"), "install", "."}}
	}
	return nil
}

func rootNeedsPython(root types.ProjectRoot) bool {
	return root.HasManifest(types.PythonPipfile) ||
		root.HasManifest(types.PythonPoetryPyproject) ||
		root.HasManifest(types.PythonRequirements) ||
		root.HasManifest(types.PythonSetupPy) ||
		root.HasManifest(types.PythonPlainPyproject)
}

// gradleAttempt prefers the in-repo wrapper script over the system tool.
func (p *Provisioner) gradleAttempt(rootPath string) attempt {
	wrapper := "gradlew"
	if runtime.GOOS == "windows" {
		wrapper = "gradlew.bat"
	}
	wrapperPath := filepath.Join(rootPath, wrapper)
	if info, err := os.Stat(wrapperPath); err == nil && !info.IsDir() {
		return attempt{tool: wrapper, argv: []string{wrapperPath, "dependencies"}, note: "using project wrapper"}
	}
	return attempt{tool: "gradle", argv: []string{"gradle", "dependencies"}}
}

// run performs one attempt in the root's directory. Failures degrade to
// warnings so remaining ecosystems and roots still proceed.
func (p *Provisioner) run(ctx context.Context, rootPath string, a attempt) types.ProvisionOutcome {
	outcome := types.ProvisionOutcome{Root: rootPath, Tool: a.tool}

	if !p.toolAvailable(a.argv[0]) {
		outcome.Message = fmt.Sprintf("%s is not installed or not in PATH", a.tool)
		p.warn("Skipping %s in %s: %s", a.tool, rootPath, outcome.Message)
		return outcome
	}

	if a.note != "" {
		p.info("Installing with %s (%s)", a.tool, a.note)
	} else {
		p.info("Installing with %s", a.tool)
	}

	_, err := p.runner.Execute(ctx, execute.Command{
		Argv:    a.argv,
		Dir:     rootPath,
		Timeout: execute.DefaultTimeout,
	})
	if err != nil {
		outcome.Message = p.sanitizer.SanitizeError(err)
		p.warn("Failed to install %s dependencies in %s: %s", a.tool, rootPath, outcome.Message)
		return outcome
	}

	outcome.Succeeded = true
	outcome.Message = fmt.Sprintf("%s completed", a.tool)
	p.info("%s dependencies installed", a.tool)
	return outcome
}

// toolAvailable accepts either a PATH-resolved tool name or an absolute
// path into an isolated environment.
func (p *Provisioner) toolAvailable(tool string) bool {
	if filepath.IsAbs(tool) {
		info, err := os.Stat(tool)
		return err == nil && !info.IsDir()
	}
	return p.runner.LookPath(tool)
}

// ensureEnvironment creates the per-root interpreter environment once and
// returns its binary directory, or "" to fall back to system tools.
func (p *Provisioner) ensureEnvironment(ctx context.Context, rootPath string) string {
	envDir := filepath.Join(rootPath, ".venv")
	binDir := filepath.Join(envDir, "bin")
	if runtime.GOOS == "windows" {
		binDir = filepath.Join(envDir, "Scripts")
	}

	if info, err := os.Stat(envDir); err == nil && info.IsDir() {
		return binDir
	}

	interpreter := "python3"
	if !p.runner.LookPath(interpreter) {
		interpreter = "python"
	}
	if !p.runner.LookPath(interpreter) {
		p.warn("No Python interpreter found; using system package tools")
		return ""
	}

	p.info("Creating isolated environment in %s", envDir)
	_, err := p.runner.Execute(ctx, execute.Command{
		Argv:    []string{interpreter, "-m", "venv", envDir},
		Dir:     rootPath,
		Timeout: execute.DefaultTimeout,
	})
	if err != nil {
		if setuperr.IsErrorCode(err, setuperr.ErrCommandTimeout) {
			p.warn("Environment creation timed out; using system package tools")
		} else {
			p.warn("Failed to create isolated environment: %s; using system package tools",
				p.sanitizer.SanitizeError(err))
		}
		return ""
	}

	return binDir
}

// pythonTool resolves a Python package tool from the isolated environment
// when one exists, otherwise the system tool name.
func (p *Provisioner) pythonTool(binDir, tool string) string {
	if binDir == "" {
		return tool
	}
	candidate := filepath.Join(binDir, tool)
	if runtime.GOOS == "windows" {
		candidate += ".exe"
	}
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return tool
}

func (p *Provisioner) info(format string, args ...interface{}) {
	msg := p.sanitizer.Sanitize(fmt.Sprintf(format, args...))
	p.logger.Info().Msg(msg)
	if p.sink != nil {
		p.sink.Log(types.LevelInfo, msg)
	}
}

func (p *Provisioner) warn(format string, args ...interface{}) {
	msg := p.sanitizer.Sanitize(fmt.Sprintf(format, args...))
	p.logger.Warn().Msg(msg)
	if p.sink != nil {
		p.sink.Log(types.LevelWarning, msg)
	}
}
