package provision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/reposetup/pkg/execute"
	"github.com/arthur-debert/reposetup/pkg/sanitize"
	"github.com/arthur-debert/reposetup/pkg/testutil"
	"github.com/arthur-debert/reposetup/pkg/types"
)

// fakeToolDir creates a directory of stub executables and prepends it to
// PATH so provisioning runs deterministic stand-ins instead of real
// package managers.
func fakeToolDir(t *testing.T, tools map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, script := range tools {
		testutil.CreateExecutable(t, dir, name, "#!/bin/sh\n"+script+"\n")
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return dir
}

func newTestProvisioner(sink types.LogSink, isolated bool) *Provisioner {
	sanitizer := sanitize.New("")
	return New(execute.NewRunner(sanitizer), sanitizer, sink, isolated)
}

func rootWith(t *testing.T, files map[string]string) types.ProjectRoot {
	t.Helper()
	dir := t.TempDir()
	manifests := map[types.ManifestKind]bool{}
	for name, content := range files {
		testutil.CreateFile(t, dir, name, content)
	}
	// Manifest set mirrors what discovery would compute for these files.
	for name := range files {
		switch name {
		case "requirements.txt":
			manifests[types.PythonRequirements] = true
		case "Pipfile":
			manifests[types.PythonPipfile] = true
		case "setup.py":
			manifests[types.PythonSetupPy] = true
		case "package.json":
			manifests[types.NodePackageJson] = true
		case "Gemfile":
			manifests[types.RubyGemfile] = true
		case "go.mod":
			manifests[types.GoMod] = true
		case "Cargo.toml":
			manifests[types.RustCargo] = true
		case "pom.xml":
			manifests[types.JavaMaven] = true
		case "build.gradle":
			manifests[types.JavaGradle] = true
		}
	}
	return types.ProjectRoot{Path: dir, Manifests: manifests}
}

func TestProvisionSingleRequirementsRoot(t *testing.T) {
	fakeToolDir(t, map[string]string{"pip": "touch ran-pip"})
	root := rootWith(t, map[string]string{"requirements.txt": "requests\n"})

	outcomes := newTestProvisioner(nil, false).Provision(context.Background(),
		[]types.ProjectRoot{root})

	require.Len(t, outcomes, 1)
	assert.Equal(t, "pip", outcomes[0].Tool)
	assert.True(t, outcomes[0].Succeeded)
	assert.True(t, testutil.FileExists(t, filepath.Join(root.Path, "ran-pip")))
	assert.True(t, AnySucceeded(outcomes))
}

func TestProvisionFailingToolDoesNotBlockOthersInRoot(t *testing.T) {
	fakeToolDir(t, map[string]string{
		"npm":    "echo npm-broke >&2; exit 1",
		"bundle": "touch ran-bundle",
	})
	root := rootWith(t, map[string]string{
		"package.json": "{}\n",
		"Gemfile":      "source 'https://rubygems.org'\n",
	})

	sink := &testutil.RecordingSink{}
	outcomes := newTestProvisioner(sink, false).Provision(context.Background(),
		[]types.ProjectRoot{root})

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Succeeded)
	assert.Contains(t, outcomes[0].Message, "npm-broke")
	assert.True(t, outcomes[1].Succeeded)
	assert.True(t, testutil.FileExists(t, filepath.Join(root.Path, "ran-bundle")))
	assert.True(t, sink.Contains("Failed to install npm dependencies"))
}

func TestProvisionFailingRootDoesNotBlockNextRoot(t *testing.T) {
	fakeToolDir(t, map[string]string{
		"go":  "exit 1",
		"npm": "touch ran-npm",
	})
	broken := rootWith(t, map[string]string{"go.mod": "module broken\n"})
	healthy := rootWith(t, map[string]string{"package.json": "{}\n"})

	outcomes := newTestProvisioner(nil, false).Provision(context.Background(),
		[]types.ProjectRoot{broken, healthy})

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Succeeded)
	assert.True(t, outcomes[1].Succeeded)
}

func TestProvisionMissingToolIsRecoverable(t *testing.T) {
	root := rootWith(t, map[string]string{"Gemfile": "x\n"})
	// Clearing PATH guarantees bundle cannot resolve.
	t.Setenv("PATH", t.TempDir())

	sink := &testutil.RecordingSink{}
	outcomes := newTestProvisioner(sink, false).Provision(context.Background(),
		[]types.ProjectRoot{root})

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Succeeded)
	assert.Contains(t, outcomes[0].Message, "not installed")
	assert.True(t, sink.Contains("Skipping bundle"))
	assert.False(t, AnySucceeded(outcomes))
}

func TestPythonPrecedencePipfileWins(t *testing.T) {
	fakeToolDir(t, map[string]string{
		"pipenv": "touch ran-pipenv",
		"pip":    "touch ran-pip",
	})
	root := rootWith(t, map[string]string{
		"Pipfile":          "[packages]\n",
		"requirements.txt": "requests\n",
	})

	outcomes := newTestProvisioner(nil, false).Provision(context.Background(),
		[]types.ProjectRoot{root})

	require.Len(t, outcomes, 1)
	assert.Equal(t, "pipenv", outcomes[0].Tool)
	assert.True(t, testutil.FileExists(t, filepath.Join(root.Path, "ran-pipenv")))
	assert.False(t, testutil.FileExists(t, filepath.Join(root.Path, "ran-pip")))
}

func TestPythonPrecedencePoetryOverRequirements(t *testing.T) {
	fakeToolDir(t, map[string]string{
		"poetry": "touch ran-poetry",
		"pip":    "touch ran-pip",
	})
	root := rootWith(t, map[string]string{"requirements.txt": "requests\n"})
	root.Manifests[types.PythonPoetryPyproject] = true

	outcomes := newTestProvisioner(nil, false).Provision(context.Background(),
		[]types.ProjectRoot{root})

	require.Len(t, outcomes, 1)
	assert.Equal(t, "poetry", outcomes[0].Tool)
}

func TestPythonPlainPackageInstallsDirectory(t *testing.T) {
	dir := t.TempDir()
	fakeToolDir(t, map[string]string{"pip": "echo \"$@\" > " + filepath.Join(dir, "pip-args")})
	root := rootWith(t, map[string]string{"setup.py": "from setuptools import setup\n"})

	outcomes := newTestProvisioner(nil, false).Provision(context.Background(),
		[]types.ProjectRoot{root})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Succeeded)
	args := testutil.ReadFile(t, filepath.Join(dir, "pip-args"))
	assert.Contains(t, args, "install .")
}

func TestGradlePrefersWrapper(t *testing.T) {
	fakeToolDir(t, map[string]string{"gradle": "touch ran-system-gradle"})
	root := rootWith(t, map[string]string{"build.gradle": "plugins {}\n"})
	testutil.CreateExecutable(t, root.Path, "gradlew", "#!/bin/sh\ntouch ran-wrapper\n")

	outcomes := newTestProvisioner(nil, false).Provision(context.Background(),
		[]types.ProjectRoot{root})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Succeeded)
	assert.True(t, testutil.FileExists(t, filepath.Join(root.Path, "ran-wrapper")))
	assert.False(t, testutil.FileExists(t, filepath.Join(root.Path, "ran-system-gradle")))
}

func TestGradleFallsBackToSystemTool(t *testing.T) {
	fakeToolDir(t, map[string]string{"gradle": "touch ran-system-gradle"})
	root := rootWith(t, map[string]string{"build.gradle": "plugins {}\n"})

	outcomes := newTestProvisioner(nil, false).Provision(context.Background(),
		[]types.ProjectRoot{root})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Succeeded)
	assert.True(t, testutil.FileExists(t, filepath.Join(root.Path, "ran-system-gradle")))
}

func TestIsolatedEnvironmentCreatedAndReused(t *testing.T) {
	// Stub python3 fabricates a venv with its own pip.
	fakeToolDir(t, map[string]string{
		"python3": `mkdir -p "$3/bin"
cat > "$3/bin/pip" <<'EOF'
#!/bin/sh
touch ran-venv-pip
EOF
chmod +x "$3/bin/pip"
touch venv-created-$$`,
	})
	root := rootWith(t, map[string]string{"requirements.txt": "requests\n"})

	p := newTestProvisioner(nil, true)
	outcomes := p.Provision(context.Background(), []types.ProjectRoot{root})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Succeeded)
	assert.True(t, testutil.FileExists(t, filepath.Join(root.Path, "ran-venv-pip")))

	// Second provisioning pass reuses the existing environment.
	binDir := p.ensureEnvironment(context.Background(), root.Path)
	assert.Equal(t, filepath.Join(root.Path, ".venv", "bin"), binDir)
}

func TestIsolatedEnvironmentFailureFallsBack(t *testing.T) {
	fakeToolDir(t, map[string]string{
		"python3": "echo venv blew up >&2; exit 1",
		"pip":     "touch ran-system-pip",
	})
	root := rootWith(t, map[string]string{"requirements.txt": "requests\n"})

	sink := &testutil.RecordingSink{}
	outcomes := newTestProvisioner(sink, true).Provision(context.Background(),
		[]types.ProjectRoot{root})

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Succeeded)
	assert.True(t, testutil.FileExists(t, filepath.Join(root.Path, "ran-system-pip")))
	assert.True(t, sink.Contains("Failed to create isolated environment"))
}

func TestMavenCoordinatesNote(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFile(t, dir, "pom.xml", `<?xml version="1.0"?>
<project>
  <groupId>com.example</groupId>
  <artifactId>demo-app</artifactId>
  <version>1.0.0</version>
</project>`)

	assert.Equal(t, " (com.example:demo-app)", mavenCoordinatesNote(dir))
}

func TestMavenCoordinatesNoteParentGroup(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFile(t, dir, "pom.xml", `<?xml version="1.0"?>
<project>
  <parent>
    <groupId>com.example.parent</groupId>
    <artifactId>parent-pom</artifactId>
  </parent>
  <artifactId>child-module</artifactId>
</project>`)

	assert.Equal(t, " (com.example.parent:child-module)", mavenCoordinatesNote(dir))
}

func TestMavenCoordinatesNoteUnparseable(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFile(t, dir, "pom.xml", "not xml at all <<<")

	assert.Equal(t, "", mavenCoordinatesNote(dir))
}

func TestCargoPackageNote(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFile(t, dir, "Cargo.toml", "[package]\nname = \"blazer\"\nversion = \"0.1.0\"\n")

	assert.Equal(t, " (package blazer)", cargoPackageNote(dir))
}

func TestCargoPackageNoteMissing(t *testing.T) {
	assert.Equal(t, "", cargoPackageNote(t.TempDir()))
}
