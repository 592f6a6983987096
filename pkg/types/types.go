// Package types defines the data model shared by the acquisition and
// provisioning pipeline: source descriptors, discovered project roots,
// manifest kinds, run options and outcomes, plus the collaborator
// interfaces the core reports through.
package types

// SourceKind identifies how a repository source is materialized.
type SourceKind string

const (
	// SourceFolder is a local directory copied recursively.
	SourceFolder SourceKind = "folder"
	// SourceArchive is a zip archive extracted into the destination.
	SourceArchive SourceKind = "archive"
	// SourceRemoteRepo is a remote repository cloned with git.
	SourceRemoteRepo SourceKind = "url"
)

// Credentials carries optional authentication material for remote sources.
// Credentials are never persisted and never logged unredacted.
type Credentials struct {
	SSHKeyPath       string
	OAuthToken       string
	CredentialHelper string
}

// SourceDescriptor describes one repository source. It is immutable and
// consumed once per run.
type SourceDescriptor struct {
	Kind        SourceKind
	Location    string
	Credentials Credentials
}

// ManifestKind enumerates the recognized package ecosystem manifests.
type ManifestKind string

const (
	PythonRequirements    ManifestKind = "python-requirements"
	PythonPoetryPyproject ManifestKind = "python-poetry-pyproject"
	PythonPlainPyproject  ManifestKind = "python-plain-pyproject"
	PythonSetupPy         ManifestKind = "python-setup-py"
	PythonPipfile         ManifestKind = "python-pipfile"
	NodePackageJson       ManifestKind = "node-package-json"
	RubyGemfile           ManifestKind = "ruby-gemfile"
	GoMod                 ManifestKind = "go-mod"
	RustCargo             ManifestKind = "rust-cargo"
	JavaMaven             ManifestKind = "java-maven"
	JavaGradle            ManifestKind = "java-gradle"
	Dockerfile            ManifestKind = "dockerfile"
)

// AllManifestKinds lists every ManifestKind in a stable order.
var AllManifestKinds = []ManifestKind{
	PythonRequirements,
	PythonPoetryPyproject,
	PythonPlainPyproject,
	PythonSetupPy,
	PythonPipfile,
	NodePackageJson,
	RubyGemfile,
	GoMod,
	RustCargo,
	JavaMaven,
	JavaGradle,
	Dockerfile,
}

// ProjectRoot is a directory that directly contains at least one recognized
// manifest. The manifest set is computed once during discovery and never
// re-derived mid-run.
type ProjectRoot struct {
	Path      string
	Depth     int
	Manifests map[ManifestKind]bool
}

// HasManifest reports whether the root contains the given manifest kind.
func (r ProjectRoot) HasManifest(kind ManifestKind) bool {
	return r.Manifests[kind]
}

// Options are the run option flags supplied by the driver.
type Options struct {
	AutoInstall    bool
	IsolatedEnv    bool
	RunPostSetup   bool
	RunQuickChecks bool
	AddCITemplate  bool
	BuildContainer bool
	RunContainer   bool
}

// Recipe is a declarative post-setup command list read from the
// materialized repository. Commands given as a single string are tokenized
// with POSIX shell word-splitting rules; commands given as an explicit list
// are used verbatim.
type Recipe struct {
	Commands   []RecipeCommand
	WorkingDir string
}

// RecipeCommand holds either a raw string command or an explicit argv.
// Exactly one of Raw and Argv is set.
type RecipeCommand struct {
	Raw  string
	Argv []string
}

// ProvisionOutcome records one attempted ecosystem tool invocation.
type ProvisionOutcome struct {
	Root      string
	Tool      string
	Succeeded bool
	Message   string
}

// Outcome is the final structured result handed to the notifier.
type Outcome struct {
	Success   bool
	RepoPath  string
	Message   string
	Hints     []string
	Installed bool
}

// LogLevel is the severity attached to a log sink message.
type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
	LevelSuccess LogLevel = "SUCCESS"
)

// LogSink accepts leveled, sanitized messages from the pipeline. Storage
// and formatting are the collaborator's concern.
type LogSink interface {
	Log(level LogLevel, message string)
}

// Notifier receives the final structured outcome of a run.
type Notifier interface {
	Notify(outcome Outcome)
}
