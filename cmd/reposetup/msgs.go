package reposetup

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort    = "Set up repositories from folders, archives or remote URLs"
	MsgSetupShort   = "Materialize a repository and provision its dependencies"
	MsgVersionShort = "Print version information"

	// Flag descriptions
	MsgFlagVerbose          = "Increase verbosity (-v info, -vv debug, -vvv trace)"
	MsgFlagKind             = "Source kind: folder, archive or url (default: auto-detect)"
	MsgFlagDest             = "Target parent directory for the materialized repository"
	MsgFlagToken            = "OAuth token for HTTPS remotes (never logged unredacted)"
	MsgFlagSSHKey           = "SSH private key path for remote clones"
	MsgFlagCredentialHelper = "Git credential helper name"
	MsgFlagInstall          = "Automatically install detected dependencies"
	MsgFlagVenv             = "Create an isolated Python environment per project root"
	MsgFlagPostSetup        = "Run setup scripts and recipes found in the repository"
	MsgFlagQuickChecks      = "Probe detected toolchains before finishing"
	MsgFlagCI               = "Add a CI workflow template if none exists"
	MsgFlagBuildContainer   = "Build images for discovered Dockerfile contexts"
	MsgFlagRunContainer     = "Run images after a successful build"

	// Status messages
	MsgSetupSuccessFormat = "Repository setup completed!\n\nLocation: %s\n"
	MsgSetupInstalledNote = "Dependencies were installed."
	MsgSetupFailedFormat  = "Setup failed: %s\n"
	MsgHintItem           = "  hint: %s\n"
)

// MsgRootLong is the root command's long help text.
const MsgRootLong = `reposetup materializes a repository from a local folder, a zip archive
or a remote git URL, discovers the projects inside it, and installs each
detected ecosystem's dependencies with the matching package tool.

Optional steps run setup scripts and recipes, verify toolchains, add a CI
workflow template, and build or run container images.`

// MsgSetupLong is the setup command's long help text.
const MsgSetupLong = `Setup copies, extracts or clones the given source into the target parent
directory under a collision-safe name, then walks the result to find
project roots by their manifest files (requirements.txt, package.json,
Gemfile, go.mod, Cargo.toml, pom.xml, Gradle build files and more).

With --install, every matching package tool is invoked per project root.
A failing tool is a warning: the remaining ecosystems and roots still
proceed, and the run's verdict is unaffected.`
