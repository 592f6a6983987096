package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/reposetup/pkg/ci"
	"github.com/arthur-debert/reposetup/pkg/testutil"
	"github.com/arthur-debert/reposetup/pkg/types"
)

type recordingNotifier struct {
	outcomes []types.Outcome
}

func (n *recordingNotifier) Notify(outcome types.Outcome) {
	n.outcomes = append(n.outcomes, outcome)
}

func installFakeTools(t *testing.T, tools map[string]string) {
	t.Helper()
	dir := t.TempDir()
	for name, script := range tools {
		testutil.CreateExecutable(t, dir, name, "#!/bin/sh\n"+script+"\n")
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRunFolderWithRequirementsInstallsOnce(t *testing.T) {
	record := t.TempDir()
	installFakeTools(t, map[string]string{
		"pip": `echo "$@" >> ` + filepath.Join(record, "pip-calls"),
	})
	src := t.TempDir()
	testutil.CreateFile(t, src, "requirements.txt", "requests\n")
	destParent := filepath.Join(t.TempDir(), "setups")

	sink := &testutil.RecordingSink{}
	notifier := &recordingNotifier{}
	outcome := NewSession(sink, notifier).Run(context.Background(), Request{
		Source:     types.SourceDescriptor{Kind: types.SourceFolder, Location: src},
		DestParent: destParent,
		Options:    types.Options{AutoInstall: true},
	})

	assert.True(t, outcome.Success)
	assert.True(t, outcome.Installed)
	assert.Equal(t, filepath.Join(destParent, filepath.Base(src)), outcome.RepoPath)

	// Exactly one provisioning attempt was made.
	calls := testutil.ReadFile(t, filepath.Join(record, "pip-calls"))
	assert.Equal(t, "install -r requirements.txt\n", calls)

	require.Len(t, notifier.outcomes, 1)
	assert.Equal(t, outcome, notifier.outcomes[0])
}

func TestRunInvalidURLFailsBeforeAnyToolRuns(t *testing.T) {
	record := t.TempDir()
	installFakeTools(t, map[string]string{
		"git": "touch " + filepath.Join(record, "git-ran"),
	})

	notifier := &recordingNotifier{}
	outcome := NewSession(nil, notifier).Run(context.Background(), Request{
		Source:     types.SourceDescriptor{Kind: types.SourceRemoteRepo, Location: "ftp://example.com/repo"},
		DestParent: t.TempDir(),
	})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "invalid repository URL")
	assert.False(t, testutil.FileExists(t, filepath.Join(record, "git-ran")))
	require.Len(t, notifier.outcomes, 1)
	assert.False(t, notifier.outcomes[0].Success)
}

func TestRunProvisioningFailureDoesNotFlipVerdict(t *testing.T) {
	installFakeTools(t, map[string]string{"pip": "echo nope >&2; exit 1"})
	src := t.TempDir()
	testutil.CreateFile(t, src, "requirements.txt", "requests\n")

	sink := &testutil.RecordingSink{}
	outcome := NewSession(sink, nil).Run(context.Background(), Request{
		Source:     types.SourceDescriptor{Kind: types.SourceFolder, Location: src},
		DestParent: t.TempDir(),
		Options:    types.Options{AutoInstall: true},
	})

	assert.True(t, outcome.Success)
	assert.False(t, outcome.Installed)
	assert.True(t, sink.Contains("Failed to install pip dependencies"))
}

func TestRunDestinationCreationFailureIsFatal(t *testing.T) {
	blocker := testutil.CreateFile(t, t.TempDir(), "blocker", "a file, not a dir\n")
	src := t.TempDir()
	testutil.CreateFile(t, src, "README.md", "x\n")

	outcome := NewSession(nil, nil).Run(context.Background(), Request{
		Source:     types.SourceDescriptor{Kind: types.SourceFolder, Location: src},
		DestParent: filepath.Join(blocker, "nested"),
	})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "cannot create target directory")
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	session := NewSession(nil, nil)
	session.processing.Store(true)

	outcome := session.Run(context.Background(), Request{
		Source:     types.SourceDescriptor{Kind: types.SourceFolder, Location: t.TempDir()},
		DestParent: t.TempDir(),
	})

	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Message, "already in progress")
}

func TestRunWritesCITemplateWhenRequested(t *testing.T) {
	src := t.TempDir()
	testutil.CreateFile(t, src, "README.md", "x\n")

	outcome := NewSession(nil, nil).Run(context.Background(), Request{
		Source:     types.SourceDescriptor{Kind: types.SourceFolder, Location: src},
		DestParent: t.TempDir(),
		Options:    types.Options{AddCITemplate: true},
	})

	require.True(t, outcome.Success)
	assert.True(t, testutil.FileExists(t, filepath.Join(outcome.RepoPath, ci.WorkflowPath)))
}

func TestRunPostSetupExecutesScripts(t *testing.T) {
	src := t.TempDir()
	testutil.CreateExecutable(t, src, "setup.sh", "#!/bin/sh\ntouch post-setup-ran\n")

	outcome := NewSession(nil, nil).Run(context.Background(), Request{
		Source:     types.SourceDescriptor{Kind: types.SourceFolder, Location: src},
		DestParent: t.TempDir(),
		Options:    types.Options{RunPostSetup: true},
	})

	require.True(t, outcome.Success)
	assert.True(t, testutil.FileExists(t, filepath.Join(outcome.RepoPath, "post-setup-ran")))
}

func TestRunSanitizesTokenInFatalMessage(t *testing.T) {
	installFakeTools(t, map[string]string{
		"git": "echo \"fatal: token sekrit-token rejected\" >&2; exit 1",
	})

	sink := &testutil.RecordingSink{}
	outcome := NewSession(sink, nil).Run(context.Background(), Request{
		Source: types.SourceDescriptor{
			Kind:        types.SourceRemoteRepo,
			Location:    "https://example.com/user/repo.git",
			Credentials: types.Credentials{OAuthToken: "sekrit-token"},
		},
		DestParent: t.TempDir(),
	})

	assert.False(t, outcome.Success)
	assert.NotContains(t, outcome.Message, "sekrit-token")
	assert.NotContains(t, sink.Joined(), "sekrit-token")
}

func TestRunFatalFailureCarriesHints(t *testing.T) {
	// Empty PATH: git is missing, which is fatal for a remote source.
	t.Setenv("PATH", t.TempDir())

	outcome := NewSession(nil, nil).Run(context.Background(), Request{
		Source:     types.SourceDescriptor{Kind: types.SourceRemoteRepo, Location: "https://example.com/u/r.git"},
		DestParent: t.TempDir(),
	})

	require.False(t, outcome.Success)
	require.NotEmpty(t, outcome.Hints)
	assert.Contains(t, outcome.Hints[0], "Install git")
}

func TestRunManifestFreeRepoSucceeds(t *testing.T) {
	src := t.TempDir()
	testutil.CreateFile(t, src, "notes.txt", "no manifests\n")

	sink := &testutil.RecordingSink{}
	outcome := NewSession(sink, nil).Run(context.Background(), Request{
		Source:     types.SourceDescriptor{Kind: types.SourceFolder, Location: src},
		DestParent: t.TempDir(),
		Options:    types.Options{AutoInstall: true},
	})

	assert.True(t, outcome.Success)
	assert.False(t, outcome.Installed)
	assert.True(t, sink.Contains("Discovered 1 project root(s)"))
}
