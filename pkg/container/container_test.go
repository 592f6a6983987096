package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arthur-debert/reposetup/pkg/execute"
	"github.com/arthur-debert/reposetup/pkg/sanitize"
	"github.com/arthur-debert/reposetup/pkg/testutil"
	"github.com/arthur-debert/reposetup/pkg/types"
)

func newTestBuilder(sink types.LogSink) *Builder {
	sanitizer := sanitize.New("")
	return NewBuilder(execute.NewRunner(sanitizer), sanitizer, sink)
}

// fakeDocker installs a docker stub that records its invocations.
func fakeDocker(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.CreateExecutable(t, dir, "docker", "#!/bin/sh\n"+script+"\n")
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return dir
}

func TestDeriveTag(t *testing.T) {
	tests := []struct {
		name       string
		repoBase   string
		contextRel string // "" means repo root
		expected   string
	}{
		{"repo root context", "MyRepo", "", "myrepo"},
		{"nested context", "MyRepo", "Backend API", "myrepo-backend-api"},
		{"special chars replaced", "my@repo!", "svc#1", "my-repo--svc-1"},
		{"allowed chars kept", "my_repo.v2", "api-v1", "my_repo.v2-api-v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repoPath := "/tmp/parent/" + tt.repoBase
			contextDir := repoPath
			if tt.contextRel != "" {
				contextDir = filepath.Join(repoPath, tt.contextRel)
			}
			assert.Equal(t, tt.expected, DeriveTag(tt.repoBase, repoPath, contextDir))
		})
	}
}

func TestBuildAllBuildsEveryContext(t *testing.T) {
	record := t.TempDir()
	fakeDocker(t, `echo "$@" >> `+filepath.Join(record, "calls"))
	repo := t.TempDir()
	testutil.CreateFile(t, repo, "Dockerfile", "FROM alpine\n")
	testutil.CreateFile(t, repo, "svc/worker/Dockerfile", "FROM alpine\n")

	newTestBuilder(nil).BuildAll(context.Background(), repo, false)

	calls := testutil.ReadFile(t, filepath.Join(record, "calls"))
	repoBase := filepath.Base(repo)
	assert.Contains(t, calls, "build -t "+DeriveTag(repoBase, repo, repo))
	assert.Contains(t, calls, "build -t "+repoBase+"-worker")
	assert.NotContains(t, calls, "run")
}

func TestBuildAllRunsAfterSuccessfulBuild(t *testing.T) {
	record := t.TempDir()
	fakeDocker(t, `echo "$@" >> `+filepath.Join(record, "calls"))
	repo := t.TempDir()
	testutil.CreateFile(t, repo, "Dockerfile", "FROM alpine\n")

	newTestBuilder(nil).BuildAll(context.Background(), repo, true)

	calls := testutil.ReadFile(t, filepath.Join(record, "calls"))
	assert.Contains(t, calls, "run --rm")
}

func TestBuildAllSkipsRunWhenBuildFails(t *testing.T) {
	record := t.TempDir()
	fakeDocker(t, `echo "$@" >> `+filepath.Join(record, "calls")+`
exit 1`)
	repo := t.TempDir()
	testutil.CreateFile(t, repo, "Dockerfile", "FROM alpine\n")

	sink := &testutil.RecordingSink{}
	newTestBuilder(sink).BuildAll(context.Background(), repo, true)

	calls := testutil.ReadFile(t, filepath.Join(record, "calls"))
	assert.Contains(t, calls, "build")
	assert.NotContains(t, calls, "run --rm")
	assert.True(t, sink.Contains("failed"))
}

func TestBuildAllMissingDockerIsRecoverable(t *testing.T) {
	repo := t.TempDir()
	testutil.CreateFile(t, repo, "Dockerfile", "FROM alpine\n")
	t.Setenv("PATH", t.TempDir())

	sink := &testutil.RecordingSink{}
	newTestBuilder(sink).BuildAll(context.Background(), repo, true)

	assert.True(t, sink.Contains("docker is not installed"))
}

func TestBuildAllNoDockerfile(t *testing.T) {
	repo := t.TempDir()
	testutil.CreateFile(t, repo, "README.md", "no containers here\n")

	sink := &testutil.RecordingSink{}
	newTestBuilder(sink).BuildAll(context.Background(), repo, true)

	assert.True(t, sink.Contains("No Dockerfile found"))
}
