// Package container builds and optionally runs images for every
// Dockerfile context found in the materialized repository. Like
// provisioning, everything here is recoverable.
package container

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/reposetup/pkg/discovery"
	"github.com/arthur-debert/reposetup/pkg/execute"
	"github.com/arthur-debert/reposetup/pkg/logging"
	"github.com/arthur-debert/reposetup/pkg/sanitize"
	"github.com/arthur-debert/reposetup/pkg/types"
)

// tagCleanPattern matches every character a docker tag cannot carry.
var tagCleanPattern = regexp.MustCompile(`[^0-9A-Za-z_.-]`)

// Builder discovers Dockerfile contexts and shells out to docker.
type Builder struct {
	runner    *execute.Runner
	sanitizer *sanitize.Sanitizer
	sink      types.LogSink
	logger    zerolog.Logger
}

// NewBuilder returns a container Builder.
func NewBuilder(runner *execute.Runner, sanitizer *sanitize.Sanitizer, sink types.LogSink) *Builder {
	if sanitizer == nil {
		sanitizer = sanitize.New("")
	}
	return &Builder{
		runner:    runner,
		sanitizer: sanitizer,
		sink:      sink,
		logger:    logging.GetLogger("container"),
	}
}

// BuildAll builds an image for every Dockerfile context under repoPath,
// and runs each successfully built image when run is requested. A missing
// container tool or a failed build is a warning, never fatal.
func (b *Builder) BuildAll(ctx context.Context, repoPath string, run bool) {
	contexts, err := discovery.FindDirsWith(repoPath, "Dockerfile")
	if err != nil {
		b.warn("Container context discovery failed: %s", b.sanitizer.SanitizeError(err))
		return
	}
	if len(contexts) == 0 {
		b.info("No Dockerfile found")
		return
	}

	if !b.runner.LookPath("docker") {
		b.warn("docker is not installed or not in PATH; skipping container build")
		return
	}

	repoBase := filepath.Base(repoPath)
	for _, contextDir := range contexts {
		tag := DeriveTag(repoBase, repoPath, contextDir)
		if !b.build(ctx, contextDir, tag) {
			continue
		}
		if run {
			b.runImage(ctx, tag)
		}
	}
}

// DeriveTag derives a deterministic image tag from the repository base
// name and the context folder name: "{repoBase}-{contextFolder}", or just
// repoBase when the context is the repository root. Characters outside
// [0-9A-Za-z_.-] are replaced and the result is lower-cased.
func DeriveTag(repoBase, repoPath, contextDir string) string {
	tag := repoBase
	if contextDir != repoPath {
		tag = fmt.Sprintf("%s-%s", repoBase, filepath.Base(contextDir))
	}
	tag = tagCleanPattern.ReplaceAllString(tag, "-")
	return strings.ToLower(tag)
}

func (b *Builder) build(ctx context.Context, contextDir, tag string) bool {
	b.info("Building image %s from %s", tag, contextDir)
	_, err := b.runner.Execute(ctx, execute.Command{
		Argv:    []string{"docker", "build", "-t", tag, "."},
		Dir:     contextDir,
		Timeout: execute.DefaultTimeout,
	})
	if err != nil {
		b.warn("Image build %s failed: %s", tag, b.sanitizer.SanitizeError(err))
		return false
	}
	b.info("Image %s built", tag)
	return true
}

func (b *Builder) runImage(ctx context.Context, tag string) {
	b.info("Running image %s", tag)
	_, err := b.runner.Execute(ctx, execute.Command{
		Argv:    []string{"docker", "run", "--rm", tag},
		Timeout: execute.DefaultTimeout,
	})
	if err != nil {
		b.warn("Image run %s failed: %s", tag, b.sanitizer.SanitizeError(err))
	}
}

func (b *Builder) info(format string, args ...interface{}) {
	msg := b.sanitizer.Sanitize(fmt.Sprintf(format, args...))
	b.logger.Info().Msg(msg)
	if b.sink != nil {
		b.sink.Log(types.LevelInfo, msg)
	}
}

func (b *Builder) warn(format string, args ...interface{}) {
	msg := b.sanitizer.Sanitize(fmt.Sprintf(format, args...))
	b.logger.Warn().Msg(msg)
	if b.sink != nil {
		b.sink.Log(types.LevelWarning, msg)
	}
}
