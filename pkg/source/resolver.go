// Package source materializes a repository from a source descriptor into
// a collision-safe destination directory: local folders are copied,
// archives are extracted and unwrapped, remote repositories are cloned.
package source

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	setuperr "github.com/arthur-debert/reposetup/pkg/errors"
	"github.com/arthur-debert/reposetup/pkg/execute"
	"github.com/arthur-debert/reposetup/pkg/logging"
	"github.com/arthur-debert/reposetup/pkg/sanitize"
	"github.com/arthur-debert/reposetup/pkg/types"
)

// scpStylePattern matches ssh-style locations of the form user@host:path.
var scpStylePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9._-]+:.+`)

// Resolver turns a source descriptor into a materialized repository
// directory under a destination parent.
type Resolver struct {
	runner    *execute.Runner
	sanitizer *sanitize.Sanitizer
	sink      types.LogSink
	logger    zerolog.Logger
}

// NewResolver returns a Resolver. The sink may be nil; warnings are then
// only written to the structured log.
func NewResolver(runner *execute.Runner, sanitizer *sanitize.Sanitizer, sink types.LogSink) *Resolver {
	if sanitizer == nil {
		sanitizer = sanitize.New("")
	}
	return &Resolver{
		runner:    runner,
		sanitizer: sanitizer,
		sink:      sink,
		logger:    logging.GetLogger("source"),
	}
}

// Resolve materializes the described source under destParent and returns
// the repository path. Failures are fatal: ErrSourceNotFound,
// ErrInvalidArchive, ErrInvalidSourceURL, ErrToolMissing, ErrCloneTimeout
// or ErrCloneFailed.
func (r *Resolver) Resolve(ctx context.Context, desc types.SourceDescriptor, destParent string) (string, error) {
	switch desc.Kind {
	case types.SourceFolder:
		return r.resolveFolder(desc, destParent)
	case types.SourceArchive:
		return r.resolveArchive(desc, destParent)
	case types.SourceRemoteRepo:
		return r.resolveRemote(ctx, desc, destParent)
	}
	return "", setuperr.Newf(setuperr.ErrInvalidInput, "unknown source kind: %s", desc.Kind)
}

func (r *Resolver) resolveFolder(desc types.SourceDescriptor, destParent string) (string, error) {
	info, err := os.Stat(desc.Location)
	if err != nil || !info.IsDir() {
		return "", setuperr.Newf(setuperr.ErrSourceNotFound,
			"source folder does not exist: %s", desc.Location)
	}

	dest := filepath.Join(destParent, AllocateName(destParent, DeriveBaseName(desc)))

	r.info("Copying from folder: %s", desc.Location)
	if err := copyTree(desc.Location, dest); err != nil {
		return "", err
	}
	r.info("Copied %d files", countFiles(dest))

	return dest, nil
}

func (r *Resolver) resolveArchive(desc types.SourceDescriptor, destParent string) (string, error) {
	info, err := os.Stat(desc.Location)
	if err != nil || info.IsDir() {
		return "", setuperr.Newf(setuperr.ErrSourceNotFound,
			"archive file does not exist: %s", desc.Location)
	}

	dest := filepath.Join(destParent, AllocateName(destParent, DeriveBaseName(desc)))

	r.info("Extracting archive: %s", desc.Location)
	if err := extractArchive(desc.Location, dest); err != nil {
		return "", err
	}
	r.info("Extracted %d files", countFiles(dest))

	if err := unwrapSingleRoot(dest); err != nil {
		return "", err
	}

	return dest, nil
}

func (r *Resolver) resolveRemote(ctx context.Context, desc types.SourceDescriptor, destParent string) (string, error) {
	if !isValidRemoteLocation(desc.Location) {
		return "", setuperr.Newf(setuperr.ErrInvalidSourceURL,
			"invalid repository URL: %s", r.sanitizer.SanitizeURL(desc.Location))
	}

	if !r.runner.LookPath("git") {
		return "", setuperr.New(setuperr.ErrToolMissing, "git is not installed or not in PATH").
			WithDetail("tool", "git")
	}

	cloneURL := r.injectToken(desc)

	dest := filepath.Join(destParent, AllocateName(destParent, DeriveBaseName(desc)))

	argv := []string{"git"}
	if helper := desc.Credentials.CredentialHelper; helper != "" {
		argv = append(argv, "-c", "credential.helper="+helper)
	}
	argv = append(argv, "clone", cloneURL, dest)

	var env []string
	if key := desc.Credentials.SSHKeyPath; key != "" {
		env = append(env, fmt.Sprintf("GIT_SSH_COMMAND=ssh -i %s -o IdentitiesOnly=yes", key))
	}

	r.info("Cloning from: %s", r.sanitizer.SanitizeURL(desc.Location))
	result, err := r.runner.Execute(ctx, execute.Command{
		Argv:    argv,
		Env:     env,
		Timeout: execute.CloneTimeout,
	})
	if err != nil {
		if setuperr.IsErrorCode(err, setuperr.ErrCommandTimeout) {
			return "", setuperr.Newf(setuperr.ErrCloneTimeout,
				"clone timed out after %s", execute.CloneTimeout)
		}
		return "", setuperr.Newf(setuperr.ErrCloneFailed,
			"clone failed: %s", r.sanitizer.SanitizeError(err))
	}

	r.info("Clone completed successfully")
	if out := strings.TrimSpace(result.Stdout); out != "" {
		r.info("%s", r.sanitizer.Sanitize(out))
	}

	return dest, nil
}

// injectToken places the OAuth token into the URL userinfo when the URL is
// http(s) and carries no existing userinfo. For other schemes injection is
// skipped with a warning; the token still gets redacted everywhere.
func (r *Resolver) injectToken(desc types.SourceDescriptor) string {
	token := desc.Credentials.OAuthToken
	if token == "" {
		return desc.Location
	}

	parsed, err := url.Parse(desc.Location)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		r.warn("OAuth token configured but URL is not HTTP(S); token not injected")
		return desc.Location
	}
	if parsed.User != nil {
		r.warn("URL already carries userinfo; token not injected")
		return desc.Location
	}

	parsed.User = url.User(token)
	return parsed.String()
}

func isValidRemoteLocation(location string) bool {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return true
	}
	return scpStylePattern.MatchString(location)
}

func (r *Resolver) info(format string, args ...interface{}) {
	msg := r.sanitizer.Sanitize(fmt.Sprintf(format, args...))
	r.logger.Info().Msg(msg)
	if r.sink != nil {
		r.sink.Log(types.LevelInfo, msg)
	}
}

func (r *Resolver) warn(format string, args ...interface{}) {
	msg := r.sanitizer.Sanitize(fmt.Sprintf(format, args...))
	r.logger.Warn().Msg(msg)
	if r.sink != nil {
		r.sink.Log(types.LevelWarning, msg)
	}
}
