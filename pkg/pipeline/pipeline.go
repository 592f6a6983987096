// Package pipeline orchestrates a full acquisition-and-provisioning run:
// source resolution, project discovery, dependency provisioning,
// post-setup automation, quick checks, CI template and container steps.
//
// The Session is the seam a driver uses instead of the interactive
// surface: it accepts a descriptor and options programmatically and
// reports through the LogSink and Notifier collaborators. The pipeline
// executes as a single sequential worker; one run per Session at a time.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/reposetup/pkg/advise"
	"github.com/arthur-debert/reposetup/pkg/checks"
	"github.com/arthur-debert/reposetup/pkg/ci"
	"github.com/arthur-debert/reposetup/pkg/container"
	"github.com/arthur-debert/reposetup/pkg/discovery"
	setuperr "github.com/arthur-debert/reposetup/pkg/errors"
	"github.com/arthur-debert/reposetup/pkg/execute"
	"github.com/arthur-debert/reposetup/pkg/logging"
	"github.com/arthur-debert/reposetup/pkg/postsetup"
	"github.com/arthur-debert/reposetup/pkg/provision"
	"github.com/arthur-debert/reposetup/pkg/sanitize"
	"github.com/arthur-debert/reposetup/pkg/source"
	"github.com/arthur-debert/reposetup/pkg/types"
)

// Request carries everything one run needs.
type Request struct {
	Source     types.SourceDescriptor
	DestParent string
	Options    types.Options
}

// Session owns the processing flag and the collaborator surfaces. It is
// created by the driving layer and passed into the core by reference,
// never held as process-wide global state.
type Session struct {
	sink       types.LogSink
	notifier   types.Notifier
	processing atomic.Bool
	logger     zerolog.Logger
}

// NewSession returns a Session reporting to the given collaborators.
// Both may be nil.
func NewSession(sink types.LogSink, notifier types.Notifier) *Session {
	return &Session{
		sink:     sink,
		notifier: notifier,
		logger:   logging.GetLogger("pipeline"),
	}
}

// Run executes the pipeline for one request and returns the final
// structured outcome. Source resolution and destination creation failures
// are fatal; every later step degrades to warnings and never changes the
// verdict. A second call while a run is in flight fails immediately.
func (s *Session) Run(ctx context.Context, req Request) types.Outcome {
	if !s.processing.CompareAndSwap(false, true) {
		return types.Outcome{
			Success: false,
			Message: setuperr.New(setuperr.ErrBusy, "a setup run is already in progress").Error(),
		}
	}
	defer s.processing.Store(false)

	sanitizer := sanitize.New(req.Source.Credentials.OAuthToken)
	runner := execute.NewRunner(sanitizer)

	s.info(sanitizer, "Starting repository setup...")

	if err := os.MkdirAll(req.DestParent, 0755); err != nil {
		return s.fail(sanitizer, setuperr.Wrapf(err, setuperr.ErrDirCreate,
			"cannot create target directory %s", req.DestParent))
	}
	s.info(sanitizer, "Target directory: %s", req.DestParent)

	resolver := source.NewResolver(runner, sanitizer, s.sink)
	repoPath, err := resolver.Resolve(ctx, req.Source, req.DestParent)
	if err != nil {
		return s.fail(sanitizer, err)
	}
	s.info(sanitizer, "Repository materialized at: %s", repoPath)

	roots, err := discovery.Discover(repoPath)
	if err != nil {
		return s.fail(sanitizer, err)
	}
	s.info(sanitizer, "Discovered %d project root(s)", len(roots))

	installed := false
	if req.Options.AutoInstall {
		provisioner := provision.New(runner, sanitizer, s.sink, req.Options.IsolatedEnv)
		outcomes := provisioner.Provision(ctx, roots)
		installed = provision.AnySucceeded(outcomes)
	}

	if req.Options.RunPostSetup {
		postsetup.NewRunner(runner, sanitizer, s.sink).Run(ctx, repoPath)
	}

	if req.Options.RunQuickChecks {
		checks.NewChecker(runner, sanitizer, s.sink).Run(ctx, roots)
	}

	if req.Options.AddCITemplate {
		if written, err := ci.WriteTemplate(repoPath); err != nil {
			s.warn(sanitizer, "CI template not written: %s", sanitizer.SanitizeError(err))
		} else if written {
			s.info(sanitizer, "CI workflow template added at %s", ci.WorkflowPath)
		}
	}

	if req.Options.BuildContainer || req.Options.RunContainer {
		container.NewBuilder(runner, sanitizer, s.sink).
			BuildAll(ctx, repoPath, req.Options.RunContainer)
	}

	outcome := types.Outcome{
		Success:   true,
		RepoPath:  repoPath,
		Message:   "Setup completed successfully",
		Installed: installed,
	}
	s.log(types.LevelSuccess, sanitizer, "Setup completed successfully!")
	s.notify(outcome)
	return outcome
}

// fail converts a fatal error into the final outcome: one sanitized
// message plus zero or more remediation hints, never silently swallowed.
func (s *Session) fail(sanitizer *sanitize.Sanitizer, err error) types.Outcome {
	message := sanitizer.SanitizeError(err)
	hints := advise.Hints(message)

	s.logger.Error().Str("code", string(setuperr.GetErrorCode(err))).Msg(message)
	s.log(types.LevelError, sanitizer, "Setup failed: %s", advise.Append(message, hints))

	outcome := types.Outcome{
		Success: false,
		Message: message,
		Hints:   hints,
	}
	s.notify(outcome)
	return outcome
}

func (s *Session) notify(outcome types.Outcome) {
	if s.notifier != nil {
		s.notifier.Notify(outcome)
	}
}

func (s *Session) info(sanitizer *sanitize.Sanitizer, format string, args ...interface{}) {
	s.log(types.LevelInfo, sanitizer, format, args...)
}

func (s *Session) warn(sanitizer *sanitize.Sanitizer, format string, args ...interface{}) {
	s.log(types.LevelWarning, sanitizer, format, args...)
}

func (s *Session) log(level types.LogLevel, sanitizer *sanitize.Sanitizer, format string, args ...interface{}) {
	msg := sanitizer.Sanitize(fmt.Sprintf(format, args...))
	switch level {
	case types.LevelWarning:
		s.logger.Warn().Msg(msg)
	case types.LevelError:
		s.logger.Error().Msg(msg)
	default:
		s.logger.Info().Msg(msg)
	}
	if s.sink != nil {
		s.sink.Log(level, msg)
	}
}
