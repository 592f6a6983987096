// Package postsetup runs optional automation found in the materialized
// repository: executable setup scripts and declarative YAML recipes.
// Every candidate that exists is executed, and every failure here is
// recoverable.
package postsetup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	setuperr "github.com/arthur-debert/reposetup/pkg/errors"
	"github.com/arthur-debert/reposetup/pkg/execute"
	"github.com/arthur-debert/reposetup/pkg/logging"
	"github.com/arthur-debert/reposetup/pkg/sanitize"
	"github.com/arthur-debert/reposetup/pkg/types"
)

// scriptCandidates are checked in order; every existing executable runs.
var scriptCandidates = []string{
	"setup.sh",
	"bootstrap.sh",
	filepath.Join("scripts", "setup.sh"),
	filepath.Join("scripts", "bootstrap.sh"),
}

// recipeCandidates are checked in order; every existing recipe runs.
var recipeCandidates = []string{
	".reposetup.yaml",
	".reposetup.yml",
	"reposetup.yaml",
}

// Runner executes post-setup scripts and recipes.
type Runner struct {
	runner    *execute.Runner
	sanitizer *sanitize.Sanitizer
	sink      types.LogSink
	logger    zerolog.Logger
}

// NewRunner returns a post-setup Runner.
func NewRunner(runner *execute.Runner, sanitizer *sanitize.Sanitizer, sink types.LogSink) *Runner {
	if sanitizer == nil {
		sanitizer = sanitize.New("")
	}
	return &Runner{
		runner:    runner,
		sanitizer: sanitizer,
		sink:      sink,
		logger:    logging.GetLogger("postsetup"),
	}
}

// Run executes all matching scripts and recipes under repoPath. All
// failures are logged as warnings; Run never fails the parent run.
func (r *Runner) Run(ctx context.Context, repoPath string) {
	for _, candidate := range scriptCandidates {
		path := filepath.Join(repoPath, candidate)
		if !isExecutableFile(path) {
			continue
		}
		r.info("Running setup script: %s", candidate)
		_, err := r.runner.Execute(ctx, execute.Command{
			Argv:    []string{path},
			Dir:     repoPath,
			Timeout: execute.DefaultTimeout,
		})
		if err != nil {
			r.warn("Setup script %s failed: %s", candidate, r.sanitizer.SanitizeError(err))
		}
	}

	for _, candidate := range recipeCandidates {
		path := filepath.Join(repoPath, candidate)
		if !isRegularFile(path) {
			continue
		}
		recipe, err := LoadRecipe(path)
		if err != nil {
			r.warn("Recipe %s skipped: %s", candidate, r.sanitizer.SanitizeError(err))
			continue
		}
		r.info("Running recipe: %s", candidate)
		r.runRecipe(ctx, repoPath, recipe)
	}
}

// runRecipe executes the recipe's commands sequentially in its working
// directory. A failing command is a warning; the remaining commands still
// run.
func (r *Runner) runRecipe(ctx context.Context, repoPath string, recipe types.Recipe) {
	workDir := repoPath
	if recipe.WorkingDir != "" {
		workDir = filepath.Join(repoPath, recipe.WorkingDir)
	}

	for _, command := range recipe.Commands {
		argv, err := commandArgv(command)
		if err != nil {
			r.warn("Recipe command skipped: %s", r.sanitizer.SanitizeError(err))
			continue
		}
		_, err = r.runner.Execute(ctx, execute.Command{
			Argv:    argv,
			Dir:     workDir,
			Timeout: execute.DefaultTimeout,
		})
		if err != nil {
			r.warn("Recipe command %s failed: %s",
				r.sanitizer.Sanitize(shellquote.Join(argv...)),
				r.sanitizer.SanitizeError(err))
		}
	}
}

// commandArgv resolves a recipe command to an argv. String commands
// undergo POSIX shell word-splitting so quoting is honored; list commands
// are used verbatim with no tokenization.
func commandArgv(command types.RecipeCommand) ([]string, error) {
	if command.Argv != nil {
		if len(command.Argv) == 0 {
			return nil, setuperr.New(setuperr.ErrRecipeMalformed, "empty command list")
		}
		return command.Argv, nil
	}

	argv, err := shellquote.Split(command.Raw)
	if err != nil {
		return nil, setuperr.Wrapf(err, setuperr.ErrRecipeMalformed,
			"cannot tokenize command %q", command.Raw)
	}
	if len(argv) == 0 {
		return nil, setuperr.New(setuperr.ErrRecipeMalformed, "empty command string")
	}
	return argv, nil
}

// recipeFile is the on-disk YAML shape of a recipe.
type recipeFile struct {
	Commands   []yaml.Node `yaml:"commands"`
	WorkingDir string      `yaml:"working_dir"`
}

// LoadRecipe reads and validates a recipe file. Each command is either a
// single string or an explicit argument list; the distinction is
// preserved because it changes whether quoting is honored.
func LoadRecipe(path string) (types.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Recipe{}, setuperr.Wrapf(err, setuperr.ErrFileAccess,
			"cannot read recipe %s", path)
	}

	var file recipeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return types.Recipe{}, setuperr.Wrapf(err, setuperr.ErrRecipeMalformed,
			"recipe is not valid YAML")
	}
	if len(file.Commands) == 0 {
		return types.Recipe{}, setuperr.New(setuperr.ErrRecipeMalformed,
			"recipe has no commands")
	}

	recipe := types.Recipe{WorkingDir: file.WorkingDir}
	for i, node := range file.Commands {
		command, err := decodeCommand(node)
		if err != nil {
			return types.Recipe{}, setuperr.Wrapf(err, setuperr.ErrRecipeMalformed,
				"command %d is malformed", i+1)
		}
		recipe.Commands = append(recipe.Commands, command)
	}

	return recipe, nil
}

func decodeCommand(node yaml.Node) (types.RecipeCommand, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return types.RecipeCommand{}, err
		}
		return types.RecipeCommand{Raw: raw}, nil
	case yaml.SequenceNode:
		var argv []string
		if err := node.Decode(&argv); err != nil {
			return types.RecipeCommand{}, err
		}
		return types.RecipeCommand{Argv: argv}, nil
	}
	return types.RecipeCommand{}, fmt.Errorf("command must be a string or a list of strings")
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (r *Runner) info(format string, args ...interface{}) {
	msg := r.sanitizer.Sanitize(fmt.Sprintf(format, args...))
	r.logger.Info().Msg(msg)
	if r.sink != nil {
		r.sink.Log(types.LevelInfo, msg)
	}
}

func (r *Runner) warn(format string, args ...interface{}) {
	msg := r.sanitizer.Sanitize(fmt.Sprintf(format, args...))
	r.logger.Warn().Msg(msg)
	if r.sink != nil {
		r.sink.Log(types.LevelWarning, msg)
	}
}
