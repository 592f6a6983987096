// Package ci writes an optional CI workflow file into the materialized
// repository. The template is fixed and the file is only written when
// absent, so an existing workflow is never overwritten.
package ci

import (
	"os"
	"path/filepath"

	setuperr "github.com/arthur-debert/reposetup/pkg/errors"
	"github.com/arthur-debert/reposetup/pkg/logging"
)

// WorkflowPath is the fixed location of the generated workflow file,
// relative to the repository root.
var WorkflowPath = filepath.Join(".github", "workflows", "ci.yml")

const workflowTemplate = `name: CI

on:
  push:
    branches: [main]
  pull_request:

jobs:
  build:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - name: Placeholder build step
        run: echo "Add your build and test commands here."
`

// WriteTemplate writes the fixed CI workflow under repoPath if no file
// exists at the workflow path. Returns true when the file was written.
func WriteTemplate(repoPath string) (bool, error) {
	logger := logging.GetLogger("ci")
	target := filepath.Join(repoPath, WorkflowPath)

	if _, err := os.Stat(target); err == nil {
		logger.Debug().Str("path", target).Msg("Workflow file already exists, not overwritten")
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return false, setuperr.Wrapf(err, setuperr.ErrDirCreate,
			"cannot create workflow directory")
	}
	if err := os.WriteFile(target, []byte(workflowTemplate), 0644); err != nil {
		return false, setuperr.Wrapf(err, setuperr.ErrFileWrite,
			"cannot write workflow file")
	}

	logger.Info().Str("path", target).Msg("CI workflow template written")
	return true, nil
}
