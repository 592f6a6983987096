// Package paths provides home-directory aware path expansion for values
// taken from the command line.
package paths

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/reposetup/pkg/errors"
)

// HomeDirectory returns the user's home directory, trying os.UserHomeDir
// first and the HOME environment variable second.
func HomeDirectory() (string, error) {
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return home, nil
	}
	if home := os.Getenv("HOME"); home != "" {
		return home, nil
	}
	return "", errors.New(errors.ErrFileAccess, "unable to determine home directory")
}

// ExpandHome expands a leading ~ to the user's home directory and expands
// environment variables. Paths without a leading ~ pass through os.ExpandEnv
// only.
func ExpandHome(path string) (string, error) {
	if path == "~" {
		return HomeDirectory()
	}
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := HomeDirectory()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, os.ExpandEnv(path[2:])), nil
	}
	return os.ExpandEnv(path), nil
}
