// Package discovery locates project roots inside a materialized
// repository by manifest presence. The walk is depth-bounded and skips a
// fixed set of noise directories, so monorepos fan out into multiple
// roots without descending into dependency caches or build output.
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	setuperr "github.com/arthur-debert/reposetup/pkg/errors"
	"github.com/arthur-debert/reposetup/pkg/logging"
	"github.com/arthur-debert/reposetup/pkg/types"
)

// MaxDepth bounds traversal to this many levels below the repository root.
const MaxDepth = 4

// noiseDirs are never descended into: version-control metadata, dependency
// caches, build output and virtual environments.
var noiseDirs = map[string]bool{
	".git":             true,
	".hg":              true,
	".svn":             true,
	"node_modules":     true,
	"bower_components": true,
	"vendor":           true,
	".venv":            true,
	"venv":             true,
	"env":              true,
	"__pycache__":      true,
	".tox":             true,
	".mypy_cache":      true,
	".pytest_cache":    true,
	"dist":             true,
	"build":            true,
	"target":           true,
	".gradle":          true,
	".bundle":          true,
	".cargo":           true,
	".idea":            true,
	".vscode":          true,
}

// IsNoiseDir reports whether a directory name belongs to the fixed
// exclusion set shared by project and container-context discovery.
func IsNoiseDir(name string) bool {
	return noiseDirs[name]
}

// Discover walks repoPath and returns every directory that directly
// contains at least one recognized manifest, ordered lexicographically by
// path. When no manifest exists anywhere, the repository root itself is
// returned as the sole project root.
func Discover(repoPath string) ([]types.ProjectRoot, error) {
	logger := logging.GetLogger("discovery")

	var roots []types.ProjectRoot
	err := walk(repoPath, repoPath, 0, func(dir string, depth int) {
		manifests := detectManifests(dir)
		if len(manifests) == 0 {
			return
		}
		logger.Debug().Str("path", dir).Int("depth", depth).
			Int("manifests", len(manifests)).Msg("Found project root")
		roots = append(roots, types.ProjectRoot{
			Path:      dir,
			Depth:     depth,
			Manifests: manifests,
		})
	})
	if err != nil {
		return nil, err
	}

	if len(roots) == 0 {
		// Discovery always yields at least one root.
		roots = append(roots, types.ProjectRoot{
			Path:      repoPath,
			Depth:     0,
			Manifests: map[types.ManifestKind]bool{},
		})
	}

	sort.Slice(roots, func(i, j int) bool {
		return roots[i].Path < roots[j].Path
	})

	return roots, nil
}

// FindDirsWith returns every directory within the depth bound that
// directly contains the named file, ordered lexicographically. Used by
// container-context discovery with the same noise exclusions.
func FindDirsWith(repoPath, filename string) ([]string, error) {
	var dirs []string
	err := walk(repoPath, repoPath, 0, func(dir string, _ int) {
		if fileExists(filepath.Join(dir, filename)) {
			dirs = append(dirs, dir)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}

func walk(root, dir string, depth int, visit func(dir string, depth int)) error {
	visit(dir, depth)

	if depth >= MaxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if dir == root {
			return setuperr.Wrapf(err, setuperr.ErrFileAccess, "cannot read %s", dir)
		}
		// Unreadable subdirectories are skipped, not fatal.
		return nil
	}

	for _, entry := range entries {
		if !entry.IsDir() || IsNoiseDir(entry.Name()) {
			continue
		}
		if err := walk(root, filepath.Join(dir, entry.Name()), depth+1, visit); err != nil {
			return err
		}
	}
	return nil
}

// detectManifests returns the manifest kinds directly present in dir.
func detectManifests(dir string) map[types.ManifestKind]bool {
	manifests := make(map[types.ManifestKind]bool)

	if fileExists(filepath.Join(dir, "requirements.txt")) {
		manifests[types.PythonRequirements] = true
	}
	if fileExists(filepath.Join(dir, "Pipfile")) {
		manifests[types.PythonPipfile] = true
	}
	if fileExists(filepath.Join(dir, "setup.py")) {
		manifests[types.PythonSetupPy] = true
	}
	if fileExists(filepath.Join(dir, "pyproject.toml")) {
		if isPoetryPyproject(filepath.Join(dir, "pyproject.toml")) {
			manifests[types.PythonPoetryPyproject] = true
		} else {
			manifests[types.PythonPlainPyproject] = true
		}
	}
	if fileExists(filepath.Join(dir, "package.json")) {
		manifests[types.NodePackageJson] = true
	}
	if fileExists(filepath.Join(dir, "Gemfile")) {
		manifests[types.RubyGemfile] = true
	}
	if fileExists(filepath.Join(dir, "go.mod")) {
		manifests[types.GoMod] = true
	}
	if fileExists(filepath.Join(dir, "Cargo.toml")) {
		manifests[types.RustCargo] = true
	}
	if fileExists(filepath.Join(dir, "pom.xml")) {
		manifests[types.JavaMaven] = true
	}
	if fileExists(filepath.Join(dir, "build.gradle")) || fileExists(filepath.Join(dir, "build.gradle.kts")) {
		manifests[types.JavaGradle] = true
	}
	if fileExists(filepath.Join(dir, "Dockerfile")) {
		manifests[types.Dockerfile] = true
	}

	return manifests
}

// pyprojectMarker is the subset of pyproject.toml needed to tell a Poetry
// project from a plain PEP 517/621 one.
type pyprojectMarker struct {
	Tool struct {
		Poetry map[string]interface{} `toml:"poetry"`
	} `toml:"tool"`
}

// isPoetryPyproject reports whether pyproject.toml carries the
// [tool.poetry] marker table. Unparseable files are treated as plain.
func isPoetryPyproject(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var marker pyprojectMarker
	if err := toml.Unmarshal(data, &marker); err != nil {
		// Fall back to a substring probe so a file with unrelated TOML
		// errors still classifies by its marker table.
		return strings.Contains(string(data), "[tool.poetry]")
	}
	return marker.Tool.Poetry != nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
