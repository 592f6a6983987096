package source

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/reposetup/pkg/types"
)

// DefaultBaseName is used when no name can be derived from a remote URL.
const DefaultBaseName = "repository"

// DeriveBaseName derives the destination base name for a source: the
// folder's own name, the archive filename without extension, or the last
// non-empty URL path segment with a trailing ".git" stripped.
func DeriveBaseName(desc types.SourceDescriptor) string {
	switch desc.Kind {
	case types.SourceFolder:
		return filepath.Base(filepath.Clean(desc.Location))
	case types.SourceArchive:
		name := filepath.Base(desc.Location)
		return strings.TrimSuffix(name, filepath.Ext(name))
	case types.SourceRemoteRepo:
		return deriveRemoteBaseName(desc.Location)
	}
	return DefaultBaseName
}

func deriveRemoteBaseName(location string) string {
	pathPart := location
	if parsed, err := url.Parse(location); err == nil && parsed.Scheme != "" {
		pathPart = parsed.Path
	} else if idx := strings.LastIndex(location, ":"); idx >= 0 {
		// scp-style user@host:path
		pathPart = location[idx+1:]
	}

	pathPart = strings.TrimRight(pathPart, "/")
	name := path.Base(pathPart)
	name = strings.TrimSuffix(name, ".git")
	if name == "" || name == "." || name == "/" {
		return DefaultBaseName
	}
	return name
}

// AllocateName returns base if no entry with that name exists under
// parent, otherwise the first "base_N" (N starting at 1) absent at check
// time. Deterministic for a fixed directory snapshot; the check-then-create
// race is a documented limitation.
func AllocateName(parent, base string) string {
	candidate := base
	for counter := 1; exists(filepath.Join(parent, candidate)); counter++ {
		candidate = fmt.Sprintf("%s_%d", base, counter)
	}
	return candidate
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
