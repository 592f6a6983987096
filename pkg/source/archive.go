package source

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"

	setuperr "github.com/arthur-debert/reposetup/pkg/errors"
)

// extractArchive extracts a zip archive into dest, which must be a fresh
// directory. Entry paths are joined with securejoin so a crafted archive
// cannot write outside dest.
func extractArchive(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return setuperr.Wrapf(err, setuperr.ErrInvalidArchive,
			"not a well-formed zip archive: %s", filepath.Base(archivePath))
	}
	defer func() {
		_ = reader.Close()
	}()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return setuperr.Wrapf(err, setuperr.ErrDirCreate, "cannot create %s", dest)
	}

	for _, entry := range reader.File {
		target, err := securejoin.SecureJoin(dest, entry.Name)
		if err != nil {
			return setuperr.Wrapf(err, setuperr.ErrInvalidArchive,
				"unsafe archive entry path: %s", entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return setuperr.Wrapf(err, setuperr.ErrDirCreate, "cannot create %s", target)
			}
			continue
		}

		if err := extractEntry(entry, target); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return setuperr.Wrapf(err, setuperr.ErrDirCreate,
			"cannot create parent of %s", target)
	}

	in, err := entry.Open()
	if err != nil {
		return setuperr.Wrapf(err, setuperr.ErrInvalidArchive,
			"cannot read archive entry %s", entry.Name)
	}
	defer func() {
		_ = in.Close()
	}()

	perm := entry.Mode().Perm()
	if perm == 0 {
		perm = 0644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return setuperr.Wrapf(err, setuperr.ErrFileCreate, "cannot create %s", target)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return setuperr.Wrapf(err, setuperr.ErrFileWrite, "cannot write %s", target)
	}
	return out.Close()
}

// unwrapSingleRoot promotes the single top-level directory of dest, when
// there is exactly one entry and it is a directory, to become dest itself.
// Exactly one level of unwrapping, never recursive.
func unwrapSingleRoot(dest string) error {
	entries, err := os.ReadDir(dest)
	if err != nil {
		return setuperr.Wrapf(err, setuperr.ErrFileAccess, "cannot read %s", dest)
	}

	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	inner := filepath.Join(dest, entries[0].Name())
	// The staging name is collision-allocated so a pre-existing sibling
	// cannot abort the promotion midway.
	parent := filepath.Dir(dest)
	staging := filepath.Join(parent, AllocateName(parent, filepath.Base(dest)+".unwrap"))

	if err := os.Rename(inner, staging); err != nil {
		return setuperr.Wrapf(err, setuperr.ErrFileAccess, "cannot stage %s", inner)
	}
	if err := os.Remove(dest); err != nil {
		return setuperr.Wrapf(err, setuperr.ErrFileAccess, "cannot remove wrapper %s", dest)
	}
	if err := os.Rename(staging, dest); err != nil {
		return setuperr.Wrapf(err, setuperr.ErrFileAccess, "cannot promote %s", staging)
	}
	return nil
}
