package source

import (
	"io"
	"os"
	"path/filepath"

	setuperr "github.com/arthur-debert/reposetup/pkg/errors"
)

// copyTree recursively copies src to dst. Symlinks are recreated as links
// pointing at their original targets, never dereferenced. File modes are
// preserved.
func copyTree(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return setuperr.Wrapf(err, setuperr.ErrFileAccess, "cannot stat %s", src)
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(src)
		if err != nil {
			return setuperr.Wrapf(err, setuperr.ErrFileAccess, "cannot read symlink %s", src)
		}
		if err := os.Symlink(target, dst); err != nil {
			return setuperr.Wrapf(err, setuperr.ErrFileCreate, "cannot create symlink %s", dst)
		}
		return nil

	case info.IsDir():
		if err := os.MkdirAll(dst, info.Mode().Perm()); err != nil {
			return setuperr.Wrapf(err, setuperr.ErrDirCreate, "cannot create directory %s", dst)
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			return setuperr.Wrapf(err, setuperr.ErrFileAccess, "cannot read directory %s", src)
		}
		for _, entry := range entries {
			if err := copyTree(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
				return err
			}
		}
		return nil

	default:
		return copyFile(src, dst, info.Mode().Perm())
	}
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return setuperr.Wrapf(err, setuperr.ErrFileAccess, "cannot open %s", src)
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return setuperr.Wrapf(err, setuperr.ErrFileCreate, "cannot create %s", dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return setuperr.Wrapf(err, setuperr.ErrFileWrite, "cannot write %s", dst)
	}
	if err := out.Close(); err != nil {
		return setuperr.Wrapf(err, setuperr.ErrFileWrite, "cannot close %s", dst)
	}
	return nil
}

// countFiles counts regular files under root, for progress logging.
func countFiles(root string) int {
	count := 0
	_ = filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err == nil && d.Type().IsRegular() {
			count++
		}
		return nil
	})
	return count
}
