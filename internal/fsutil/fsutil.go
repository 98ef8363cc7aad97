package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// AtomicWrite writes data to path using a tmp+rename strategy.
// If rename fails, the tmp file is cleaned up.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// CreateExclusive atomically creates an empty file at path, failing if
// one already exists. The O_EXCL create is the locking primitive: two
// processes racing on the same path see exactly one winner. Returns
// taken=false when the file was already present.
func CreateExclusive(path string) (taken bool, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := f.Close(); err != nil {
		return false, err
	}
	return true, nil
}

// Exists reports whether path exists at all (file or directory).
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// RemoveIfPresent removes path if it exists; a missing path is not an
// error.
func RemoveIfPresent(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearDirExcept removes every entry of dir except the named survivors.
func ClearDirExcept(dir string, keep ...string) error {
	kept := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		kept[k] = struct{}{}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, ok := kept[e.Name()]; ok {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// RemoveWriteAccess strips write permission from root and everything
// under it. Files are walked depth-first in reverse so directories stay
// writable while their children are still being visited.
func RemoveWriteAccess(root string) error {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return err
	}
	for i := len(paths) - 1; i >= 0; i-- {
		info, err := os.Stat(paths[i])
		if err != nil {
			return err
		}
		if err := os.Chmod(paths[i], info.Mode().Perm()&^0o222); err != nil {
			return err
		}
	}
	return nil
}

// RestoreWriteAccess re-grants owner write permission recursively.
// Parents are restored before children so the walk itself can descend.
func RestoreWriteAccess(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		return os.Chmod(path, info.Mode().Perm()|0o200)
	})
}
