package fileutil

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/wikiente/core/errors"
)

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteFileAtomic writes data to path through a temporary file in the same
// directory, so readers never see a partial document. Data is compressed
// according to the extension of path. An existing file keeps its mode.
func WriteFileAtomic(path string, data []byte) error {
	out, err := Compress(data, CompressionForPath(path))
	if err != nil {
		return errors.NewIO("compress", path, err)
	}

	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		if !info.Mode().IsRegular() {
			return errors.NewIO("write", path, errors.Wrap(errors.ErrUnsupported, "not a regular file"))
		}
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(out); err != nil {
		cleanup()
		return errors.NewIO("write", path, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.NewIO("sync", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewIO("close", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return errors.NewIO("chmod", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.NewIO("rename", path, err)
	}
	return nil
}
