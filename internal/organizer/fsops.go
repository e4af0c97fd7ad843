package organizer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chrisefrost/photo-organiser/internal/logger"
)

// uniqueDestPath returns a path in dir for name that does not collide with an
// existing file, appending _1, _2, ... before the extension.
func uniqueDestPath(dir, name string) string {
	dst := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(dst); os.IsNotExist(err) {
			return dst
		}
		dst = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, counter, ext))
	}
}

// stageTemp creates a temporary file in dir. Staging in the destination
// directory keeps the final rename atomic and guarantees a failed write never
// leaves a partial file in the destination tree.
func stageTemp(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return os.CreateTemp(dir, ".organizer-*.tmp")
}

// commitTemp syncs the staged temp file and renames it onto its final name.
func commitTemp(tmp *os.File, dst string) error {
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// copyFileTo copies src into dstDir under name, staging through a temp file
// so the destination only ever contains complete files. The modification time
// of the source is preserved. Returns the final destination path, which may
// carry a collision suffix.
func copyFileTo(src, dstDir, name string) (string, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	srcFile, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer srcFile.Close()

	tmp, err := stageTemp(dstDir)
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, srcFile); err != nil {
		tmp.Close()
		return "", err
	}

	dst := uniqueDestPath(dstDir, name)
	if err := commitTemp(tmp, dst); err != nil {
		return "", err
	}
	if err := os.Chtimes(dst, time.Now(), srcInfo.ModTime()); err != nil {
		logger.Debug("Failed to preserve modification time", "file", dst, "error", err)
	}
	return dst, nil
}

// writeFileTo writes data (converted output) into dstDir under name with the
// same staging discipline as copyFileTo.
func writeFileTo(data []byte, dstDir, name string) (string, error) {
	tmp, err := stageTemp(dstDir)
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}

	dst := uniqueDestPath(dstDir, name)
	if err := commitTemp(tmp, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// overwriteFileTo writes data onto exactly dstDir/name, replacing any previous
// file of that name. Used for the run log, whose path is fixed: a re-run into
// the same destination replaces the stale report instead of suffixing it.
func overwriteFileTo(data []byte, dstDir, name string) error {
	tmp, err := stageTemp(dstDir)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	return commitTemp(tmp, filepath.Join(dstDir, name))
}

// moveFileTo relocates src into dstDir under name. A plain rename is tried
// first; cross-device moves fall back to copy then remove, so the source only
// disappears after the destination is durably written.
func moveFileTo(src, dstDir, name string) (string, error) {
	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return "", err
	}
	dst := uniqueDestPath(dstDir, name)
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}

	dst, err := copyFileTo(src, dstDir, name)
	if err != nil {
		return "", err
	}
	if err := os.Remove(src); err != nil {
		// Destination is committed, so the move is semantically complete; the
		// leftover source is reported but harmless.
		logger.Warn("Moved file but failed to remove source", "source", src, "error", err)
	}
	return dst, nil
}
