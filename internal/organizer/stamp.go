package organizer

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/barasher/go-exiftool"

	"github.com/chrisefrost/photo-organiser/internal/logger"
)

// captureDateStamper writes the resolved capture date back onto converted
// output files, so a JPEG produced from a RAW or HEIC source keeps the date
// the original carried.
type captureDateStamper struct {
	et      *exiftool.Exiftool
	binPath string
}

func newCaptureDateStamper(et *exiftool.Exiftool, binPath string) *captureDateStamper {
	if binPath == "" {
		binPath = "exiftool"
	}
	return &captureDateStamper{et: et, binPath: binPath}
}

// Stamp sets DateTimeOriginal on filePath via the exiftool binary when one is
// available and always sets the file's modification time to the capture date.
// Stamping is best-effort: a failure is logged and never fails the placement.
func (s *captureDateStamper) Stamp(filePath string, taken time.Time) {
	if s.et != nil {
		// -overwrite_original prevents creating backup files
		cmd := exec.Command(s.binPath,
			"-DateTimeOriginal="+taken.Format(exifDateLayout),
			"-overwrite_original",
			filePath)
		if output, err := cmd.CombinedOutput(); err != nil {
			logger.Debug("Failed to stamp capture date", "file", filepath.Base(filePath), "error", err, "output", string(output))
		}
	}

	if err := os.Chtimes(filePath, time.Now(), taken); err != nil {
		logger.Debug("Failed to set modification time", "file", filepath.Base(filePath), "error", err)
	}
}
