package organizer

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chrisefrost/photo-organiser/internal/logger"
)

// MediaType is the closed classification of a source file.
type MediaType int

const (
	// Unrecognized files go to the Manually Check bucket.
	Unrecognized MediaType = iota
	// ImageDirect images (JPEG, PNG) are organised as-is.
	ImageDirect
	// ImageConvertible images (RAW, TIFF, HEIC) are converted to JPEG first.
	ImageConvertible
	// Video files are organised under Videos/ without conversion.
	Video
)

// String returns the media type name for logs and reports.
func (t MediaType) String() string {
	switch t {
	case ImageDirect:
		return "image"
	case ImageConvertible:
		return "convertible image"
	case Video:
		return "video"
	default:
		return "unrecognized"
	}
}

// Classifier maps a file to its MediaType.
type Classifier interface {
	// Classify determines the media type from the file extension, falling
	// back to a magic-byte sniff when the extension is absent or unknown.
	// It never fails: files it cannot read classify as Unrecognized.
	Classify(filePath string) MediaType
}

// classifier implements the Classifier interface.
type classifier struct {
	directExts      []string
	convertibleExts []string
	videoExts       []string
}

// NewClassifier creates a new Classifier instance with the fixed extension
// tables. Matching is case-insensitive.
func NewClassifier() Classifier {
	return &classifier{
		directExts:      []string{".jpg", ".jpeg", ".png"},
		convertibleExts: []string{".cr2", ".raw", ".tif", ".tiff", ".heic"},
		videoExts:       []string{".mp4", ".mov", ".avi", ".mkv", ".webm", ".flv"},
	}
}

// Classify determines the media type of a file.
func (c *classifier) Classify(filePath string) MediaType {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch {
	case slices.Contains(c.directExts, ext):
		return ImageDirect
	case slices.Contains(c.convertibleExts, ext):
		return ImageConvertible
	case slices.Contains(c.videoExts, ext):
		return Video
	}
	return sniffType(filePath)
}

// sniffType inspects the leading bytes of a file whose extension gave no
// answer. A read failure here means "can't classify", not "failed to
// process": the file routes to Manually Check rather than Errors.
func sniffType(filePath string) MediaType {
	f, err := os.Open(filePath)
	if err != nil {
		logger.Debug("Content sniff skipped, file unreadable", "file", filepath.Base(filePath), "error", err)
		return Unrecognized
	}
	defer f.Close()

	buf := make([]byte, 16)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return Unrecognized
	}
	return sniffBytes(buf[:n])
}

// sniffBytes matches well-known magic numbers for the supported formats.
func sniffBytes(buf []byte) MediaType {
	switch {
	case bytes.HasPrefix(buf, []byte{0xFF, 0xD8, 0xFF}):
		return ImageDirect // JPEG
	case bytes.HasPrefix(buf, []byte("\x89PNG\r\n\x1a\n")):
		return ImageDirect
	case bytes.HasPrefix(buf, []byte("II*\x00")), bytes.HasPrefix(buf, []byte("MM\x00*")):
		return ImageConvertible // TIFF container, also CR2
	case bytes.HasPrefix(buf, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return Video // EBML: Matroska and WebM
	case bytes.HasPrefix(buf, []byte("FLV\x01")):
		return Video
	case len(buf) >= 12 && bytes.HasPrefix(buf, []byte("RIFF")) && bytes.Equal(buf[8:12], []byte("AVI ")):
		return Video
	case len(buf) >= 12 && bytes.Equal(buf[4:8], []byte("ftyp")):
		// ISO base media: brand decides between HEIC stills and MP4/MOV video.
		switch string(buf[8:12]) {
		case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
			return ImageConvertible
		default:
			return Video
		}
	}
	return Unrecognized
}
