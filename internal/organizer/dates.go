package organizer

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"

	"github.com/chrisefrost/photo-organiser/internal/logger"
)

// exifDateLayout is the timestamp format used by EXIF date fields.
const exifDateLayout = "2006:01:02 15:04:05"

// CaptureDate is the (year, month) placement granularity for a media file.
type CaptureDate struct {
	Year  int
	Month time.Month
}

func captureDateOf(t time.Time) CaptureDate {
	return CaptureDate{Year: t.Year(), Month: t.Month()}
}

// Dir returns the destination subdirectory for the date, "2006" in Year mode
// and "2006/01" in Year/Month mode.
func (d CaptureDate) Dir(structure Structure) string {
	year := fmt.Sprintf("%04d", d.Year)
	if structure == StructureYear {
		return year
	}
	return filepath.Join(year, fmt.Sprintf("%02d", int(d.Month)))
}

// fileDateExtractor defines the interface for extracting file dates
type fileDateExtractor interface {
	getFileDate(filePath string) (time.Time, error)
	name() string
}

// modTimeExtractor extracts date from file modification time
type modTimeExtractor struct{}

func newModTimeExtractor() *modTimeExtractor {
	return &modTimeExtractor{}
}

func (e *modTimeExtractor) name() string {
	return "ModTime"
}

func (e *modTimeExtractor) getFileDate(filePath string) (time.Time, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return time.Time{}, err
	}
	logger.Debug("Using file modification time", "file", filepath.Base(filePath), "modTime", info.ModTime())
	return info.ModTime(), nil
}

// exifDateExtractor extracts the capture date from embedded EXIF metadata
// using a pure-Go parser, so it works without any external binary.
type exifDateExtractor struct{}

func newExifDateExtractor() *exifDateExtractor {
	return &exifDateExtractor{}
}

func (e *exifDateExtractor) name() string {
	return "EXIF"
}

func (e *exifDateExtractor) getFileDate(filePath string) (time.Time, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, err
	}

	// Try date fields in order of preference. Malformed or impossible values
	// are treated as absent so resolution degrades to the next field.
	dateFields := []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized, exif.DateTime}
	for _, field := range dateFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		val, err := tag.StringVal()
		if err != nil {
			continue
		}
		parsed, err := time.ParseInLocation(exifDateLayout, val, time.Local)
		if err != nil {
			logger.Debug("Failed to parse EXIF date", "file", filepath.Base(filePath), "field", field, "date", val, "error", err)
			continue
		}
		if !plausibleYear(parsed) {
			logger.Debug("Implausible EXIF date, skipping", "file", filepath.Base(filePath), "field", field, "date", val)
			continue
		}
		logger.Debug("Using EXIF date field", "file", filepath.Base(filePath), "field", field, "date", val)
		return parsed, nil
	}

	return time.Time{}, fmt.Errorf("no EXIF date field found")
}

// exiftoolDateExtractor shells out to exiftool via go-exiftool; it covers tags
// the embedded parser misses (HEIC, video containers, vendor RAW fields).
type exiftoolDateExtractor struct {
	et *exiftool.Exiftool
}

func newExiftoolDateExtractor(et *exiftool.Exiftool) *exiftoolDateExtractor {
	return &exiftoolDateExtractor{et: et}
}

func (e *exiftoolDateExtractor) name() string {
	return "Exiftool"
}

func (e *exiftoolDateExtractor) getFileDate(filePath string) (time.Time, error) {
	fileInfos := e.et.ExtractMetadata(filePath)
	if len(fileInfos) == 0 {
		return time.Time{}, fmt.Errorf("no metadata found")
	}

	fileInfo := fileInfos[0]
	if fileInfo.Err != nil {
		return time.Time{}, fileInfo.Err
	}

	dateFields := []string{"DateTimeOriginal", "CreationDate", "CreateDate"}
	for _, field := range dateFields {
		val, err := fileInfo.GetString(field)
		if err != nil {
			continue
		}
		parsed, err := time.ParseInLocation(exifDateLayout, val, time.Local)
		if err != nil {
			logger.Debug("Failed to parse exiftool date", "file", filepath.Base(filePath), "field", field, "date", val, "error", err)
			continue
		}
		if !plausibleYear(parsed) {
			continue
		}
		logger.Debug("Using exiftool date field", "file", filepath.Base(filePath), "field", field, "date", val)
		return parsed, nil
	}

	return time.Time{}, fmt.Errorf("no usable exiftool date field found")
}

// plausibleYear rejects impossible capture dates (before photography existed,
// or in the future beyond clock skew).
func plausibleYear(t time.Time) bool {
	year := t.Year()
	return year >= 1826 && year <= time.Now().Year()+1
}

// DateResolver resolves the capture date of a media file. Resolution never
// fails: images try the embedded metadata extractors in order, videos and
// anything without usable metadata fall back to the filesystem modification
// time, and an unreadable file resolves to the current time.
type DateResolver struct {
	imageExtractors []fileDateExtractor
	fallback        fileDateExtractor
}

// NewDateResolver creates a DateResolver. The exiftool handle is optional:
// when nil only the embedded pure-Go EXIF parser is used before the
// modification-time fallback.
func NewDateResolver(et *exiftool.Exiftool) *DateResolver {
	extractors := []fileDateExtractor{newExifDateExtractor()}
	if et != nil {
		extractors = append(extractors, newExiftoolDateExtractor(et))
	}
	return &DateResolver{
		imageExtractors: extractors,
		fallback:        newModTimeExtractor(),
	}
}

// Resolve returns the (year, month) capture date used for placement.
func (r *DateResolver) Resolve(filePath string, mediaType MediaType) CaptureDate {
	return captureDateOf(r.resolveTime(filePath, mediaType))
}

func (r *DateResolver) resolveTime(filePath string, mediaType MediaType) time.Time {
	if mediaType == ImageDirect || mediaType == ImageConvertible {
		for _, extractor := range r.imageExtractors {
			date, err := extractor.getFileDate(filePath)
			if err == nil && !date.IsZero() {
				return date
			}
			if err != nil {
				logger.Debug("Extractor failed, trying next", "extractor", extractor.name(), "file", filepath.Base(filePath), "error", err)
			}
		}
	}

	date, err := r.fallback.getFileDate(filePath)
	if err == nil && !date.IsZero() {
		return date
	}

	logger.Warn("All date extractors failed, using current time", "file", filepath.Base(filePath), "error", err)
	return time.Now()
}
