package organizer

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"
)

// ConversionError marks a decode or encode failure for one file. Conversion
// is attempted at most once; the pipeline routes the file to Errors.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed for %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Converter normalises convertible image encodings into JPEG.
type Converter interface {
	// Convert decodes filePath and re-encodes it as JPEG at the configured
	// quality. The source file is never modified.
	Convert(filePath string) ([]byte, error)
}

// jpegConverter implements the Converter interface.
type jpegConverter struct {
	quality int
}

// NewConverter creates a Converter encoding at the given JPEG quality.
func NewConverter(quality int) Converter {
	return &jpegConverter{quality: quality}
}

// Convert decodes a RAW/TIFF/HEIC file and re-encodes it as JPEG.
func (c *jpegConverter) Convert(filePath string) ([]byte, error) {
	img, err := decodeImage(filePath)
	if err != nil {
		return nil, &ConversionError{Path: filePath, Err: err}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.quality)); err != nil {
		return nil, &ConversionError{Path: filePath, Err: err}
	}
	return buf.Bytes(), nil
}

// decodeImage decodes any supported image into a pixel buffer. JPEG, PNG and
// TIFF go through imaging with EXIF orientation applied; HEIC through the
// registered heif decoder; CR2/RAW try the TIFF container first with a
// fallback to the embedded EXIF preview.
func decodeImage(filePath string) (image.Image, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".cr2", ".raw":
		return decodeRaw(filePath)
	case ".heic":
		f, err := os.Open(filePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		return img, err
	default:
		return imaging.Open(filePath, imaging.AutoOrientation(true))
	}
}

// decodeRaw decodes a camera RAW file. CR2 is a TIFF container, so a direct
// TIFF decode works for some files; otherwise the full-size JPEG preview
// embedded in the EXIF block is used.
func decodeRaw(filePath string) (image.Image, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, tiffErr := tiff.Decode(f)
	if tiffErr == nil {
		return img, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("no decodable image data (tiff: %v, exif: %v)", tiffErr, err)
	}
	thumb, err := x.JpegThumbnail()
	if err != nil {
		return nil, fmt.Errorf("no decodable image data (tiff: %v, preview: %v)", tiffErr, err)
	}
	return jpeg.Decode(bytes.NewReader(thumb))
}
