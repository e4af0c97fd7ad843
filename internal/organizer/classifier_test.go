package organizer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestClassifier_Extensions(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		filePath string
		expected MediaType
	}{
		{"photo.jpg", ImageDirect},
		{"photo.JPG", ImageDirect},
		{"photo.jpeg", ImageDirect},
		{"photo.png", ImageDirect},
		{"photo.PNG", ImageDirect},
		{"photo.cr2", ImageConvertible},
		{"photo.CR2", ImageConvertible},
		{"photo.raw", ImageConvertible},
		{"photo.tif", ImageConvertible},
		{"photo.tiff", ImageConvertible},
		{"photo.heic", ImageConvertible},
		{"clip.mp4", Video},
		{"clip.MOV", Video},
		{"clip.avi", Video},
		{"clip.mkv", Video},
		{"clip.webm", Video},
		{"clip.flv", Video},
		{"/path/to/image.JPeG", ImageDirect},
		{"/path/to/clip.Mp4", Video},
	}

	for _, tt := range tests {
		result := c.Classify(tt.filePath)
		if result != tt.expected {
			t.Errorf("Classify(%s) = %v, expected %v", tt.filePath, result, tt.expected)
		}
	}
}

func TestClassifier_UnknownExtensionSniffsContent(t *testing.T) {
	tmpDir := t.TempDir()
	c := NewClassifier()

	tests := []struct {
		name     string
		content  []byte
		expected MediaType
	}{
		{"jpeg_no_ext", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}, ImageDirect},
		{"png_no_ext", []byte("\x89PNG\r\n\x1a\n0000"), ImageDirect},
		{"tiff.dat", []byte("II*\x00extra-bytes"), ImageConvertible},
		{"tiff_be.dat", []byte("MM\x00*extra-bytes"), ImageConvertible},
		{"heic.bin", []byte("\x00\x00\x00\x18ftypheic0000"), ImageConvertible},
		{"quicktime.bin", []byte("\x00\x00\x00\x14ftypqt  0000"), Video},
		{"matroska.bin", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x00, 0x00, 0x00, 0x00}, Video},
		{"flash.bin", []byte("FLV\x01\x05\x00\x00\x00\x09"), Video},
		{"avi.bin", []byte("RIFF\x00\x00\x00\x00AVI LIST"), Video},
		{"plain.txt2", []byte("just some text, nothing to see"), Unrecognized},
		{"empty", nil, Unrecognized},
	}

	for _, tt := range tests {
		path := filepath.Join(tmpDir, tt.name)
		if err := os.WriteFile(path, tt.content, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		result := c.Classify(path)
		if result != tt.expected {
			t.Errorf("Classify(%s) = %v, expected %v", tt.name, result, tt.expected)
		}
	}
}

func TestClassifier_UnreadableFileIsUnrecognized(t *testing.T) {
	c := NewClassifier()

	// A read failure during sniffing must classify, not error: the file is
	// routed to Manually Check instead of Errors.
	result := c.Classify("/nonexistent/mystery-file")
	if result != Unrecognized {
		t.Errorf("Classify(nonexistent) = %v, expected Unrecognized", result)
	}
}

func TestMediaType_String(t *testing.T) {
	tests := []struct {
		mediaType MediaType
		expected  string
	}{
		{ImageDirect, "image"},
		{ImageConvertible, "convertible image"},
		{Video, "video"},
		{Unrecognized, "unrecognized"},
	}

	for _, tt := range tests {
		if got := tt.mediaType.String(); got != tt.expected {
			t.Errorf("String() = %q, expected %q", got, tt.expected)
		}
	}
}
