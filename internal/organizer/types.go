package organizer

// Structure selects the depth of the date-based destination tree.
type Structure string

const (
	// StructureYear organises into <dest>/<YYYY>/.
	StructureYear Structure = "year"
	// StructureYearMonth organises into <dest>/<YYYY>/<MM>/.
	StructureYearMonth Structure = "year-month"
)

// Options holds configuration options for an organising run.
type Options struct {
	// Structure selects Year or Year/Month destination directories.
	Structure Structure
	// JPEGQuality is the encoding quality for converted images (1-100).
	JPEGQuality int
	// ExiftoolPath overrides the exiftool binary location (empty uses $PATH).
	ExiftoolPath string
	// ProgressChan is an optional channel for receiving progress events.
	ProgressChan chan<- ProgressEvent
}

// DefaultOptions returns the default organising options.
func DefaultOptions() Options {
	return Options{
		Structure:    StructureYearMonth,
		JPEGQuality:  95,
		ProgressChan: nil,
	}
}

// ProgressEvent represents a progress update during an organising run.
type ProgressEvent struct {
	// Stage indicates the current processing stage ("scanning", "organising").
	Stage string
	// Current is the number of files processed so far.
	Current int
	// Total is the total number of files to process.
	Total int
	// Message is a human-readable description of the current operation.
	Message string
	// File is the path of the file currently being processed.
	File string
}

// Bucket identifies the destination category a file was routed to.
type Bucket string

const (
	BucketOrganized   Bucket = "organized"
	BucketVideo       Bucket = "video"
	BucketDuplicate   Bucket = "suspect_duplicate"
	BucketError       Bucket = "error"
	BucketManualCheck Bucket = "manual_check"
)

// Action is the filesystem operation performed for a placement.
type Action string

const (
	ActionMove           Action = "move"
	ActionCopy           Action = "copy"
	ActionConvertAndMove Action = "convert_and_move"
)

// Decision records where a single source file was routed and how. Exactly one
// Decision is produced per visited file; it is never mutated after creation.
type Decision struct {
	// Source is the absolute path of the visited file.
	Source string
	// Bucket is the destination category.
	Bucket Bucket
	// DestPath is the final destination path, empty if even the fallback copy
	// into Errors failed.
	DestPath string
	// Action is the filesystem operation that was performed.
	Action Action
	// Reason holds the failure description for the Errors bucket.
	Reason string
	// Representative is the kept original for the Suspect Duplicates bucket.
	Representative string
	// ConvertedFrom is the lowercase source format ("cr2", "raw", "tif",
	// "heic") when the file was converted to JPEG, empty otherwise.
	ConvertedFrom string
}
