package organizer

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LogFileName is the report file written into the destination root.
const LogFileName = "photo_organizer_log.txt"

// DuplicateMatch records one suspect duplicate and the kept original it
// matched.
type DuplicateMatch struct {
	Source         string
	Representative string
}

// FileError records one file that failed during processing.
type FileError struct {
	Source string
	Reason string
}

// RunReport accumulates the outcome of one organising run. It is mutated
// incrementally by the pipeline via Record and rendered once at run end.
type RunReport struct {
	SourceDir      string
	DestinationDir string
	Structure      Structure

	StartedAt  time.Time
	FinishedAt time.Time
	// Cancelled is set when the run stopped early; counts then cover only the
	// files placed before cancellation.
	Cancelled bool

	PhotosOrganized   int
	VideosOrganized   int
	SuspectDuplicates int
	ManualCheck       int
	ErrorCount        int

	// Converted counts conversions per lowercase source format ("cr2", "raw",
	// "tif", "heic").
	Converted map[string]int

	Duplicates []DuplicateMatch
	Errors     []FileError
}

// NewRunReport creates a report for a run starting now.
func NewRunReport(sourceDir, destDir string, structure Structure) *RunReport {
	return &RunReport{
		SourceDir:      sourceDir,
		DestinationDir: destDir,
		Structure:      structure,
		StartedAt:      time.Now(),
		Converted:      make(map[string]int),
	}
}

// Record tallies one placement decision. The pipeline calls it synchronously
// after the filesystem action for the decision has completed, so counts are
// always consistent with the destination tree.
func (r *RunReport) Record(d Decision) {
	switch d.Bucket {
	case BucketOrganized:
		r.PhotosOrganized++
	case BucketVideo:
		r.VideosOrganized++
	case BucketDuplicate:
		r.SuspectDuplicates++
		r.Duplicates = append(r.Duplicates, DuplicateMatch{Source: d.Source, Representative: d.Representative})
	case BucketManualCheck:
		r.ManualCheck++
	case BucketError:
		r.ErrorCount++
		r.Errors = append(r.Errors, FileError{Source: d.Source, Reason: d.Reason})
	}
	if d.ConvertedFrom != "" && d.Bucket != BucketError {
		r.Converted[d.ConvertedFrom]++
	}
}

// Total returns the number of files placed so far across all buckets.
func (r *RunReport) Total() int {
	return r.PhotosOrganized + r.VideosOrganized + r.SuspectDuplicates + r.ManualCheck + r.ErrorCount
}

// Finalize stamps the end time.
func (r *RunReport) Finalize() {
	r.FinishedAt = time.Now()
}

// Render produces the end-of-run plain text summary.
func (r *RunReport) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Photo and Video Organization Summary (%s)\n", r.FinishedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Source Directory: %s\n", r.SourceDir)
	fmt.Fprintf(&b, "Destination Directory: %s\n", r.DestinationDir)
	fmt.Fprintf(&b, "Organization Structure: %s\n\n", r.Structure)
	if r.Cancelled {
		b.WriteString("Run was cancelled; counts cover files processed before cancellation.\n\n")
	}

	b.WriteString("--- Summary of Processed Files ---\n")
	fmt.Fprintf(&b, "Photos Organized: %d\n", r.PhotosOrganized)
	fmt.Fprintf(&b, "Videos Organized: %d\n", r.VideosOrganized)
	fmt.Fprintf(&b, "Suspect Duplicates: %d\n", r.SuspectDuplicates)
	fmt.Fprintf(&b, "Files for Manual Check: %d\n", r.ManualCheck)
	fmt.Fprintf(&b, "Files Moved to Errors: %d\n", r.ErrorCount)

	b.WriteString("\nFiles Converted (to JPG):\n")
	if len(r.Converted) == 0 {
		b.WriteString("  None\n")
	} else {
		formats := make([]string, 0, len(r.Converted))
		for format := range r.Converted {
			formats = append(formats, format)
		}
		sort.Strings(formats)
		for _, format := range formats {
			fmt.Fprintf(&b, "  %s: %d\n", strings.ToUpper(format), r.Converted[format])
		}
	}

	b.WriteString("\n--- Suspect Duplicates ---\n")
	if len(r.Duplicates) == 0 {
		b.WriteString("None\n")
	} else {
		for _, dup := range r.Duplicates {
			fmt.Fprintf(&b, "%s suspected duplicate of %s\n", dup.Source, dup.Representative)
		}
	}

	b.WriteString("\n--- Errors Encountered ---\n")
	if len(r.Errors) == 0 {
		b.WriteString("None\n")
	} else {
		for _, fe := range r.Errors {
			fmt.Fprintf(&b, "- %s: %s\n", fe.Source, fe.Reason)
		}
	}

	return b.String()
}
