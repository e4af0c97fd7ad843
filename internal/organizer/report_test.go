package organizer

import (
	"strings"
	"testing"
)

func TestRunReport_Record(t *testing.T) {
	r := NewRunReport("/src", "/dst", StructureYearMonth)

	r.Record(Decision{Source: "a.jpg", Bucket: BucketOrganized, Action: ActionMove})
	r.Record(Decision{Source: "b.cr2", Bucket: BucketOrganized, Action: ActionConvertAndMove, ConvertedFrom: "cr2"})
	r.Record(Decision{Source: "c.mp4", Bucket: BucketVideo, Action: ActionMove})
	r.Record(Decision{Source: "d.jpg", Bucket: BucketDuplicate, Action: ActionCopy, Representative: "/dst/2023/05/a.jpg"})
	r.Record(Decision{Source: "e.xyz", Bucket: BucketManualCheck, Action: ActionCopy})
	r.Record(Decision{Source: "f.cr2", Bucket: BucketError, Reason: "conversion failed", ConvertedFrom: "cr2"})

	if r.PhotosOrganized != 2 {
		t.Errorf("PhotosOrganized = %d, expected 2", r.PhotosOrganized)
	}
	if r.VideosOrganized != 1 {
		t.Errorf("VideosOrganized = %d, expected 1", r.VideosOrganized)
	}
	if r.SuspectDuplicates != 1 {
		t.Errorf("SuspectDuplicates = %d, expected 1", r.SuspectDuplicates)
	}
	if r.ManualCheck != 1 {
		t.Errorf("ManualCheck = %d, expected 1", r.ManualCheck)
	}
	if r.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, expected 1", r.ErrorCount)
	}
	if r.Total() != 6 {
		t.Errorf("Total = %d, expected 6", r.Total())
	}

	// A failed conversion does not count as a conversion.
	if r.Converted["cr2"] != 1 {
		t.Errorf("Converted[cr2] = %d, expected 1", r.Converted["cr2"])
	}

	if len(r.Duplicates) != 1 || r.Duplicates[0].Representative != "/dst/2023/05/a.jpg" {
		t.Errorf("Duplicates = %v", r.Duplicates)
	}
	if len(r.Errors) != 1 || r.Errors[0].Reason != "conversion failed" {
		t.Errorf("Errors = %v", r.Errors)
	}
}

func TestRunReport_Render(t *testing.T) {
	r := NewRunReport("/photos/in", "/photos/out", StructureYearMonth)
	r.Record(Decision{Source: "a.jpg", Bucket: BucketOrganized})
	r.Record(Decision{Source: "b.heic", Bucket: BucketOrganized, ConvertedFrom: "heic"})
	r.Record(Decision{Source: "c.tif", Bucket: BucketOrganized, ConvertedFrom: "tif"})
	r.Record(Decision{Source: "/photos/in/d.jpg", Bucket: BucketDuplicate, Representative: "/photos/out/2023/05/a.jpg"})
	r.Record(Decision{Source: "/photos/in/e.cr2", Bucket: BucketError, Reason: "decode raw: unexpected EOF"})
	r.Finalize()

	out := r.Render()

	expectedLines := []string{
		"Photo and Video Organization Summary (",
		strings.Repeat("=", 60),
		"Source Directory: /photos/in",
		"Destination Directory: /photos/out",
		"Photos Organized: 3",
		"Videos Organized: 0",
		"Suspect Duplicates: 1",
		"Files for Manual Check: 0",
		"Files Moved to Errors: 1",
		"Files Converted (to JPG):",
		"HEIC: 1",
		"TIF: 1",
		"/photos/in/d.jpg suspected duplicate of /photos/out/2023/05/a.jpg",
		"- /photos/in/e.cr2: decode raw: unexpected EOF",
	}
	for _, line := range expectedLines {
		if !strings.Contains(out, line) {
			t.Errorf("Render output missing %q\n%s", line, out)
		}
	}

	if strings.Contains(out, "cancelled") {
		t.Error("Render mentions cancellation for a completed run")
	}
}

func TestRunReport_RenderEmpty(t *testing.T) {
	r := NewRunReport("/src", "/dst", StructureYear)
	r.Finalize()
	out := r.Render()

	if !strings.Contains(out, "Photos Organized: 0") {
		t.Errorf("Render output missing zero counts\n%s", out)
	}
	// Empty sections render as None rather than being omitted.
	if strings.Count(out, "None") != 3 {
		t.Errorf("Expected three None sections\n%s", out)
	}
}

func TestRunReport_RenderCancelled(t *testing.T) {
	r := NewRunReport("/src", "/dst", StructureYearMonth)
	r.Record(Decision{Source: "a.jpg", Bucket: BucketOrganized})
	r.Cancelled = true
	r.Finalize()

	out := r.Render()
	if !strings.Contains(out, "cancelled") {
		t.Errorf("Render output missing cancellation notice\n%s", out)
	}
	if !strings.Contains(out, "Photos Organized: 1") {
		t.Errorf("Cancelled report must keep partial counts\n%s", out)
	}
}
