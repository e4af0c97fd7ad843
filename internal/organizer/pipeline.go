package organizer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/disintegration/imaging"

	"github.com/chrisefrost/photo-organiser/internal/logger"
)

// Directory names for the fixed destination buckets.
const (
	videosDirName      = "Videos"
	duplicatesDirName  = "Suspect Duplicates"
	errorsDirName      = "Errors"
	manualCheckDirName = "Manually Check"
)

// Organizer drives the classification-and-placement pipeline.
type Organizer struct {
	classifier Classifier
	dates      *DateResolver
	converter  Converter
	index      *DuplicateIndex
	stamper    *captureDateStamper
	opts       Options

	et *exiftool.Exiftool
}

// mediaItem carries one source file through the pipeline stages. Fields are
// populated as the stages run and never change afterwards.
type mediaItem struct {
	path      string
	mediaType MediaType
	taken     time.Time
	date      CaptureDate
}

// NewOrganizer creates an Organizer for a single run. An exiftool process is
// started when the binary is available; everything works without it, with
// date extraction limited to the embedded EXIF parser.
func NewOrganizer(opts Options) *Organizer {
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = DefaultOptions().JPEGQuality
	}
	if opts.Structure != StructureYear && opts.Structure != StructureYearMonth {
		opts.Structure = DefaultOptions().Structure
	}

	var etOpts []func(*exiftool.Exiftool) error
	if opts.ExiftoolPath != "" {
		etOpts = append(etOpts, exiftool.SetExiftoolBinaryPath(opts.ExiftoolPath))
	}
	et, err := exiftool.NewExiftool(etOpts...)
	if err != nil {
		logger.Debug("exiftool unavailable, using embedded EXIF parsing only", "error", err)
		et = nil
	}

	return &Organizer{
		classifier: NewClassifier(),
		dates:      NewDateResolver(et),
		converter:  NewConverter(opts.JPEGQuality),
		index:      NewDuplicateIndex(),
		stamper:    newCaptureDateStamper(et, opts.ExiftoolPath),
		opts:       opts,
		et:         et,
	}
}

// Close releases the exiftool process if one was started.
func (o *Organizer) Close() {
	if o.et != nil {
		o.et.Close()
	}
}

// Run organises every file under sourceDir into destDir and returns the run
// report. Per-file failures route the file to the Errors bucket and never
// abort the run; only an unreadable source root or an uncreatable destination
// root is fatal. Cancelling ctx stops the run between files and the report
// stays consistent with what was placed. The report is also written to
// photo_organizer_log.txt in the destination root.
func (o *Organizer) Run(ctx context.Context, sourceDir, destDir string) (*RunReport, error) {
	sourceDir = filepath.Clean(sourceDir)
	destDir = filepath.Clean(destDir)

	if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source is not a valid directory: %s", sourceDir)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create destination directory %s: %w", destDir, err)
	}

	report := NewRunReport(sourceDir, destDir, o.opts.Structure)

	files, err := scanFiles(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan source directory: %w", err)
	}
	logger.Info("Starting organisation", "source", sourceDir, "destination", destDir, "files", len(files), "structure", o.opts.Structure)
	o.emit("scanning", 0, len(files), fmt.Sprintf("Found %d files to process", len(files)), "")

	for i, path := range files {
		if ctx.Err() != nil {
			logger.Info("Run cancelled", "processed", i, "total", len(files))
			report.Cancelled = true
			break
		}
		o.emit("organising", i+1, len(files), fmt.Sprintf("Processing file %d of %d", i+1, len(files)), path)
		report.Record(o.processFile(path, destDir))
	}

	report.Finalize()
	if err := overwriteFileTo([]byte(report.Render()), destDir, LogFileName); err != nil {
		logger.Error("Failed to write run log", "error", err)
	}
	logger.Info("Organisation complete",
		"photos", report.PhotosOrganized,
		"videos", report.VideosOrganized,
		"duplicates", report.SuspectDuplicates,
		"manual_check", report.ManualCheck,
		"errors", report.ErrorCount)
	return report, nil
}

// scanFiles lists every regular file under root in lexicographic path order,
// skipping dot files and dot directories. The stable order makes duplicate
// tie-breaks reproducible: the file visited first becomes the kept
// representative.
func scanFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// processFile runs one file through classify, date resolution, conversion,
// fingerprinting and placement, and returns the resulting decision. Every
// failure funnels into an Errors placement.
func (o *Organizer) processFile(path, destDir string) Decision {
	item := mediaItem{path: path, mediaType: o.classifier.Classify(path)}
	logger.Debug("Classified file", "file", filepath.Base(path), "type", item.mediaType)

	switch item.mediaType {
	case Unrecognized:
		return o.placeCopy(path, destDir, filepath.Join(destDir, manualCheckDirName), filepath.Base(path),
			Decision{Bucket: BucketManualCheck, Action: ActionCopy})
	case Video:
		item.taken = o.dates.resolveTime(path, item.mediaType)
		item.date = captureDateOf(item.taken)
		dir := filepath.Join(destDir, videosDirName, item.date.Dir(o.opts.Structure))
		dst, err := moveFileTo(path, dir, filepath.Base(path))
		if err != nil {
			return o.placeError(path, destDir, fmt.Errorf("failed to move video: %w", err))
		}
		return Decision{Source: path, Bucket: BucketVideo, DestPath: dst, Action: ActionMove}
	default:
		return o.processImage(item, destDir)
	}
}

// processImage handles both direct and convertible images: optional
// conversion, fingerprinting, duplicate lookup and final placement.
func (o *Organizer) processImage(item mediaItem, destDir string) Decision {
	item.taken = o.dates.resolveTime(item.path, item.mediaType)
	item.date = captureDateOf(item.taken)

	name := filepath.Base(item.path)
	var converted []byte
	var convertedFrom string
	if item.mediaType == ImageConvertible {
		data, err := o.converter.Convert(item.path)
		if err != nil {
			return o.placeError(item.path, destDir, err)
		}
		converted = data
		convertedFrom = sourceFormat(item.path)
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
	}

	img, err := o.decodeForFingerprint(item.path, converted)
	if err != nil {
		return o.placeError(item.path, destDir, fmt.Errorf("failed to decode for fingerprinting: %w", err))
	}
	fp, err := FingerprintImage(img)
	if err != nil {
		return o.placeError(item.path, destDir, fmt.Errorf("failed to fingerprint: %w", err))
	}

	if rep, ok := o.index.FindMatch(fp); ok {
		logger.Debug("Suspect duplicate found", "file", filepath.Base(item.path), "representative", rep)
		dupDir := filepath.Join(destDir, duplicatesDirName)
		d := Decision{Bucket: BucketDuplicate, Action: ActionCopy, Representative: rep, ConvertedFrom: convertedFrom}
		if converted != nil {
			return o.placeWrite(converted, item.path, destDir, dupDir, name, d)
		}
		return o.placeCopy(item.path, destDir, dupDir, name, d)
	}

	targetDir := filepath.Join(destDir, item.date.Dir(o.opts.Structure))
	d := Decision{Source: item.path, Bucket: BucketOrganized, ConvertedFrom: convertedFrom}
	var dst string
	if converted != nil {
		d.Action = ActionConvertAndMove
		dst, err = writeFileTo(converted, targetDir, name)
		if err == nil {
			o.stamper.Stamp(dst, item.taken)
			// The converted output is durably committed, so the source can go.
			if rmErr := os.Remove(item.path); rmErr != nil {
				logger.Warn("Converted file placed but source not removed", "source", item.path, "error", rmErr)
			}
		}
	} else {
		d.Action = ActionMove
		dst, err = moveFileTo(item.path, targetDir, name)
	}
	if err != nil {
		return o.placeError(item.path, destDir, fmt.Errorf("failed to place image: %w", err))
	}
	d.DestPath = dst
	o.index.Insert(fp, dst)
	return d
}

// decodeForFingerprint yields the pixel buffer the fingerprint is computed
// over: the converted JPEG when a conversion happened, the source otherwise.
func (o *Organizer) decodeForFingerprint(path string, converted []byte) (image.Image, error) {
	if converted != nil {
		return imaging.Decode(bytes.NewReader(converted))
	}
	return decodeImage(path)
}

// placeCopy copies src into bucketDir and fills in the decision. A copy
// failure downgrades the decision to an Errors placement.
func (o *Organizer) placeCopy(src, destDir, bucketDir, name string, d Decision) Decision {
	d.Source = src
	dst, err := copyFileTo(src, bucketDir, name)
	if err != nil {
		return o.placeError(src, destDir, fmt.Errorf("failed to copy to %s: %w", filepath.Base(bucketDir), err))
	}
	d.DestPath = dst
	return d
}

// placeWrite writes converted bytes into bucketDir and fills in the decision.
func (o *Organizer) placeWrite(data []byte, src, destDir, bucketDir, name string, d Decision) Decision {
	d.Source = src
	dst, err := writeFileTo(data, bucketDir, name)
	if err != nil {
		return o.placeError(src, destDir, fmt.Errorf("failed to write to %s: %w", filepath.Base(bucketDir), err))
	}
	d.DestPath = dst
	return d
}

// placeError copies the failing file into the Errors bucket and records the
// reason. The copy itself is best-effort: if even that fails the reason is
// extended and the decision still counts against the Errors bucket.
func (o *Organizer) placeError(src, destDir string, cause error) Decision {
	logger.Error("Failed to process file", "file", src, "error", cause)
	d := Decision{Source: src, Bucket: BucketError, Action: ActionCopy, Reason: cause.Error()}
	dst, err := copyFileTo(src, filepath.Join(destDir, errorsDirName), filepath.Base(src))
	if err != nil {
		logger.Error("Failed to copy file to Errors", "file", src, "error", err)
		d.Reason = fmt.Sprintf("%v (also failed to copy to %s: %v)", cause, errorsDirName, err)
		return d
	}
	d.DestPath = dst
	return d
}

// emit sends a progress event without blocking. A slow consumer loses events
// rather than stalling file processing.
func (o *Organizer) emit(stage string, current, total int, message, file string) {
	if o.opts.ProgressChan == nil {
		return
	}
	select {
	case o.opts.ProgressChan <- ProgressEvent{
		Stage:   stage,
		Current: current,
		Total:   total,
		Message: message,
		File:    file,
	}:
	default:
		logger.Debug("Progress event dropped (channel full)", "stage", stage)
	}
}

// sourceFormat normalises the source extension for conversion counting.
func sourceFormat(path string) string {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "tiff" {
		format = "tif"
	}
	return format
}
