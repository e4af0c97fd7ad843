package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chrisefrost/photo-organiser/internal/backup"
	"github.com/chrisefrost/photo-organiser/internal/logger"
	"github.com/chrisefrost/photo-organiser/internal/organizer"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "photo-organiser",
	Short:   "Organise photos and videos into date-based directories",
	Long:    `Photo-organiser sorts a tree of media files by capture date, converting RAW/TIFF/HEIC images to JPEG and isolating duplicates, errors and unrecognised files.`,
	Version: version,
}

var organizeCmd = &cobra.Command{
	Use:   "organize SOURCE_DIR DEST_DIR",
	Short: "Organise media files by capture date",
	Long: `Classifies every file under SOURCE_DIR, resolves its capture date, converts
RAW/TIFF/HEIC images to JPEG and places each file into DEST_DIR. Near-duplicate
images go to "Suspect Duplicates", failures to "Errors" and unrecognised files
to "Manually Check". A summary is written to photo_organizer_log.txt.`,
	Args: cobra.ExactArgs(2),
	Run:  runOrganize,
}

var backupCmd = &cobra.Command{
	Use:   "backup DEST_DIR BUCKET",
	Short: "Backup organised directories to S3",
	Long:  `Creates tar.gz archives of the organised date directories and uploads them to S3, skipping archives whose content already matches (MD5/ETag comparison).`,
	Args:  cobra.ExactArgs(2),
	Run:   runBackup,
}

var (
	structureFlag string
	jpegQuality   int
	exiftoolPath  string
	maxConcurrent int
)

func init() {
	organizeCmd.Flags().StringVarP(&structureFlag, "structure", "s", string(organizer.StructureYearMonth), `Destination layout: "year" or "year-month"`)
	organizeCmd.Flags().IntVarP(&jpegQuality, "quality", "q", organizer.DefaultOptions().JPEGQuality, "JPEG quality for converted images (1-100)")
	organizeCmd.Flags().StringVar(&exiftoolPath, "exiftool", "", "Path to the exiftool binary (default: search $PATH)")

	backupCmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "c", 5, "Maximum concurrent uploads")

	rootCmd.AddCommand(organizeCmd, backupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runOrganize(cmd *cobra.Command, args []string) {
	sourceDir := args[0]
	destDir := args[1]

	structure := organizer.Structure(structureFlag)
	if structure != organizer.StructureYear && structure != organizer.StructureYearMonth {
		logger.Error("Invalid structure", "structure", structureFlag, "expected", "year or year-month")
		os.Exit(1)
	}

	// Ctrl-C cancels between files; the partial run still writes its report.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := make(chan organizer.ProgressEvent, 64)
	done := make(chan struct{})
	go renderProgress(progress, done)

	opts := organizer.DefaultOptions()
	opts.Structure = structure
	opts.JPEGQuality = jpegQuality
	opts.ExiftoolPath = exiftoolPath
	opts.ProgressChan = progress

	org := organizer.NewOrganizer(opts)
	defer org.Close()

	report, err := org.Run(ctx, sourceDir, destDir)
	close(progress)
	<-done
	if err != nil {
		logger.Error("Run failed", "error", err)
		os.Exit(1)
	}

	os.Stdout.WriteString("\n" + report.Render())
}

// renderProgress drives a terminal progress bar from pipeline events.
func renderProgress(events <-chan organizer.ProgressEvent, done chan<- struct{}) {
	defer close(done)
	var bar *progressbar.ProgressBar
	for ev := range events {
		if bar == nil && ev.Total > 0 {
			bar = progressbar.NewOptions(ev.Total,
				progressbar.OptionSetDescription("Organising"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		if bar != nil && ev.Stage == "organising" {
			bar.Set(ev.Current)
			bar.Describe("Organising " + filepath.Base(ev.File))
		}
	}
	if bar != nil {
		bar.Finish()
	}
}

func runBackup(cmd *cobra.Command, args []string) {
	destDir := args[0]
	bucket := args[1]

	if info, err := os.Stat(destDir); err != nil {
		logger.Error("Destination directory does not exist", "directory", destDir, "error", err)
		os.Exit(1)
	} else if !info.IsDir() {
		logger.Error("Destination path is not a directory", "path", destDir)
		os.Exit(1)
	}

	ctx := context.Background()
	b, err := backup.New(ctx)
	if err != nil {
		logger.Error("Failed to initialise backup", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting backup", "destination", destDir, "bucket", bucket, "max_concurrent", maxConcurrent)
	if err := b.BackupDirectories(ctx, destDir, bucket, maxConcurrent); err != nil {
		logger.Error("Backup failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Backup completed successfully")
}
