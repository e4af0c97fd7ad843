package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/chrisefrost/photo-organiser/internal/logger"
	"github.com/chrisefrost/photo-organiser/internal/organizer"
)

// triageDirs are the destination buckets held back from backup: they exist
// for human review, not archival.
var triageDirs = []string{"Suspect Duplicates", "Errors", "Manually Check"}

// s3API is the subset of the S3 client the backup needs; tests substitute it.
type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Backup archives organised directories and uploads them to S3.
type S3Backup struct {
	client s3API
}

// New creates an S3Backup using the default AWS credential chain.
func New(ctx context.Context) (*S3Backup, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Backup{client: s3.NewFromConfig(cfg)}, nil
}

// BackupDirectories archives each organised top-level directory under destDir
// (the year directories and the Videos tree) as tar.gz and uploads it to the
// bucket. Uploads run on a bounded worker pool. An archive whose MD5 matches
// the S3 ETag of an existing object is skipped, so re-running a backup only
// transfers directories that changed.
func (b *S3Backup) BackupDirectories(ctx context.Context, destDir, bucket string, maxConcurrent int) error {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return fmt.Errorf("failed to read destination directory: %w", err)
	}

	var directories []string
	for _, entry := range entries {
		if entry.IsDir() && !slices.Contains(triageDirs, entry.Name()) {
			directories = append(directories, entry.Name())
		}
	}

	if len(directories) == 0 {
		logger.Info("No directories found to backup")
		return nil
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	logger.Info("Starting S3 backup", "directories", len(directories), "bucket", bucket, "concurrency", maxConcurrent)

	jobs := make(chan string, len(directories))
	results := make(chan error, len(directories))
	var wg sync.WaitGroup

	for i := range maxConcurrent {
		wg.Add(1)
		go b.backupWorker(ctx, i, destDir, bucket, jobs, results, &wg)
	}

	for _, dirName := range directories {
		jobs <- dirName
	}
	close(jobs)

	wg.Wait()
	close(results)

	var failures []error
	successCount := 0
	for err := range results {
		if err != nil {
			failures = append(failures, err)
		} else {
			successCount++
		}
	}

	if len(failures) > 0 {
		logger.Error("Backup completed with errors", "successful", successCount, "failed", len(failures))
		return fmt.Errorf("backup failed for %d directories: %w", len(failures), failures[0])
	}

	logger.Info("Backup completed successfully", "directories_backed_up", successCount)
	return nil
}

// backupWorker processes backup jobs from the jobs channel
func (b *S3Backup) backupWorker(ctx context.Context, workerID int, destDir, bucket string, jobs <-chan string, results chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()
	for dirName := range jobs {
		logger.Debug("Worker processing directory", "worker", workerID, "directory", dirName)
		if err := b.backupDirectory(ctx, destDir, dirName, bucket); err != nil {
			logger.Error("Failed to backup directory", "directory", dirName, "error", err)
			results <- fmt.Errorf("directory %s: %w", dirName, err)
		} else {
			results <- nil
		}
	}
}

// backupDirectory archives and uploads a single top-level directory.
func (b *S3Backup) backupDirectory(ctx context.Context, destDir, dirName, bucket string) error {
	dirPath := filepath.Join(destDir, dirName)

	mediaCount, err := countMediaFiles(dirPath)
	if err != nil {
		return fmt.Errorf("failed to count media files: %w", err)
	}

	s3Key := fmt.Sprintf("%s (%d files).tar.gz", dirName, mediaCount)

	tmpDir, err := os.MkdirTemp("", "photo-organiser-backup-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Error("Failed to remove temporary directory", "path", tmpDir, "error", err)
		}
	}()

	archivePath := filepath.Join(tmpDir, "archive.tar.gz")
	logger.Info("Creating archive", "directory", dirName, "files", mediaCount)
	if err := createTarGz(dirPath, archivePath); err != nil {
		return fmt.Errorf("failed to create tar.gz: %w", err)
	}

	localHash, err := calculateMD5(archivePath)
	if err != nil {
		return fmt.Errorf("failed to calculate MD5: %w", err)
	}

	headOutput, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(s3Key),
	})
	if err == nil {
		if extractETag(headOutput.ETag) == localHash {
			logger.Info("Object already exists in S3 with matching hash, skipping", "directory", dirName, "key", s3Key)
			return nil
		}
		return fmt.Errorf("hash mismatch for %q: S3 object exists with different content, manual intervention required", s3Key)
	} else if !isNotFoundError(err) {
		return fmt.Errorf("failed to check S3 object existence: %w", err)
	}

	logger.Info("Uploading to S3", "directory", dirName, "bucket", bucket, "key", s3Key, "hash", localHash)
	if err := b.uploadToS3(ctx, archivePath, bucket, s3Key); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	logger.Info("Successfully backed up directory", "directory", dirName, "key", s3Key)
	return nil
}

// countMediaFiles counts the media files in a directory tree, excluding the
// run log and anything the classifier does not recognise as media.
func countMediaFiles(dirPath string) (int, error) {
	classifier := organizer.NewClassifier()
	count := 0
	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == organizer.LogFileName {
			return nil
		}
		if classifier.Classify(path) != organizer.Unrecognized {
			count++
		}
		return nil
	})
	return count, err
}

// calculateMD5 calculates the MD5 hash of a file
func calculateMD5(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// extractETag strips the surrounding quotes S3 puts on ETag values.
func extractETag(etag *string) string {
	if etag == nil {
		return ""
	}
	return strings.Trim(*etag, `"`)
}

// isNotFoundError checks if the error is an S3 NotFound error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return true
	}

	// HeadObject surfaces some 404s as generic response errors.
	msg := err.Error()
	return strings.Contains(msg, "NotFound") || strings.Contains(msg, "StatusCode: 404")
}

// createTarGz creates a tar.gz archive of a directory
func createTarGz(sourceDir, targetFile string) error {
	file, err := os.Create(targetFile)
	if err != nil {
		return err
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	return filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		header.Name = relPath

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tarWriter, f)
		return err
	})
}

// uploadToS3 uploads a file to S3
func (b *S3Backup) uploadToS3(ctx context.Context, filePath, bucket, key string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   file,
	})
	return err
}
