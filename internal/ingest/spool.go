package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wesm/foldercache/internal/fileutil"
	"github.com/wesm/foldercache/internal/reconcile"
)

// Spool subdirectories, created inside the inbox.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// Handler applies one reconciliation request.
type Handler interface {
	HandleUpdates(ctx context.Context, req reconcile.Request, opts reconcile.Options) (*reconcile.Result, error)
}

// SpoolOptions configures a spool run.
type SpoolOptions struct {
	// InboxDir is scanned for *.json envelopes.
	InboxDir string

	// MaxFileBytes limits a single envelope. Defaults to
	// DefaultMaxEnvelopeBytes.
	MaxFileBytes int64

	// Logger is optional; defaults to slog.Default().
	Logger *slog.Logger
}

// SpoolSummary reports the results of a spool run.
type SpoolSummary struct {
	Duration     time.Duration
	FilesSeen    int
	FilesApplied int
	FilesFailed  int
}

// ProcessSpool applies every *.json envelope in the inbox in file-name order.
// Applied files move to processed/; files that fail to decode or reconcile
// move to failed/ next to a .error file holding the reason. A failing file
// does not stop the run. Cancelling ctx stops before the next file.
func ProcessSpool(ctx context.Context, h Handler, opts SpoolOptions) (*SpoolSummary, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.InboxDir == "" {
		return nil, fmt.Errorf("inbox directory is required")
	}

	processed := filepath.Join(opts.InboxDir, ProcessedDir)
	failed := filepath.Join(opts.InboxDir, FailedDir)
	for _, dir := range []string{opts.InboxDir, processed, failed} {
		if err := fileutil.PrivateMkdirAll(dir); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	// os.ReadDir returns entries sorted by file name.
	entries, err := os.ReadDir(opts.InboxDir)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	start := time.Now()
	summary := &SpoolSummary{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		summary.FilesSeen++
		name := entry.Name()
		path := filepath.Join(opts.InboxDir, name)

		applyErr := applyFile(ctx, h, path, opts.MaxFileBytes)
		if applyErr != nil {
			summary.FilesFailed++
			log.Warn("spool file failed", "file", name, "error", applyErr)
			if err := moveFailed(path, failed, applyErr); err != nil {
				summary.Duration = time.Since(start)
				return summary, err
			}
			continue
		}

		summary.FilesApplied++
		log.Debug("spool file applied", "file", name)
		if _, err := fileutil.MoveInto(path, processed); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	if summary.FilesSeen > 0 {
		log.Info("spool processed",
			"files", summary.FilesSeen,
			"applied", summary.FilesApplied,
			"failed", summary.FilesFailed,
			"duration", summary.Duration)
	}
	return summary, nil
}

func applyFile(ctx context.Context, h Handler, path string, maxBytes int64) error {
	env, err := DecodeFile(path, maxBytes)
	if err != nil {
		return err
	}
	if env.Empty() {
		return nil
	}
	_, err = h.HandleUpdates(ctx, env.Request, env.Options)
	return err
}

func moveFailed(path, failedDir string, reason error) error {
	if _, err := fileutil.MoveInto(path, failedDir); err != nil {
		return err
	}
	errPath := filepath.Join(failedDir, strings.TrimSuffix(filepath.Base(path), ".json")+".error")
	if err := fileutil.PrivateWriteFile(errPath, []byte(reason.Error()+"\n")); err != nil {
		return fmt.Errorf("write %s: %w", errPath, err)
	}
	return nil
}
