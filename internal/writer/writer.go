// Package writer handles writing the updated deck to disk.
package writer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Writer stores a deck at a fixed path. In dry-run mode it only measures and
// logs what would have been written.
type Writer struct {
	path   string
	dryRun bool
	logger *slog.Logger
}

// New creates a new Writer instance.
func New(path string, dryRun bool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		path:   path,
		dryRun: dryRun,
		logger: logger,
	}
}

// Path returns the destination file.
func (w *Writer) Path() string {
	return w.path
}

// Persist writes src to the destination. The file is written to a temporary
// sibling first and renamed into place, so a failed write never leaves a
// truncated deck behind.
func (w *Writer) Persist(src io.WriterTo) error {
	if w.dryRun {
		n, err := src.WriteTo(io.Discard)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", w.path, err)
		}
		w.logger.Info("would write", "path", w.path, "size", n)
		return nil
	}

	// Ensure directory exists
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	n, err := src.WriteTo(tmp)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing file %s: %w", w.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing file %s: %w", w.path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("writing file %s: %w", w.path, err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return fmt.Errorf("replacing %s: %w", w.path, err)
	}

	w.logger.Info("wrote deck", "path", w.path, "size", n)
	return nil
}
