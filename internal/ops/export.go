package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/amigazen/insight/internal/errors"
)

// ExportSchemaVersion is written into every export header.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path      string // optional, default: ~/.insight/exports/alerts-<timestamp>.jsonl
	FatalOnly bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export file.
type ExportHeader struct {
	InsightExport     bool   `json:"_insight_export"`
	SchemaVersion     string `json:"schema_version"`
	TokenTableVersion int    `json:"token_table_version"`
	ExportedAt        int64  `json:"exported_at"`
}

// ExportRecord is one knowledge base row with its hint expanded.
type ExportRecord struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Hint        string `json:"hint"`
	RawHint     string `json:"raw_hint,omitempty"` // only when it differs from Hint
	Fatal       bool   `json:"fatal"`
	Subsystem   string `json:"subsystem"`
	Group       string `json:"group,omitempty"`
}

// Export writes the knowledge base to a JSONL file, one row per line after
// a header, in table order.
func Export(ctx context.Context, env *Env, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	exportedAt := now.Unix()

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(now)
		if err != nil {
			return nil, err
		}
	}

	if err := ValidatePath(exportPath, env.config()); err != nil {
		return nil, err
	}

	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	// Write to temp file first, then atomic rename to preserve existing file on failure
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetEscapeHTML(false)

	header := ExportHeader{
		InsightExport:     true,
		SchemaVersion:     ExportSchemaVersion,
		TokenTableVersion: env.KB.Tokens().Version(),
		ExportedAt:        exportedAt,
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewInternal(err)
	}

	count := 0
	for _, e := range env.KB.Entries() {
		select {
		case <-ctx.Done():
			return nil, errors.NewCancelled("export")
		default:
		}

		if input.FatalOnly && !e.Code.IsFatal() {
			continue
		}

		record := ExportRecord{
			Code:        e.Code.String(),
			Description: e.Description,
			Hint:        env.KB.Expand(e.Hint),
			Fatal:       e.Code.IsFatal(),
			Subsystem:   e.Code.Subsystem().Name(),
			Group:       e.Group,
		}
		if record.Hint != e.Hint {
			record.RawHint = e.Hint
		}
		if err := enc.Encode(record); err != nil {
			return nil, errors.NewInternal(err)
		}
		count++
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}

	// Close before atomic replace (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlinked destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path must not be a symlink")
	}

	// On Windows os.Rename fails if the destination exists; fail rather than
	// delete-then-rename and risk losing the original.
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; overwriting is not supported on Windows (choose a new path or delete the existing file)")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	env.logger().Info("exported knowledge base", zap.String("path", exportPath), zap.Int("count", count))
	return &ExportOutput{
		Path:       exportPath,
		Count:      count,
		ExportedAt: exportedAt,
	}, nil
}

// defaultExportPath returns ~/.insight/exports/alerts-<timestamp>.jsonl.
func defaultExportPath(now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("alerts-%s.jsonl", now.Format("2006-01-02T150405"))), nil
}
