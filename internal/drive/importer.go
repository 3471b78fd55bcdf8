package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// Source is the part of Service the importer needs.
type Source interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// Ingester stores one sales file for a user.
type Ingester interface {
	IngestFile(ctx context.Context, userID int64, filename string, data []byte) (*domain.IngestSummary, error)
}

// FileResult is the outcome of importing one drive file.
type FileResult struct {
	FileID  string                `json:"file_id"`
	Name    string                `json:"name"`
	Summary *domain.IngestSummary `json:"summary,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// ImportReport lists every CSV or XLSX file found in the folder.
type ImportReport struct {
	FolderID string       `json:"folder_id"`
	Files    []FileResult `json:"files"`
	Imported int          `json:"imported"`
	Failed   int          `json:"failed"`
}

// Importer feeds the CSV and XLSX files of a drive folder through ingestion.
type Importer struct {
	source        Source
	ingester      Ingester
	defaultFolder string
}

func NewImporter(source Source, ingester Ingester, defaultFolder string) *Importer {
	return &Importer{source: source, ingester: ingester, defaultFolder: defaultFolder}
}

// Import ingests each supported file as its own batch. A file that fails is
// reported and does not stop the rest.
func (i *Importer) Import(ctx context.Context, userID int64, folderID string) (*ImportReport, error) {
	if folderID == "" {
		folderID = i.defaultFolder
	}

	files, err := i.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{FolderID: folderID, Files: []FileResult{}}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !Supported(f.Name) {
			continue
		}

		result := FileResult{FileID: f.ID, Name: f.Name}
		summary, err := i.importFile(ctx, userID, f)
		if err != nil {
			result.Error = err.Error()
			report.Failed++
			logger.Log.Warn().Err(err).Str("file", f.Name).Int64("user_id", userID).Msg("drive import: file failed")
		} else {
			result.Summary = summary
			report.Imported++
		}
		report.Files = append(report.Files, result)
	}

	logger.Log.Info().
		Str("folder_id", folderID).
		Int("imported", report.Imported).
		Int("failed", report.Failed).
		Msg("drive import finished")

	return report, nil
}

func (i *Importer) importFile(ctx context.Context, userID int64, f *File) (*domain.IngestSummary, error) {
	var buf bytes.Buffer
	if err := i.source.DownloadFile(ctx, f.ID, &buf); err != nil {
		return nil, err
	}
	summary, err := i.ingester.IngestFile(ctx, userID, f.Name, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", f.Name, err)
	}
	return summary, nil
}

// Supported reports whether a file name has an ingestible extension.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}
