package service

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast"
	"github.com/andresuchdata/stockcast/backend-go/internal/ingest"
	"github.com/andresuchdata/stockcast/backend-go/internal/metrics"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
	"github.com/andresuchdata/stockcast/backend-go/internal/storage"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// UploadRequest is one sales file submitted by a user.
type UploadRequest struct {
	UserID    int64
	Filename  string
	Data      []byte
	Separator string
	Encoding  string
	Schema    string
}

// IngestService turns uploaded files into stored sales and fresh forecasts.
type IngestService struct {
	sales   repository.SalesRepository
	engine  *forecast.Engine
	cache   cache.AnalyticsCache
	archive *storage.Archiver
	metrics *metrics.Metrics
	cfg     config.IngestConfig
}

func NewIngestService(
	sales repository.SalesRepository,
	engine *forecast.Engine,
	cacheImpl cache.AnalyticsCache,
	archive *storage.Archiver,
	m *metrics.Metrics,
	cfg config.IngestConfig,
) *IngestService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopAnalyticsCache()
	}
	if archive == nil {
		archive = storage.NewArchiver(nil, "")
	}
	if cfg.MinHistoryDays <= 0 {
		cfg.MinHistoryDays = 30
	}
	if cfg.DatePolicy == "" {
		cfg.DatePolicy = ingest.DatePolicyDrop
	}
	return &IngestService{
		sales:   sales,
		engine:  engine,
		cache:   cacheImpl,
		archive: archive,
		metrics: m,
		cfg:     cfg,
	}
}

// Ingest parses, validates and stores one upload, then forecasts every product
// it touched. Validation and persistence are all-or-nothing; forecasting is
// per product and never fails the upload.
func (s *IngestService) Ingest(ctx context.Context, req UploadRequest) (*domain.IngestSummary, error) {
	start := time.Now()
	log := logger.Log.With().Int64("user_id", req.UserID).Str("file", req.Filename).Logger()

	batch, err := s.parse(req)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	var result *domain.BatchResult
	err = s.sales.WithBatch(ctx, req.UserID, func(b repository.SalesBatch) error {
		if err := ingest.ValidateHistory(ctx, b, req.UserID, batch.Rows, s.cfg.MinHistoryDays); err != nil {
			return err
		}
		var err error
		result, err = repository.SaveRows(ctx, b, req.UserID, batch.Rows, s.defaults(batch.Schema))
		return err
	})
	if err != nil {
		s.recordFailure(err)
		log.Warn().Err(err).Msg("upload rejected")
		return nil, err
	}

	s.metrics.IncBatch(metrics.BatchAccepted)
	s.metrics.AddRows("loaded", result.RowsLoaded)
	s.metrics.AddRows("updated", result.RowsUpdated)
	s.metrics.AddRows("skipped", batch.Skipped)

	report := s.engine.Run(ctx, result.ProductIDs)

	if err := s.cache.InvalidateUser(ctx, req.UserID); err != nil {
		log.Warn().Err(err).Msg("ingest: cache invalidation failed")
	}
	if _, err := s.archive.Archive(ctx, req.UserID, req.Filename, req.Data); err != nil {
		log.Warn().Err(err).Msg("ingest: archiving upload failed")
	}

	summary := &domain.IngestSummary{
		Status:          "success",
		Schema:          batch.Schema,
		RowsLoaded:      result.RowsLoaded,
		RowsUpdated:     result.RowsUpdated,
		RowsSkipped:     batch.Skipped,
		ProductsCount:   len(result.ProductIDs),
		ProductsCreated: result.ProductsCreated,
		ProductsUpdated: result.ProductsUpdated,
		DateRange:       result.DateRange,
		Forecast:        report,
	}

	log.Info().
		Str("schema", string(batch.Schema)).
		Int("rows", len(batch.Rows)).
		Int("rows_skipped", batch.Skipped).
		Int("products", summary.ProductsCount).
		Int("forecasted", len(report.Forecasted)).
		Dur("took", time.Since(start)).
		Msg("upload ingested")

	return summary, nil
}

// IngestFile ingests with every option auto-detected.
func (s *IngestService) IngestFile(ctx context.Context, userID int64, filename string, data []byte) (*domain.IngestSummary, error) {
	return s.Ingest(ctx, UploadRequest{UserID: userID, Filename: filename, Data: data})
}

func (s *IngestService) parse(req UploadRequest) (*ingest.Batch, error) {
	if len(req.Data) == 0 {
		return nil, domain.ErrNoRows
	}

	table, err := ingest.ReadTable(req.Filename, req.Data, ingest.ReadOptions{
		Separator: ingest.ParseSeparator(req.Separator),
		Encoding:  req.Encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadable, err)
	}

	batch, err := ingest.Normalize(table, ingest.Options{
		Schema:     domain.ParseSchema(req.Schema),
		DatePolicy: s.cfg.DatePolicy,
	})
	if err != nil {
		return nil, err
	}

	if len(batch.Columns.Ignored) > 0 {
		logger.Log.Warn().Strs("ignored_columns", batch.Columns.Ignored).Msg("duplicate column matches ignored")
	}
	return batch, nil
}

// defaults returns how each schema creates and refreshes products.
func (s *IngestService) defaults(schema domain.Schema) repository.ProductDefaults {
	if schema == domain.SchemaFixed {
		return repository.ProductDefaults{
			Stock:      s.cfg.DefaultStockFixed,
			UnitPrice:  s.cfg.DefaultUnitPrice,
			NameFormat: s.cfg.DefaultProductName,
		}
	}
	return repository.ProductDefaults{
		Stock:           s.cfg.DefaultStock,
		UnitPrice:       s.cfg.DefaultUnitPrice,
		NameFormat:      s.cfg.DefaultProductName,
		RefreshExisting: true,
		UpdateSalePrice: true,
	}
}

func (s *IngestService) recordFailure(err error) {
	if domain.IsValidation(err) {
		s.metrics.IncBatch(metrics.BatchRejected)
		return
	}
	s.metrics.IncBatch(metrics.BatchFailed)
}
