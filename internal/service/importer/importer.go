// Package importer reconciles externally supplied tabular rows against the
// existing collections: one existence query per batch decides insert vs.
// skip, then a best-effort batch insert lands the new rows with per-row
// failure reporting.
package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/domain/models"
	"github.com/mamadbah2/livestock/internal/metrics"
)

// Store is the pair of primitives the pipeline needs from the datastore.
type Store interface {
	ExistingValues(ctx context.Context, collection, field string, values []string) (map[string]struct{}, error)
	InsertBatch(ctx context.Context, collection string, docs []any) (int, map[int]string, error)
}

// SheetSource reads one named sheet as a rectangular range, first row
// being the header.
type SheetSource interface {
	ReadSheet(ctx context.Context, sheetName string) ([][]any, error)
}

// Service runs the reconciliation pipeline.
type Service struct {
	store  Store
	sheets SheetSource
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires an import service. sheets may be nil when no
// spreadsheet source is configured.
func NewService(store Store, sheets SheetSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, sheets: sheets, logger: logger, now: time.Now}
}

// Reconcile ingests rows into the named target collection. Rows whose
// unique-key value already exists are skipped; the rest go into a single
// unordered batch insert. Row errors are accumulated into the result, so
// the caller always receives a complete summary. A non-nil error is only
// returned when the store failed outright (e.g. the existence query).
func (s *Service) Reconcile(ctx context.Context, category string, rows []models.ImportRow) (*models.ImportResult, error) {
	result := &models.ImportResult{
		BatchID:  uuid.NewString(),
		Category: strings.ToLower(strings.TrimSpace(category)),
		Errors:   []models.ImportRowError{},
	}

	target, ok := ResolveTarget(category)
	if !ok {
		result.Errors = append(result.Errors, models.ImportRowError{
			Reason: fmt.Sprintf("unknown import category %q", category),
		})
		return result, nil
	}

	normalized := normalizeRows(rows)

	// One existence query for the whole batch, never one per row.
	existing, err := s.store.ExistingValues(ctx, target.Collection, target.UniqueKey, uniqueValues(normalized, target.UniqueKey))
	if err != nil {
		return nil, fmt.Errorf("existence check for %s: %w", target.Collection, err)
	}

	now := s.now().UTC()

	var docs []any
	var docRows []int // original 1-based row number per doc
	for i, row := range normalized {
		rowNum := i + 1
		key := row[target.UniqueKey]

		// Rows without a unique-key value bypass dedup entirely.
		if key != "" {
			if _, dup := existing[key]; dup {
				result.Skipped++
				continue
			}
		}

		doc, err := target.Shape(row, now)
		if err != nil {
			result.Errors = append(result.Errors, models.ImportRowError{
				Row:    rowNum,
				Value:  key,
				Reason: err.Error(),
			})
			continue
		}

		docs = append(docs, doc)
		docRows = append(docRows, rowNum)
	}

	inserted, rowErrs, err := s.store.InsertBatch(ctx, target.Collection, docs)
	if err != nil {
		// Whole batch rejected before any row-level reporting: zero imports,
		// one batch-level error entry.
		result.Errors = append(result.Errors, models.ImportRowError{
			Reason: fmt.Sprintf("batch insert failed: %v", err),
		})
		s.count(result)
		return result, nil
	}

	result.Imported = inserted
	for idx, msg := range rowErrs {
		rowNum := 0
		value := ""
		if idx >= 0 && idx < len(docRows) {
			rowNum = docRows[idx]
			value = normalized[rowNum-1][target.UniqueKey]
		}
		result.Errors = append(result.Errors, models.ImportRowError{
			Row:    rowNum,
			Value:  value,
			Reason: msg,
		})
	}

	s.count(result)
	s.logger.Info("import batch reconciled",
		zap.String("batch_id", result.BatchID),
		zap.String("category", result.Category),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}

// ReconcileSpreadsheet pulls every registered sheet from the configured
// spreadsheet and reconciles each. A sheet that cannot be read contributes
// an error entry for its name; the remaining sheets still run.
func (s *Service) ReconcileSpreadsheet(ctx context.Context) (*models.SpreadsheetImportResult, error) {
	if s.sheets == nil {
		return nil, ErrSheetsDisabled
	}

	out := &models.SpreadsheetImportResult{
		Sheets: make(map[string]*models.ImportResult),
		Errors: []models.ImportRowError{},
	}

	for _, name := range TargetNames() {
		values, err := s.sheets.ReadSheet(ctx, name)
		if err != nil {
			out.Errors = append(out.Errors, models.ImportRowError{
				Value:  name,
				Reason: fmt.Sprintf("read sheet: %v", err),
			})
			continue
		}

		rows := RowsFromSheet(values)
		if len(rows) == 0 {
			continue
		}

		result, err := s.Reconcile(ctx, name, rows)
		if err != nil {
			out.Errors = append(out.Errors, models.ImportRowError{
				Value:  name,
				Reason: err.Error(),
			})
			continue
		}

		out.Sheets[name] = result
		out.Imported += result.Imported
		out.Skipped += result.Skipped
		out.Errors = append(out.Errors, result.Errors...)
	}

	return out, nil
}

func (s *Service) count(result *models.ImportResult) {
	metrics.ImportRows.WithLabelValues("imported").Add(float64(result.Imported))
	metrics.ImportRows.WithLabelValues("skipped").Add(float64(result.Skipped))
	metrics.ImportRows.WithLabelValues("failed").Add(float64(len(result.Errors)))
}

// normalizeRows trims every key and every string value. Matching and
// shaping only ever see trimmed data.
func normalizeRows(rows []models.ImportRow) []models.ImportRow {
	normalized := make([]models.ImportRow, 0, len(rows))
	for _, row := range rows {
		clean := make(models.ImportRow, len(row))
		for k, v := range row {
			clean[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		normalized = append(normalized, clean)
	}
	return normalized
}

// uniqueValues collects the distinct non-empty unique-key values across
// the batch. Cross-row duplicates within one batch are deliberately not
// collapsed here: the collection's own unique index is the arbiter.
func uniqueValues(rows []models.ImportRow, key string) []string {
	seen := make(map[string]struct{}, len(rows))
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		v := row[key]
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}
