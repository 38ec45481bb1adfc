package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/livestock/internal/config"
)

// Repository defines the read operations supported by the Google Sheets
// import source.
type Repository interface {
	ReadSheet(ctx context.Context, sheetName string) ([][]interface{}, error)
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// ReadSheet fetches the full data range of one named sheet. The sheet name
// alone addresses the whole used range in the Sheets API.
func (r *GoogleSheetRepository) ReadSheet(ctx context.Context, sheetName string) ([][]interface{}, error) {
	if sheetName == "" {
		return nil, fmt.Errorf("sheetName must not be empty")
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}

	r.logger.Debug("sheet range fetched", zap.String("sheet", sheetName), zap.Int("rows", len(resp.Values)))
	return resp.Values, nil
}
