package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/bidmart-backend/pkg/config"
	"github.com/angelmondragon/bidmart-backend/pkg/logger"
)

const verifyTimeout = 10 * time.Second

var errNotConnected = errors.New("bigquery: client not connected")

// Row is one streamed row. InsertID lets BigQuery drop a redelivered row
// within its best-effort dedupe window.
type Row struct {
	InsertID string
	Value    any
}

// Client streams analytics rows into a single dataset. The dataset and every
// configured table must exist; schemas are managed outside the service.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	tables  []string
}

// NewClient connects to BigQuery and verifies the dataset and tables.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	dataset := strings.TrimSpace(cfg.Dataset)
	tables := configuredTables(cfg)
	switch {
	case project == "":
		return nil, errors.New("bigquery: gcp project id is required")
	case dataset == "":
		return nil, errors.New("bigquery: dataset is required")
	case len(tables) == 0:
		return nil, errors.New("bigquery: at least one table is required")
	}

	bq, err := bigquery.NewClient(ctx, project, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("bigquery: connect: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(dataset), tables: tables}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": dataset, "tables": tables}), "bigquery ready")
	}
	return c, nil
}

func configuredTables(cfg config.BigQueryConfig) []string {
	var tables []string
	if name := strings.TrimSpace(cfg.MarketplaceEventsTable); name != "" {
		tables = append(tables, name)
	}
	return tables
}

// Ping checks that the dataset and every configured table are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describeMetadataErr("dataset", c.dataset.DatasetID, err)
	}
	for _, name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return describeMetadataErr("table", name, err)
		}
	}
	return nil
}

// Insert streams rows into table. Each Value must be a struct or a pointer
// to one; its schema is inferred from the bigquery tags.
func (c *Client) Insert(ctx context.Context, table string, rows []Row) error {
	if c == nil || c.dataset == nil {
		return errNotConnected
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errors.New("bigquery: table name is required")
	}
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, len(rows))
	for i, row := range rows {
		savers[i] = &bigquery.StructSaver{Struct: row.Value, InsertID: row.InsertID}
	}
	return c.dataset.Table(table).Inserter().Put(ctx, savers)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func describeMetadataErr(kind, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("bigquery: %s %q does not exist", kind, name)
	}
	return fmt.Errorf("bigquery: %s %q: %w", kind, name, err)
}

// IsRetryable reports whether an insert failure is transient. Row level
// PutMultiError failures are schema problems and never retried.
func IsRetryable(err error) bool {
	var rowErrs bigquery.PutMultiError
	var apiErr *googleapi.Error
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.As(err, &rowErrs):
		return false
	case errors.As(err, &apiErr):
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return true
	}
	return false
}
