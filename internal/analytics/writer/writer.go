package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/angelmondragon/bidmart-backend/internal/analytics/types"
	pkgbigquery "github.com/angelmondragon/bidmart-backend/pkg/bigquery"
)

// Config names the destination table and the retry budget per row.
type Config struct {
	MarketplaceTable string
	MaxAttempts      int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 250 * time.Millisecond
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = max(2*time.Second, c.InitialBackoff)
	}
	return c
}

// Inserter streams rows into a BigQuery table.
type Inserter interface {
	Insert(ctx context.Context, table string, rows []pkgbigquery.Row) error
}

// BigQueryWriter writes one marketplace row per consumed message so the
// message is only acked once its row landed. Rows carry the event id as
// their insert id.
type BigQueryWriter struct {
	inserter  Inserter
	table     string
	cfg       Config
	retryable func(error) bool
	sleep     func(context.Context, time.Duration) error
}

func New(inserter Inserter, cfg Config) (*BigQueryWriter, error) {
	if inserter == nil {
		return nil, errors.New("analytics writer: inserter required")
	}
	table := strings.TrimSpace(cfg.MarketplaceTable)
	if table == "" {
		return nil, errors.New("analytics writer: marketplace table required")
	}
	return &BigQueryWriter{
		inserter:  inserter,
		table:     table,
		cfg:       cfg.withDefaults(),
		retryable: pkgbigquery.IsRetryable,
		sleep:     sleepCtx,
	}, nil
}

// InsertMarketplace writes row, retrying transient BigQuery failures with
// exponential backoff.
func (w *BigQueryWriter) InsertMarketplace(ctx context.Context, row types.MarketplaceEventRow) error {
	rows := []pkgbigquery.Row{{InsertID: row.EventID, Value: &row}}
	backoff := w.cfg.InitialBackoff

	for attempt := 1; ; attempt++ {
		err := w.inserter.Insert(ctx, w.table, rows)
		if err == nil {
			return nil
		}
		if attempt >= w.cfg.MaxAttempts || !w.retryable(err) {
			return fmt.Errorf("insert into %s after %d attempt(s): %w", w.table, attempt, err)
		}
		if err := w.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = min(backoff*2, w.cfg.MaxBackoff)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EncodeJSON converts a payload into a BigQuery JSON column value. Empty raw
// payloads become NULL.
func EncodeJSON(payload any) (cbigquery.NullJSON, error) {
	var raw []byte
	switch value := payload.(type) {
	case nil:
		return cbigquery.NullJSON{}, nil
	case cbigquery.NullJSON:
		return value, nil
	case json.RawMessage:
		raw = value
	case []byte:
		raw = value
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return cbigquery.NullJSON{}, fmt.Errorf("marshal json: %w", err)
		}
		raw = encoded
	}
	if len(raw) == 0 {
		return cbigquery.NullJSON{}, nil
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}, nil
}
