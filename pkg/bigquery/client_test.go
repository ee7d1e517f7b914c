package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/bidmart-backend/pkg/config"
)

func TestConfiguredTablesTrims(t *testing.T) {
	require.Equal(t, []string{"marketplace_events"}, configuredTables(config.BigQueryConfig{MarketplaceEventsTable: " marketplace_events "}))
	require.Empty(t, configuredTables(config.BigQueryConfig{}))
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "bidmart", MarketplaceEventsTable: "t"}, nil)
	require.ErrorContains(t, err, "project")

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{MarketplaceEventsTable: "t"}, nil)
	require.ErrorContains(t, err, "dataset")

	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "bidmart"}, nil)
	require.ErrorContains(t, err, "table")
}

func TestUnconnectedClient(t *testing.T) {
	var c *Client
	require.ErrorIs(t, c.Ping(context.Background()), errNotConnected)
	require.ErrorIs(t, c.Insert(context.Background(), "t", []Row{{InsertID: "1"}}), errNotConnected)
	require.NoError(t, c.Close())
}

func TestDescribeMetadataErr(t *testing.T) {
	require.EqualError(t,
		describeMetadataErr("table", "marketplace_events", &googleapi.Error{Code: http.StatusNotFound}),
		`bigquery: table "marketplace_events" does not exist`)

	cause := errors.New("permission denied")
	require.ErrorIs(t, describeMetadataErr("dataset", "bidmart", cause), cause)
}

func TestIsRetryable(t *testing.T) {
	require.False(t, IsRetryable(nil))
	require.True(t, IsRetryable(context.DeadlineExceeded))
	require.True(t, IsRetryable(fmt.Errorf("insert: %w", &googleapi.Error{Code: http.StatusServiceUnavailable})))
	require.True(t, IsRetryable(&googleapi.Error{Code: http.StatusTooManyRequests}))
	require.False(t, IsRetryable(&googleapi.Error{Code: http.StatusBadRequest}))
	require.True(t, IsRetryable(status.Error(codes.Unavailable, "down")))
	require.False(t, IsRetryable(status.Error(codes.InvalidArgument, "bad")))
	require.False(t, IsRetryable(bigquery.PutMultiError{}))
	require.False(t, IsRetryable(errors.New("boom")))
}
