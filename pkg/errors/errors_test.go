package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusBadRequest, publicMsg: "conflict detected"},
		{code: CodeScopedConflict, status: http.StatusUnauthorized, publicMsg: "request conflicts with existing resource"},
		{code: CodeStateConflict, status: http.StatusForbidden, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeGatewayError, status: http.StatusBadGateway, publicMsg: "payment provider rejected the request", detailsOK: true},
		{code: CodeGatewayUnavailable, status: http.StatusServiceUnavailable, publicMsg: "payment provider unavailable", retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeGatewayUnavailable, "timeout")
	outer := fmt.Errorf("checkout: %w", inner)
	if !IsCode(outer, CodeGatewayUnavailable) {
		t.Fatalf("expected wrapped gateway code to be detected")
	}
	if IsCode(outer, CodeGatewayError) {
		t.Fatalf("unexpected match for gateway error")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestPostgresDetailFromPgx(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{
		Code:           PGUniqueViolation,
		ConstraintName: "offers_ad_vendor_key",
		TableName:      "offers",
	})

	pg, ok := Postgres(err)
	require.True(t, ok)
	require.Equal(t, "23505", pg.Code)
	require.Equal(t, "offers", pg.Table)
}

func TestPostgresDetailFromPQ(t *testing.T) {
	pg, ok := Postgres(&pq.Error{Code: "23503", Constraint: "orders_offer_fk"})
	require.True(t, ok)
	require.Equal(t, PGForeignKeyViolation, pg.Code)
	require.Equal(t, "orders_offer_fk", pg.Constraint)

	_, ok = Postgres(stdErrors.New("plain"))
	require.False(t, ok)
}

func TestLogFieldsIncludesChainAndCode(t *testing.T) {
	err := Wrap(CodeDependency, &pgconn.PgError{Code: PGCheckViolation}, "save order")

	fields := LogFields(err)
	require.Equal(t, CodeDependency, fields["error_code"])
	require.Equal(t, PGCheckViolation, fields["pg_code"])
	require.Len(t, fields["error_chain"], 2)
	require.Empty(t, LogFields(nil))
}

func TestErrorStringIncludesCause(t *testing.T) {
	require.Equal(t, "NOT_FOUND: offer missing", New(CodeNotFound, "offer missing").Error())
	require.Equal(t, "DEPENDENCY_ERROR: load cart: conn reset",
		Wrap(CodeDependency, stdErrors.New("conn reset"), "load cart").Error())
	require.Equal(t, "VALIDATION_ERROR: quantity 0 out of range", Newf(CodeValidation, "quantity %d out of range", 0).Error())
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, CodeRateLimit, CodeOf(fmt.Errorf("wrap: %w", New(CodeRateLimit, "slow down"))))
	require.Equal(t, CodeInternal, CodeOf(stdErrors.New("plain")))
	require.Equal(t, CodeInternal, CodeOf(nil))
}
