package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "lon...", truncate("longerstring", 6))
	assert.Equal(t, "lo", truncate("longerstring", 2))
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	printJSON(&out, struct {
		A int `json:"a"`
	}{A: 1})

	assert.Equal(t, "{\n  \"a\": 1\n}\n", out.String())
}

func TestReportsTrialBalance(t *testing.T) {
	var gotOrg, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrg = r.Header.Get(middleware.OrganizationHeader)
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/api/v1/reports/trial-balance", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"lines": [
				{"code": "1000", "name": "Cash", "debits": "500", "credits": "0"},
				{"code": "3000", "name": "Owner Equity", "debits": "0", "credits": "500"}
			],
			"total_debits": "500",
			"total_credits": "500",
			"is_balanced": true
		}`))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--org", "org-1", "reports", "trial-balance", "--start", "2025-01-01")
	require.NoError(t, err)

	assert.Equal(t, "org-1", gotOrg)
	assert.Equal(t, "start_date=2025-01-01", gotQuery)
	assert.Contains(t, out, "Owner Equity")
	assert.Contains(t, out, "500.00")
	assert.NotContains(t, out, "WARNING")
}

func TestReportsSurfaceAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad_request","message":"kind must be bill or invoice"}`))
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "--org", "org-1", "reports", "aging", "--kind", "payroll")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind must be bill or invoice")
}

func TestReportsRequireOrganization(t *testing.T) {
	t.Setenv("GOBOOKS_TOKEN", "")
	_, err := execute(t, "reports", "trial-balance")
	require.Error(t, err)
}

func TestTokenCommandIssuesVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := execute(t, "--org", "org-9", "token", "--user", "user-3", "--role", "approver", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := auth.NewJWTManager("cli-secret", time.Hour).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "org-9", claims.OrganizationID)
	assert.Equal(t, domain.RoleApprover, claims.Role)
}

func TestTokenCommandRejectsUnknownRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	_, err := execute(t, "--org", "org-9", "token", "--user", "user-3", "--role", "owner")
	require.Error(t, err)
}

func TestMigrateDownValidatesSteps(t *testing.T) {
	_, err := execute(t, "migrate", "down", "zero")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive integer")
}
