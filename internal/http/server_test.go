package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"budget/internal/auth"
	"budget/internal/ledger"
	"budget/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "budget.db")
	store, err := storage.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := ledger.NewService(store, ledger.DefaultConfig())

	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	authenticator := auth.NewAuthenticator(map[string]auth.Credential{
		"alice": {Name: "Alice", PasswordHash: hash},
	})
	sessions := auth.NewSessions(time.Hour)

	srv := NewServer(":0", svc, authenticator, sessions)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, client *http.Client, base string) {
	t.Helper()
	resp := doJSON(t, client, http.MethodPost, base+"/login", map[string]string{
		"username": "alice",
		"password": "s3cret",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func decodeInto(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestReadyzReportsChecks(t *testing.T) {
	ts, client := newTestServer(t)

	resp, err := client.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
		Checks struct {
			Ledger      string `json:"ledger"`
			Auth        string `json:"auth"`
			RateLimiter struct {
				Status        string `json:"status"`
				ActiveClients int    `json:"active_clients"`
			} `json:"rate_limiter"`
		} `json:"checks"`
	}
	decodeInto(t, resp, &body)
	require.Equal(t, "ready", body.Status)
	require.Equal(t, "ok", body.Checks.Ledger)
	require.Equal(t, "ok", body.Checks.Auth)
	require.Equal(t, "ok", body.Checks.RateLimiter.Status)
	require.GreaterOrEqual(t, body.Checks.RateLimiter.ActiveClients, 0)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts, client := newTestServer(t)

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, client, http.MethodPost, ts.URL+"/login", map[string]string{
		"username": "nobody",
		"password": "s3cret",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequiresSession(t *testing.T) {
	ts, client := newTestServer(t)

	for _, path := range []string{"/categories", "/incomes", "/expenses", "/budgets", "/summary", "/export/csv"} {
		resp, err := client.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestFirstLoginSeedsDefaultCategories(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	resp, err := client.Get(ts.URL + "/categories")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cats []categoryJSON
	decodeInto(t, resp, &cats)
	require.Len(t, cats, 8)

	names := make([]string, 0, len(cats))
	for _, c := range cats {
		require.True(t, c.Active)
		names = append(names, c.Name)
	}
	require.Contains(t, names, "Alimentation")
	require.Contains(t, names, "Épargne")
}

func TestIncomeLifecycle(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/incomes", map[string]any{
		"month": "2025-03", "source": "Salaire", "amount": 2000.0,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]int64
	decodeInto(t, resp, &created)
	require.Positive(t, created["id"])

	resp, err := client.Get(ts.URL + "/incomes?month=2025-03")
	require.NoError(t, err)
	var incomes []incomeJSON
	decodeInto(t, resp, &incomes)
	require.Len(t, incomes, 1)
	require.Equal(t, "Salaire", incomes[0].Source)
	require.Equal(t, 2000.0, incomes[0].Amount)

	resp = doJSON(t, client, http.MethodDelete,
		fmt.Sprintf("%s/incomes?id=%d", ts.URL, created["id"]), nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/incomes?month=2025-03")
	require.NoError(t, err)
	incomes = nil
	decodeInto(t, resp, &incomes)
	require.Empty(t, incomes)
}

func TestIncomeAcceptsStringAmount(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/incomes", map[string]any{
		"month": "2025-03", "source": "Salaire", "amount": "1234,56",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err := client.Get(ts.URL + "/incomes?month=2025-03")
	require.NoError(t, err)
	var incomes []incomeJSON
	decodeInto(t, resp, &incomes)
	require.Len(t, incomes, 1)
	require.Equal(t, 1234.56, incomes[0].Amount)

	resp = doJSON(t, client, http.MethodPost, ts.URL+"/incomes", map[string]any{
		"month": "2025-03", "source": "Salaire", "amount": "abc",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestInvalidWritesReturn422(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	cases := []struct {
		name string
		path string
		body map[string]any
	}{
		{"zero income amount", "/incomes", map[string]any{"month": "2025-03", "source": "x", "amount": 0.0}},
		{"bad income month", "/incomes", map[string]any{"month": "2025-13", "source": "x", "amount": 10.0}},
		{"blank income source", "/incomes", map[string]any{"month": "2025-03", "source": "  ", "amount": 10.0}},
		{"negative budget", "/budgets", map[string]any{"month": "2025-03", "category_id": 1, "amount": -5.0}},
		{"blank category name", "/categories", map[string]any{"name": "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, client, http.MethodPost, ts.URL+tc.path, tc.body)
			resp.Body.Close()
			require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		})
	}
}

func TestExpenseDateValidation(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/expenses", map[string]any{
		"date": "05/03/2025", "category_id": 1, "description": "courses", "amount": 10.0,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSummaryScenario(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	resp, err := client.Get(ts.URL + "/categories")
	require.NoError(t, err)
	var cats []categoryJSON
	decodeInto(t, resp, &cats)
	var alimentation int64
	for _, c := range cats {
		if c.Name == "Alimentation" {
			alimentation = c.ID
		}
	}
	require.Positive(t, alimentation)

	resp = doJSON(t, client, http.MethodPost, ts.URL+"/incomes", map[string]any{
		"month": "2025-03", "source": "Salaire", "amount": 2000.0,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, client, http.MethodPost, ts.URL+"/budgets", map[string]any{
		"month": "2025-03", "category_id": alimentation, "amount": 200.0,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, client, http.MethodPost, ts.URL+"/expenses", map[string]any{
		"date": "2025-03-10", "category_id": alimentation, "description": "courses", "amount": 75.0,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = client.Get(ts.URL + "/summary?month=2025-03")
	require.NoError(t, err)
	var sum summaryJSON
	decodeInto(t, resp, &sum)

	require.Equal(t, 2000.0, sum.TotalIncome)
	require.Equal(t, 75.0, sum.TotalSpent)
	require.Equal(t, 1925.0, sum.OverallLeft)
	require.Len(t, sum.Rows, 1)
	require.Equal(t, "Alimentation", sum.Rows[0].Category)
	require.Equal(t, 200.0, sum.Rows[0].Budget)
	require.Equal(t, 125.0, sum.Rows[0].Remaining)
	require.Equal(t, 37.5, sum.Rows[0].PercentUsed)
}

func TestBudgetUpsertKeepsOneRow(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	for _, amount := range []float64{100.0, 150.0} {
		resp := doJSON(t, client, http.MethodPost, ts.URL+"/budgets", map[string]any{
			"month": "2025-03", "category_id": 1, "amount": amount,
		})
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := client.Get(ts.URL + "/budgets?month=2025-03")
	require.NoError(t, err)
	var budgets []budgetJSON
	decodeInto(t, resp, &budgets)
	require.Len(t, budgets, 1)
	require.Equal(t, 150.0, budgets[0].Amount)
}

func TestTrendsDefaultWindow(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	resp, err := client.Get(ts.URL + "/trends")
	require.NoError(t, err)
	var points []trendPointJSON
	decodeInto(t, resp, &points)
	require.Len(t, points, 6)
	for _, p := range points {
		require.Zero(t, p.Income)
		require.Zero(t, p.Expense)
	}

	resp, err = client.Get(ts.URL + "/trends?months=2025-01,2025-02")
	require.NoError(t, err)
	points = nil
	decodeInto(t, resp, &points)
	require.Len(t, points, 2)
	require.Equal(t, "2025-01", points[0].Month)
	require.Equal(t, "2025-02", points[1].Month)
}

func TestExportCSV(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/incomes", map[string]any{
		"month": "2025-03", "source": "Salaire", "amount": 2000.0,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err := client.Get(ts.URL + "/export/csv?table=incomes")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "incomes.csv")

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(body.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "id,month,source,amount", strings.TrimSpace(lines[0]))
	require.Contains(t, lines[1], "Salaire")

	resp, err = client.Get(ts.URL + "/export/csv?table=nope")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestExportExcelHeaders(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	resp, err := client.Get(ts.URL + "/export/excel")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "budget.xlsx")
}

func TestMethodNotAllowed(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/summary", nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, "GET", resp.Header.Get("Allow"))
}

func TestLogoutRevokesSession(t *testing.T) {
	ts, client := newTestServer(t)
	login(t, client, ts.URL)

	resp := doJSON(t, client, http.MethodPost, ts.URL+"/logout", nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := client.Get(ts.URL + "/categories")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
