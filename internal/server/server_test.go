package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/regioncost/internal/pricing"
	"github.com/ppiankov/regioncost/internal/ranker"
	"github.com/ppiankov/regioncost/internal/store"
)

type stubSource struct {
	table *pricing.Table
	err   error
}

func (s *stubSource) Fetch(context.Context) (*pricing.Table, error) { return s.table, s.err }
func (s *stubSource) Location() string                              { return "stub://pricing" }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []store.SelectionRecord
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, sel store.SelectionRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sel)
	return n.err
}

func twoRegionTable() *pricing.Table {
	t := pricing.NewTable()
	t.Set("us-west-2", pricing.RegionPricing{EC2: map[string]float64{"t2.micro": 0.0116}, S3: 0.023, RDS: 0.017})
	t.Set("ap-northeast-2", pricing.RegionPricing{EC2: map[string]float64{"t2.micro": 0.0144}, S3: 0.025, RDS: 0.026})
	return t
}

type fixture struct {
	srv      *Server
	store    *store.FileStore
	notifier *recordingNotifier
	source   *stubSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		store:    fs,
		notifier: &recordingNotifier{},
		source:   &stubSource{table: twoRegionTable()},
	}
	f.srv = New(Config{
		Source:   f.source,
		Ranker:   ranker.New(pricing.S3Direct),
		Store:    fs,
		Notifier: f.notifier,
		Version:  "test",
		Registry: prometheus.NewRegistry(),
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRankRanksAndPersists(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/rank", `{"id":"kim","ec2":"2","ec2type":"t2.micro","s3":"10","rds":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp rankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Cheapest)
	assert.Equal(t, "us-west-2", resp.Cheapest.Region)
	assert.Equal(t, 0.2702, resp.Cheapest.Total)
	assert.Equal(t, []string{"us-west-2", "ap-northeast-2"}, resp.Top3)
	require.Len(t, resp.Regions, 2)
	assert.Equal(t, 0.3048, resp.Regions[1].Total)
	assert.Equal(t, "direct", resp.Convention)
	assert.NotEmpty(t, resp.Saved)

	inputs, err := f.store.Inputs(context.Background(), "kim")
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, 2, inputs[0].EC2)
	assert.Equal(t, 10, inputs[0].S3)
	assert.Equal(t, []string{"us-west-2", "ap-northeast-2"}, inputs[0].Top3Region)
}

func TestRankCoercesQuantities(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/rank", `{"ec2":3.7,"ec2type":"t2.micro","s3":"abc","rds":null}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp rankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// 3 * 0.0116
	assert.Equal(t, 0.0348, resp.Cheapest.Total)

	inputs, err := f.store.Inputs(context.Background(), store.DefaultUserID)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, 3, inputs[0].EC2)
	assert.Equal(t, 0, inputs[0].S3)
}

func TestRankMissingInstanceTypeWarns(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/rank", `{"ec2":1,"ec2type":"m5.large"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp rankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Warnings, 2)
	assert.Equal(t, 0.0, resp.Cheapest.Total)
	// Ties keep table order.
	assert.Equal(t, []string{"us-west-2", "ap-northeast-2"}, resp.Top3)
}

func TestRankEmptyTable(t *testing.T) {
	f := newFixture(t)
	f.source.table = pricing.NewTable()
	rec := f.do(t, http.MethodPost, "/rank", `{"ec2":1,"ec2type":"t2.micro"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.Nil(t, out["cheapest"])
	assert.Equal(t, []any{}, out["top3"])
	assert.Equal(t, []any{}, out["regions"])
}

func TestRankFetchFailure(t *testing.T) {
	f := newFixture(t)
	f.source.err = &pricing.DataError{Err: errors.New("unexpected token")}
	rec := f.do(t, http.MethodPost, "/rank", `{"ec2":1}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "malformed pricing data")
}

func TestRankBadBody(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/rank", `{"ec2":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveInput(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/save", `{"userId":"lee","ec2":"1","ec2type":"t3.micro","s3":2,"rds":0,"top3_region":["us-west-2"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, decode(t, rec)["message"], "_input_data.json saved")

	inputs, err := f.store.Inputs(context.Background(), "lee")
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, []string{"us-west-2"}, inputs[0].Top3Region)
	assert.Empty(t, f.notifier.sent)
}

func TestSaveSelectionNotifies(t *testing.T) {
	f := newFixture(t)
	body := `{"id":"kim","selectedRegion":"us-west-2","githubUrl":"https://github.com/example/app","accessKey":"AKIAEXAMPLE1234"}`
	rec := f.do(t, http.MethodPost, "/save", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	assert.Equal(t, true, out["notified"])
	assert.Contains(t, out["message"], "_final_data.json saved")

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "us-west-2", f.notifier.sent[0].SelectedRegion)

	sels, err := f.store.Selections(context.Background(), "kim")
	require.NoError(t, err)
	assert.Len(t, sels, 1)
}

func TestSaveSelectionNotifyFailureStillSaves(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("webhook returned HTTP 500")
	body := `{"id":"kim","selectedRegion":"us-west-2","githubUrl":"u","accessKey":"k"}`
	rec := f.do(t, http.MethodPost, "/final", body)
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.Equal(t, false, out["notified"])
	assert.Equal(t, "webhook returned HTTP 500", out["notify_error"])

	sels, err := f.store.Selections(context.Background(), "kim")
	require.NoError(t, err)
	assert.Len(t, sels, 1)
}

func TestSaveInvalidSelection(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/save", "/final"} {
		rec := f.do(t, http.MethodPost, path, `{"id":"kim","selectedRegion":"","githubUrl":"u"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, decode(t, rec)["error"], "accessKey")
	}
	assert.Empty(t, f.notifier.sent)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, "healthy", out["status"])
	assert.Equal(t, "test", out["version"])
	assert.Equal(t, "direct", out["convention"])
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/rank", `{"ec2":1,"ec2type":"t2.micro"}`)
	f.source.err = errors.New("HTTP 503")
	f.do(t, http.MethodPost, "/rank", `{"ec2":1}`)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "regioncost_rankings_total 1")
	assert.Contains(t, body, "regioncost_pricing_fetch_errors_total 1")
	assert.Contains(t, body, `regioncost_http_requests_total{code="502",route="/rank"} 1`)
	assert.Contains(t, body, `regioncost_saves_total{kind="input",result="ok"} 1`)
}

func TestNoStoreConfigured(t *testing.T) {
	srv := New(Config{Source: &stubSource{table: twoRegionTable()}, Registry: prometheus.NewRegistry()})
	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(`{"ec2":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/rank", strings.NewReader(`{"ec2":1,"ec2type":"t2.micro"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"saved"`)
}
