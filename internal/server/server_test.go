package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/ai"
	"github.com/spigell/offer-guard/internal/history"
	"github.com/spigell/offer-guard/internal/offer"
	"github.com/spigell/offer-guard/internal/risk"
)

type stubAnalyzer struct {
	result *risk.Result
	err    error
	got    []offer.JobOffer
}

func (s *stubAnalyzer) Analyze(_ context.Context, o offer.JobOffer) (*risk.Result, error) {
	s.got = append(s.got, o)
	return s.result, s.err
}

type stubMarket struct {
	internships []ai.Internship
	trends      []ai.SkillTrend
	err         error
}

func (s *stubMarket) Internships(context.Context, string) ([]ai.Internship, error) {
	return s.internships, s.err
}

func (s *stubMarket) SkillTrends(context.Context, string) ([]ai.SkillTrend, error) {
	return s.trends, s.err
}

type stubMatcher struct {
	result *ai.MatchResult
	err    error
}

func (s *stubMatcher) Match(context.Context, string, string) (*ai.MatchResult, error) {
	return s.result, s.err
}

func highRisk() *risk.Result {
	return &risk.Result{
		RiskLevel:         risk.LevelHigh,
		RiskScore:         92,
		RedFlags:          []string{"Asking for payment for equipment or training is a major scam indicator."},
		TrustIndicators:   []string{},
		VerificationLinks: []ai.VerificationLink{},
	}
}

func newTestServer(t *testing.T, deps Deps, cfg Config) (*Server, history.Store) {
	t.Helper()
	if deps.History == nil {
		store, err := history.NewFileStore(filepath.Join(t.TempDir(), "history.json"), 10, zap.NewNop())
		require.NoError(t, err)
		deps.History = store
	}
	deps.Logger = zap.NewNop()
	return New(cfg, deps), deps.History
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const offerBody = `{
	"jobTitle": " Data Entry ",
	"companyName": "Acme",
	"jobDescription": "Buy a laptop from our vendor.",
	"recruiterEmail": "hr@gmail.com",
	"askedForMoney": true,
	"contactMethod": "telegram",
	"offerImage": "data:image/png;base64,AAAA"
}`

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Deps{}, Config{})

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, Deps{}, Config{})

	do(t, s, http.MethodGet, "/health", "")
	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "offer_guard_http_requests_total")
}

func TestCreateAnalysisSavesHistory(t *testing.T) {
	analyzer := &stubAnalyzer{result: highRisk()}
	s, store := newTestServer(t, Deps{Analyzer: analyzer}, Config{})

	rec := do(t, s, http.MethodPost, "/api/v1/analyses", offerBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, risk.LevelHigh, resp.Result.RiskLevel)
	assert.Equal(t, 92, resp.Result.RiskScore)

	require.Len(t, analyzer.got, 1)
	assert.Equal(t, "Data Entry", analyzer.got[0].JobTitle)
	assert.Equal(t, offer.ContactTelegram, analyzer.got[0].ContactMethod)
	assert.True(t, analyzer.got[0].HasImage(), "analyzer must receive the image")

	items, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, resp.ID, items[0].ID)
	assert.Empty(t, items[0].Offer.OfferImage, "history must not keep the image")
}

func TestCreateAnalysisWithoutSaving(t *testing.T) {
	s, store := newTestServer(t, Deps{Analyzer: &stubAnalyzer{result: highRisk()}}, Config{})

	rec := do(t, s, http.MethodPost, "/api/v1/analyses?save=false", offerBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"id"`)

	items, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateAnalysisValidation(t *testing.T) {
	analyzer := &stubAnalyzer{result: highRisk()}
	s, _ := newTestServer(t, Deps{Analyzer: analyzer}, Config{})

	rec := do(t, s, http.MethodPost, "/api/v1/analyses", `{"jobTitle": "x", "contactMethod": "pigeon"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "bad_request", body.Error)
	assert.Contains(t, body.Message, "companyName is required")
	assert.Contains(t, body.Message, "contactMethod must be one of")
	assert.NotEmpty(t, body.RequestID)
	assert.Empty(t, analyzer.got)

	rec = do(t, s, http.MethodPost, "/api/v1/analyses", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAnalysisUnavailable(t *testing.T) {
	s, _ := newTestServer(t, Deps{Analyzer: &stubAnalyzer{err: risk.ErrNoAnalyzer}}, Config{})

	rec := do(t, s, http.MethodPost, "/api/v1/analyses", offerBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateAnalysisUnexpectedFailure(t *testing.T) {
	s, store := newTestServer(t, Deps{Analyzer: &stubAnalyzer{err: errors.New("fusion exploded")}}, Config{})

	rec := do(t, s, http.MethodPost, "/api/v1/analyses", offerBody)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Something went wrong during analysis.", body.Message)

	items, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestHistoryRoutes(t *testing.T) {
	s, store := newTestServer(t, Deps{}, Config{})
	ctx := context.Background()

	item := history.NewItem(offer.JobOffer{JobTitle: "t", CompanyName: "c", JobDescription: "d"}, highRisk())
	require.NoError(t, store.Add(ctx, item))

	rec := do(t, s, http.MethodGet, "/api/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var items []history.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)

	rec = do(t, s, http.MethodGet, "/api/v1/history/"+item.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/v1/history/"+item.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/v1/history/"+item.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/v1/history/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, store.Add(ctx, item))
	rec = do(t, s, http.MethodDelete, "/api/v1/history", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	left, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestMarketRoutes(t *testing.T) {
	market := &stubMarket{
		internships: []ai.Internship{{Title: "Go Intern", Company: "Acme", Link: "https://acme.example", Source: "site"}},
		trends:      []ai.SkillTrend{{Skill: "Go", Relevance: 90, Description: "d"}},
	}
	s, _ := newTestServer(t, Deps{Market: market}, Config{})

	rec := do(t, s, http.MethodGet, "/api/v1/internships?q=golang", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Go Intern")

	rec = do(t, s, http.MethodGet, "/api/v1/skills?domain=backend", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"relevance":90`)

	rec = do(t, s, http.MethodGet, "/api/v1/internships", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, s, http.MethodGet, "/api/v1/skills?domain=%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketFailuresDegradeToEmptyList(t *testing.T) {
	s, _ := newTestServer(t, Deps{Market: &stubMarket{err: errors.New("quota")}}, Config{})

	rec := do(t, s, http.MethodGet, "/api/v1/internships?q=go", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/v1/skills?domain=go", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMatchResume(t *testing.T) {
	matcher := &stubMatcher{result: &ai.MatchResult{Score: 70, MissingKeywords: []string{"k8s"}, SuggestedRewrites: []ai.Rewrite{}, Summary: "ok"}}
	s, _ := newTestServer(t, Deps{Matcher: matcher}, Config{})

	rec := do(t, s, http.MethodPost, "/api/v1/resume/match", `{"resume": "Go dev", "jobDescription": "Platform role"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"score":70`)

	rec = do(t, s, http.MethodPost, "/api/v1/resume/match", `{"resume": "  ", "jobDescription": "Platform role"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	matcher.err = errors.New("boom")
	rec = do(t, s, http.MethodPost, "/api/v1/resume/match", `{"resume": "Go dev", "jobDescription": "Platform role"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestUnconfiguredServicesReturnUnavailable(t *testing.T) {
	s, _ := newTestServer(t, Deps{}, Config{})

	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodPost, "/api/v1/analyses", offerBody).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/api/v1/internships?q=go", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodPost, "/api/v1/resume/match", `{"resume":"a","jobDescription":"b"}`).Code)
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, Deps{Market: &stubMarket{}}, Config{RateLimit: 0.001, Burst: 1})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/v1/skills?domain=go", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/api/v1/skills?domain=go", "").Code)

	// non AI routes are not limited
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", "").Code)
}
