package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-rag/internal/models"
)

type stubService struct {
	chatErr   error
	ingestErr error
	resetErr  error
	statsErr  error

	gotMessage string
	gotSession string
	gotTopK    int
	gotSource  string
}

func (s *stubService) Chat(_ context.Context, message, sessionID string, topK int) (models.Answer, error) {
	s.gotMessage, s.gotSession, s.gotTopK = message, sessionID, topK
	if s.chatErr != nil {
		return models.Answer{}, s.chatErr
	}
	return models.Answer{
		Answer:    "ثلاثون يوما",
		Citations: []models.Citation{{DocTitle: "leave", Chunk: 1, Source: "hr/leave.pdf", Corpus: "hr"}},
	}, nil
}

func (s *stubService) Ingest(_ context.Context, source string) (models.IngestStats, error) {
	s.gotSource = source
	if s.ingestErr != nil {
		return models.IngestStats{}, s.ingestErr
	}
	return models.IngestStats{
		Ingested: 3, Files: 2, Source: source,
		ByCorpus: map[models.Corpus]int{"hr": 2, "jisr": 1, "unknown": 0},
	}, nil
}

func (s *stubService) Reset(context.Context) error { return s.resetErr }

func (s *stubService) Stats(context.Context) (models.IndexStats, error) {
	if s.statsErr != nil {
		return models.IndexStats{}, s.statsErr
	}
	return models.IndexStats{TotalDocuments: 12, CollectionName: "hr_documents", Backend: "chromem"}, nil
}

func do(t *testing.T, svc Service, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewRouter(svc).ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHealthAndStats(t *testing.T) {
	rec, body := do(t, &stubService{}, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = do(t, &stubService{}, http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(12), body["total_documents"])
	assert.Equal(t, "hr_documents", body["collection_name"])

	rec, _ = do(t, &stubService{statsErr: models.ErrIndexUnavailable}, http.MethodGet, "/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChat(t *testing.T) {
	svc := &stubService{}
	rec, body := do(t, svc, http.MethodPost, "/chat", `{"message":"كم يوم اجازة؟","session_id":"abc","top_k":"3"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ثلاثون يوما", body["answer"])
	assert.Len(t, body["citations"], 1)
	assert.Equal(t, "abc", svc.gotSession)
	assert.Equal(t, 3, svc.gotTopK)

	_, _ = do(t, svc, http.MethodPost, "/chat", `{"message":"x"}`)
	assert.Equal(t, 0, svc.gotTopK)
}

func TestChat_ErrorsHideDetail(t *testing.T) {
	rec, body := do(t, &stubService{chatErr: errors.New("dial tcp 10.0.0.3:5432: secret detail")}, http.MethodPost, "/chat", `{"message":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, rec.Body.String(), "secret")

	rec, _ = do(t, &stubService{}, http.MethodPost, "/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest(t *testing.T) {
	svc := &stubService{}
	rec, body := do(t, svc, http.MethodPost, "/ingest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "", svc.gotSource)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(3), stats["ingested"])
	assert.Equal(t, map[string]any{"hr": float64(2), "jisr": float64(1), "unknown": float64(0)}, stats["by_corpus"])

	_, _ = do(t, svc, http.MethodPost, "/ingest", `{"source":"jisr"}`)
	assert.Equal(t, "jisr", svc.gotSource)

	rec, _ = do(t, &stubService{ingestErr: models.ErrUnknownSource}, http.MethodPost, "/ingest", `{"source":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReset(t *testing.T) {
	rec, body := do(t, &stubService{}, http.MethodPost, "/reset", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])

	_, body = do(t, &stubService{resetErr: errors.New("locked")}, http.MethodPost, "/reset", "")
	assert.Equal(t, false, body["ok"])
}

func TestMetricsRoute(t *testing.T) {
	do(t, &stubService{}, http.MethodGet, "/health", "")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	NewRouter(&stubService{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, "127.0.0.1:0", &stubService{}) }()
	cancel()
	assert.NoError(t, <-done)
}
