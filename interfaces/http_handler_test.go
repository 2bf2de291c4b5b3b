package interfaces

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ats-evaluator/config"
	"ats-evaluator/domain"
	"ats-evaluator/infrastructure"
	"ats-evaluator/usecase"
)

type scriptedGenerator struct {
	replies []string
	err     error
	calls   int
}

func (g *scriptedGenerator) GenerateContent(context.Context, string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "not json", nil
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply, nil
}

func (g *scriptedGenerator) Model() string { return "scripted" }

func reply(score int, summary string) string {
	return fmt.Sprintf(`{"JD Match": "%d%%", "MatchedKeywords": ["Go"], "MissingKeywords": [], "Profile Summary": %q}`, score, summary)
}

type testServer struct {
	router *gin.Engine
	store  *infrastructure.EvaluationStore
	gen    *scriptedGenerator
}

func newTestServer(t *testing.T, opts ...func(*HTTPHandler)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := infrastructure.OpenDatabase(config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "ats.db"),
	}, nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store := infrastructure.NewEvaluationStore(db, nil)
	gen := &scriptedGenerator{}
	bst := time.FixedZone("BST", 60*60)

	h := &HTTPHandler{
		Store:     store,
		Evaluator: usecase.NewEvaluator(store, gen, infrastructure.NewTextExtractor("", nil)),
		History:   usecase.NewHistory(store),
		Location:  bst,
	}
	for _, opt := range opts {
		opt(h)
	}
	router := NewRouter(h)
	return &testServer{router: router, store: store, gen: gen}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) postJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) upload(t *testing.T, fields map[string]string, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("resume", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/evaluations", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func (s *testServer) createJD(t *testing.T, title string) JobDescriptionView {
	t.Helper()
	w := s.postJSON(t, http.MethodPost, "/api/job-descriptions", jobDescriptionRequest{Title: title, Description: title + " with Go and Docker"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var jd JobDescriptionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &jd))
	return jd
}

func candidate(jdID uint, name string) map[string]string {
	return map[string]string{
		"name":               name,
		"email":              strings.ToLower(name) + "@example.com",
		"job_description_id": fmt.Sprint(jdID),
	}
}

func TestJobDescriptionCRUD(t *testing.T) {
	s := newTestServer(t)
	jd := s.createJD(t, "Backend Engineer")
	assert.NotZero(t, jd.ID)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`, jd.CreatedAt)

	w := s.postJSON(t, http.MethodPost, "/api/job-descriptions", jobDescriptionRequest{Title: " Backend Engineer ", Description: "again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.postJSON(t, http.MethodPost, "/api/job-descriptions", jobDescriptionRequest{Title: "", Description: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.postJSON(t, http.MethodPut, fmt.Sprintf("/api/job-descriptions/%d", jd.ID), jobDescriptionRequest{Title: "Staff Engineer", Description: "updated"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated JobDescriptionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Staff Engineer", updated.Title)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/job-descriptions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list []JobDescriptionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/job-descriptions/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/job-descriptions/%d", jd.ID), nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/job-descriptions/%d", jd.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvaluateUpload(t *testing.T) {
	s := newTestServer(t)
	jd := s.createJD(t, "Backend Engineer")
	s.gen.replies = []string{"```json\n" + reply(82, "Go and Docker experience") + "\n```"}

	w := s.upload(t, candidate(jd.ID, "Ada"), "ada.txt", "Senior Go developer")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Degraded)
	assert.Equal(t, "82%", resp.Evaluation.MatchPercent)
	assert.Equal(t, "Backend Engineer", resp.Evaluation.JobTitle)
	assert.Equal(t, domain.Keywords{{Keyword: "Go"}}, resp.Evaluation.MatchedKeywords)
	assert.NotNil(t, resp.Evaluation.MissingKeywords)
	assert.Contains(t, w.Body.String(), `"missing_keywords":[]`)

	w = s.upload(t, candidate(jd.ID, "Ada"), "ada.txt", "Senior Go developer")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, s.gen.calls, "duplicates never reach the model")

	w = s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/evaluations/%d/resume", resp.Evaluation.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Senior Go developer", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ada.txt")
}

func TestEvaluateUploadUnparsableReply(t *testing.T) {
	s := newTestServer(t)
	jd := s.createJD(t, "Backend Engineer")
	raw := "I am unable to score this resume, it looks empty."
	s.gen.replies = []string{raw}

	w := s.upload(t, candidate(jd.ID, "Ada"), "ada.txt", "Senior Go developer")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Degraded)
	assert.Equal(t, raw, resp.Response)
	assert.Equal(t, "0%", resp.Evaluation.MatchPercent)
	assert.NotEmpty(t, resp.Warnings)
	assert.Contains(t, w.Body.String(), `"degraded":true`)
}

func TestEvaluateUploadParsedHasNoRawResponse(t *testing.T) {
	s := newTestServer(t)
	jd := s.createJD(t, "Backend Engineer")
	s.gen.replies = []string{reply(60, "ok")}

	w := s.upload(t, candidate(jd.ID, "Ada"), "ada.txt", "Senior Go developer")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), `"response"`)
}

func TestEvaluateUploadTooLarge(t *testing.T) {
	s := newTestServer(t, func(h *HTTPHandler) { h.MaxUploadBytes = 1 << 10 })
	jd := s.createJD(t, "Backend Engineer")

	w := s.upload(t, candidate(jd.ID, "Ada"), "ada.txt", strings.Repeat("Go developer. ", 400))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.JSONEq(t, `{"error":"resume is too large"}`, w.Body.String())
	assert.Zero(t, s.gen.calls)

	w = s.upload(t, candidate(jd.ID, "Ada"), "ada.txt", "short")
	assert.Equal(t, http.StatusCreated, w.Code, "small uploads still pass the limit")
}

func TestEvaluateUploadErrors(t *testing.T) {
	s := newTestServer(t)
	jd := s.createJD(t, "Backend Engineer")

	w := s.upload(t, candidate(jd.ID, "Ada"), "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing file")

	w = s.upload(t, candidate(jd.ID, "Ada"), "ada.exe", "MZ")
	assert.Equal(t, http.StatusBadRequest, w.Code, "unsupported type")

	w = s.upload(t, candidate(0, "Ada"), "ada.txt", "text")
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing job description id")

	w = s.upload(t, candidate(jd.ID, ""), "ada.txt", "text")
	assert.Equal(t, http.StatusBadRequest, w.Code, "blank name")

	w = s.upload(t, candidate(9999, "Ada"), "ada.txt", "text")
	assert.Equal(t, http.StatusNotFound, w.Code, "unknown job description")

	s.gen.err = fmt.Errorf("%w: upstream down", domain.ErrModelCall)
	w = s.upload(t, candidate(jd.ID, "Grace"), "grace.txt", "text")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	evals, err := s.store.ListEvaluations(context.Background(), infrastructure.EvaluationFilter{})
	require.NoError(t, err)
	assert.Empty(t, evals)
}

func TestRankingAndExport(t *testing.T) {
	s := newTestServer(t)
	jd := s.createJD(t, "Backend Engineer")
	scores := []int{70, 95, 40, 95}
	for i, score := range scores {
		s.gen.replies = append(s.gen.replies, reply(score, fmt.Sprintf("candidate %d", i)))
	}
	for i := range scores {
		w := s.upload(t, candidate(jd.ID, fmt.Sprintf("C%d", i)), fmt.Sprintf("c%d.txt", i), "resume text")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/job-descriptions/%d/ranking", jd.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var ranking RankingView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ranking))

	var got []string
	for _, c := range ranking.Candidates {
		got = append(got, fmt.Sprintf("%d:%s:%s", c.Rank, c.Name, c.MatchPercent))
	}
	assert.Equal(t, []string{"1:C1:95%", "2:C3:95%", "3:C0:70%", "4:C2:40%"}, got)

	w = s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/job-descriptions/%d/ranking/export", jd.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"1", "C1", "c1@example.com", "95", "candidate 1"}, records[1])

	w = s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/job-descriptions/%d/ranking/export?format=xlsx", jd.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Ranking")
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	w = s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/job-descriptions/%d/ranking/export?format=pdf", jd.ID), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/job-descriptions/999/ranking", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEvaluationsSortAndSearch(t *testing.T) {
	s := newTestServer(t)
	jd := s.createJD(t, "Backend Engineer")
	s.gen.replies = []string{
		reply(30, "Knows Docker"),
		reply(90, "Python only"),
		reply(60, "docker and kubernetes"),
	}
	for i := 0; i < 3; i++ {
		w := s.upload(t, candidate(jd.ID, fmt.Sprintf("C%d", i)), fmt.Sprintf("c%d.txt", i), "text")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	get := func(query string) []EvaluationView {
		t.Helper()
		w := s.do(httptest.NewRequest(http.MethodGet, "/api/evaluations"+query, nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var views []EvaluationView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
		return views
	}
	names := func(views []EvaluationView) []string {
		out := []string{}
		for _, v := range views {
			out = append(out, v.Name)
		}
		return out
	}

	assert.Equal(t, []string{"C2", "C1", "C0"}, names(get("")))
	assert.Equal(t, []string{"C1", "C2", "C0"}, names(get("?sort=highest_match")))
	assert.Equal(t, []string{"C0", "C2"}, names(get("?sort=lowest_match&q=DOCKER")))
	assert.Equal(t, []string{"C2", "C1", "C0"}, names(get(fmt.Sprintf("?job_description_id=%d", jd.ID))))
	assert.Empty(t, get("?job_description_id=12345"))

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/evaluations?job_description_id=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", domain.ErrEmptyField), http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrForeignKey, http.StatusNotFound},
		{domain.ErrDuplicateTitle, http.StatusConflict},
		{domain.ErrDuplicateSubmission, http.StatusConflict},
		{domain.ErrModelCall, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
