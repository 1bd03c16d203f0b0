package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

	"github.com/tieubaoca/research-assistant/config"
	"github.com/tieubaoca/research-assistant/database"
	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/middleware"
	"github.com/tieubaoca/research-assistant/repository"
	"github.com/tieubaoca/research-assistant/service"
	"github.com/tieubaoca/research-assistant/types"
)

const testSecret = "handler-test-secret"

type stubGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

type testServer struct {
	router *gin.Engine
	gen    *stubGenerator
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logging.Nop()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "users.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := service.NewUserService(repository.NewSQLUserRepo(db, repository.SQLiteDialect), log, time.Hour)
	docs := service.NewDocumentService(types.DocumentServiceConfig{}, log)
	gen := &stubGenerator{reply: "## Answer\n\nforty-two"}
	research := service.NewResearchService(gen, nil, log)
	upload := NewUploadHandler(docs, maxUpload, log)

	router := NewRouter(Handlers{
		Auth:     NewAuthHandler(users, testSecret, false, log),
		Upload:   upload,
		Document: NewDocumentHandler(upload, docs),
		Research: NewResearchHandler(upload, research),
		Cors:     NewCorsHandler([]string{"*"}),
	}, testSecret, log)
	return &testServer{router: router, gen: gen}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, path, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) types.DataResponse {
	t.Helper()
	var resp types.DataResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// login registers alice and returns the session cookie.
func (s *testServer) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := s.do(jsonRequest(http.MethodPost, "/api/v1/auth/register", types.RegisterRequest{
		Username: "alice", Email: "a@x.io", Password: "pw1",
	}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", types.LoginRequest{Username: "alice", Password: "pw1"}))
	require.Equal(t, http.StatusOK, w.Code)
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, 0)
	cookie := s.login(t)

	w := s.do(jsonRequest(http.MethodPost, "/api/v1/auth/register", types.RegisterRequest{
		Username: "alice", Email: "other@x.io", Password: "pw2",
	}))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Username or email already exists.", decode(t, w).Message)

	for _, creds := range []types.LoginRequest{
		{Username: "alice", Password: "wrong"},
		{Username: "bob", Password: "pw1"},
	} {
		w = s.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", creds))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Invalid credentials.", decode(t, w).Message)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	w = s.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	w = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "session=;")
}

func TestRegister_BadBody(t *testing.T) {
	s := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{"username":`))
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode(t, w).Message)
}

func TestRegister_PartialBodyIsStored(t *testing.T) {
	s := newTestServer(t, 0)
	w := s.do(jsonRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{"username": "x"}))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", types.LoginRequest{Username: "x"}))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	s := newTestServer(t, 0)
	w := s.do(uploadRequest(t, "/api/v1/documents/preview", "a.txt", "hello", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, s.gen.prompts)
}

func TestPreview(t *testing.T) {
	s := newTestServer(t, 0)
	cookie := s.login(t)

	req := uploadRequest(t, "/api/v1/documents/preview", "notes.TXT", strings.Repeat("é", 1200), nil)
	req.AddCookie(cookie)
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data types.PreviewResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1200, resp.Data.Length)
	assert.Equal(t, "txt", resp.Data.Format)
	assert.Equal(t, strings.Repeat("é", 1000), resp.Data.Preview)
}

func TestRun(t *testing.T) {
	s := newTestServer(t, 0)
	cookie := s.login(t)

	req := uploadRequest(t, "/api/v1/research/run", "notes.txt", "Hello\nWorld", map[string]string{
		"mode": "Query", "question": "What is X?",
	})
	req.AddCookie(cookie)
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data types.ResearchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, types.ModeQuery, resp.Data.EffectiveMode)
	assert.Equal(t, "## Answer\n\nforty-two", resp.Data.Output)
	assert.Contains(t, resp.Data.HTML, "<h2>Answer</h2>")
	assert.Equal(t, []string{"Document Content:\nHello\nWorld\n\nUser Question: What is X?"}, s.gen.prompts)
}

func TestRun_ErrorMapping(t *testing.T) {
	s := newTestServer(t, 0)
	cookie := s.login(t)

	cases := []struct {
		name     string
		filename string
		content  string
		mode     string
		modelErr error
		status   int
		message  string
	}{
		{"unsupported", "report.docx", "PK", "summarize", nil, http.StatusBadRequest, "Unsupported file format: Please use PDF or TXT."},
		{"empty", "blank.txt", " \n ", "summarize", nil, http.StatusUnprocessableEntity, "No text found in document."},
		{"bad mode", "a.txt", "text", "poem", nil, http.StatusBadRequest, "Choose a mode: Query, Just Summarize or Challenge Me."},
		{"model down", "a.txt", "text", "challenge", errors.New("503"), http.StatusBadGateway, "The model request failed, please try again."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s.gen.err = tc.modelErr
			s.gen.prompts = nil
			req := uploadRequest(t, "/api/v1/research/run", tc.filename, tc.content, map[string]string{"mode": tc.mode})
			req.AddCookie(cookie)
			w := s.do(req)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.message, decode(t, w).Message)
			if tc.modelErr == nil {
				assert.Empty(t, s.gen.prompts)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t, 0)
	cookie := s.login(t)

	req := uploadRequest(t, "/api/v1/research/evaluate", "notes.txt", "DOC", map[string]string{
		"answer1": "a", "answer2": "b", "answer3": "c",
	})
	req.AddCookie(cookie)
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, s.gen.prompts, 1)
	assert.Contains(t, s.gen.prompts[0], "Q1: a\nQ2: b\nQ3: c\n\nPlease evaluate each response")
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(t, 8)
	cookie := s.login(t)

	req := uploadRequest(t, "/api/v1/documents/preview", "big.txt", strings.Repeat("x", 64), nil)
	req.AddCookie(cookie)
	w := s.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, 0)
	w := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
