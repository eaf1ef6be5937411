package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loomboard/api/internal/ai"
	"loomboard/api/internal/auth"
	"loomboard/api/internal/config"
	"loomboard/api/internal/diagram"
	"loomboard/api/internal/gitrepo"
	"loomboard/api/internal/store"
	"loomboard/api/internal/util"
)

func testConfig() config.Config {
	return config.Config{
		TokenSecret:  "test-secret",
		AccessTTL:    time.Hour,
		RefreshTTL:   24 * time.Hour,
		OpenAIAPIKey: "sk-test",
	}
}

type testServer struct {
	handler  http.Handler
	service  *Service
	store    *fakeStore
	git      *fakeGit
	search   *fakeSearch
	sessions *fakeSessions
	agent    *stubAgent
}

func newTestServer(cfg config.Config) *testServer {
	fs := &fakeStore{}
	fg := &fakeGit{}
	fsearch := newFakeSearch()
	fsessions := newFakeSessions()
	agent := &stubAgent{}
	svc := newService(cfg, fs, fsessions, fg, fsearch, agent)
	return &testServer{
		handler:  NewHTTPServer(svc, "*").Handler(),
		service:  svc,
		store:    fs,
		git:      fg,
		search:   fsearch,
		sessions: fsessions,
		agent:    agent,
	}
}

func (ts *testServer) token(t *testing.T, role string) string {
	t.Helper()
	expires := time.Now().Add(time.Hour)
	token, err := auth.IssueToken([]byte("test-secret"), auth.Claims{
		Sub:  "usr_1",
		Name: "Avery",
		Role: role,
		JTI:  util.NewID("jti"),
		Exp:  expires.Unix(),
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	ts.store.getUserByIDFn = func(_ context.Context, userID string) (store.User, error) {
		return store.User{ID: userID, DisplayName: "Avery", Role: role, EmailVerified: true}, nil
	}
	return token
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(testConfig())
	rec := ts.request(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["ok"] != true {
		t.Fatalf("expected ok:true, got %v", payload)
	}
}

func TestDocumentsRequireSession(t *testing.T) {
	ts := newTestServer(testConfig())
	rec := ts.request(t, http.MethodGet, "/api/documents", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["code"] != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED code, got %v", payload)
	}
}

func TestSessionEndpointReflectsToken(t *testing.T) {
	ts := newTestServer(testConfig())

	rec := ts.request(t, http.MethodGet, "/api/session", "", nil)
	if payload := decodeResponse(t, rec); payload["authenticated"] != false {
		t.Fatalf("expected unauthenticated, got %v", payload)
	}

	token := ts.token(t, "editor")
	rec = ts.request(t, http.MethodGet, "/api/session", token, nil)
	payload := decodeResponse(t, rec)
	if payload["authenticated"] != true || payload["userName"] != "Avery" || payload["role"] != "editor" {
		t.Fatalf("unexpected session payload: %v", payload)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	ts := newTestServer(testConfig())
	session, err := ts.service.issueSession(context.Background(), store.User{ID: "usr_1", DisplayName: "Avery", Role: "editor"})
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	rec := ts.request(t, http.MethodPost, "/api/session/refresh", "", map[string]string{"refreshToken": session.RefreshToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["refreshToken"] == session.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}

	// Old refresh token is single use.
	rec = ts.request(t, http.MethodPost, "/api/session/refresh", "", map[string]string{"refreshToken": session.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on reuse, got %d", rec.Code)
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	ts := newTestServer(testConfig())
	token := ts.token(t, "editor")

	rec := ts.request(t, http.MethodPost, "/api/session/logout", token, map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = ts.request(t, http.MethodGet, "/api/documents", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected revoked token to be rejected, got %d", rec.Code)
	}
}

func TestCreateSpaceValidatesName(t *testing.T) {
	ts := newTestServer(testConfig())
	token := ts.token(t, "owner")

	rec := ts.request(t, http.MethodPost, "/api/spaces", token, map[string]string{"name": "  "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	rec = ts.request(t, http.MethodPost, "/api/spaces", token, map[string]string{"name": "Platform Team", "description": "infra"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["slug"] != "platform-team" {
		t.Fatalf("expected slug platform-team, got %v", payload["slug"])
	}
}

func TestDeleteSpaceRefusesWhenNotEmpty(t *testing.T) {
	ts := newTestServer(testConfig())
	ts.store.spaceDocumentCountFn = func(context.Context, string) (int, error) { return 3, nil }
	token := ts.token(t, "owner")

	rec := ts.request(t, http.MethodDelete, "/api/spaces/sp_1", token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["code"] != "SPACE_NOT_EMPTY" {
		t.Fatalf("unexpected error payload: %v", payload)
	}
}

func TestDeleteSpaceRequiresAdmin(t *testing.T) {
	ts := newTestServer(testConfig())
	token := ts.token(t, "editor")

	rec := ts.request(t, http.MethodDelete, "/api/spaces/sp_1", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for editor, got %d", rec.Code)
	}
}

func TestCreateDocumentInitialisesRepoAndIndex(t *testing.T) {
	ts := newTestServer(testConfig())
	token := ts.token(t, "editor")

	rec := ts.request(t, http.MethodPost, "/api/documents", token, map[string]string{
		"spaceId": "sp_1",
		"title":   "Payments Architecture",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	docID, _ := payload["id"].(string)
	if docID == "" {
		t.Fatalf("expected a document id, got %v", payload)
	}
	if len(ts.git.ensured) != 1 || ts.git.ensured[0] != docID {
		t.Fatalf("expected repo init for %s, got %v", docID, ts.git.ensured)
	}
	if _, ok := ts.search.docs[docID]; !ok {
		t.Fatalf("expected document indexed, have %v", ts.search.docs)
	}
}

func TestSaveContentCommitsOnlyOnChange(t *testing.T) {
	ts := newTestServer(testConfig())
	token := ts.token(t, "editor")

	head := gitrepo.Content{
		Title:  "Doc",
		Doc:    json.RawMessage(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hello"}]}]}`),
		Canvas: json.RawMessage(`{"objects":[],"connections":[]}`),
	}
	ts.git.headContentFn = func(string) (gitrepo.Content, store.CommitInfo, error) {
		return head, store.CommitInfo{Hash: "head123"}, nil
	}
	commits := 0
	ts.git.commitContentFn = func(_ string, content gitrepo.Content, author, message string) (store.CommitInfo, error) {
		commits++
		return store.CommitInfo{Hash: "new4567", Message: message, Author: author}, nil
	}

	// Same content, reformatted: no new commit.
	rec := ts.request(t, http.MethodPatch, "/api/documents/doc_1", token, map[string]any{
		"title":  "Doc",
		"doc":    json.RawMessage(`{"content":[{"content":[{"text":"hello","type":"text"}],"type":"paragraph"}],"type":"doc"}`),
		"canvas": json.RawMessage(`{"connections":[],"objects":[]}`),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if commits != 0 {
		t.Fatalf("expected no commit for a formatting-only save, got %d", commits)
	}

	rec = ts.request(t, http.MethodPatch, "/api/documents/doc_1", token, map[string]any{
		"title":  "Doc",
		"doc":    json.RawMessage(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"goodbye"}]}]}`),
		"canvas": json.RawMessage(`{"objects":[],"connections":[]}`),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if commits != 1 {
		t.Fatalf("expected one commit after a real change, got %d", commits)
	}

	indexed, ok := ts.search.docs["doc_1"]
	if !ok {
		t.Fatal("expected document re-indexed after save")
	}
	if !strings.Contains(indexed.Body, "goodbye") {
		t.Fatalf("expected index body to carry new text, got %q", indexed.Body)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	ts := newTestServer(testConfig())
	token := ts.token(t, "viewer")

	rec := ts.request(t, http.MethodGet, "/api/search", token, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	rec = ts.request(t, http.MethodGet, "/api/search?q=payments&type=task&limit=5", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(ts.search.queries) != 1 {
		t.Fatalf("expected one search call, got %d", len(ts.search.queries))
	}
	q := ts.search.queries[0]
	if q.Text != "payments" || string(q.FilterType) != "task" || q.Limit != 5 {
		t.Fatalf("unexpected query: %+v", q)
	}
}

func TestTaskStatusValidation(t *testing.T) {
	ts := newTestServer(testConfig())
	token := ts.token(t, "editor")

	rec := ts.request(t, http.MethodPut, "/api/tasks/task_1", token, map[string]string{"status": "SHIPPED"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	rec = ts.request(t, http.MethodPut, "/api/tasks/task_1", token, map[string]string{"status": "DONE"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if payload := decodeResponse(t, rec); payload["status"] != "DONE" {
		t.Fatalf("expected status DONE, got %v", payload)
	}
}

func TestGenerateRequiresSession(t *testing.T) {
	ts := newTestServer(testConfig())
	rec := ts.request(t, http.MethodPost, "/api/ai/generate", "", map[string]string{"prompt": "draw a web app"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["error"] != "Unauthorized" || len(payload) != 1 {
		t.Fatalf("expected bare unauthorized envelope, got %v", payload)
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	ts := newTestServer(testConfig())
	token := ts.token(t, "editor")

	rec := ts.request(t, http.MethodPost, "/api/ai/generate", token, map[string]string{"prompt": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["error"] != "Prompt is required" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestGenerateMissingAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.OpenAIAPIKey = ""
	ts := newTestServer(cfg)
	token := ts.token(t, "editor")

	rec := ts.request(t, http.MethodPost, "/api/ai/generate", token, map[string]string{"prompt": "draw a web app"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["success"] != false || payload["data"] != nil || payload["message"] != "OpenAI API key is missing." || payload["needsClarification"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestGenerateUpstreamError(t *testing.T) {
	ts := newTestServer(testConfig())
	ts.agent.generateFn = func(context.Context, ai.Request) (*ai.Result, error) {
		return nil, errors.New("connection refused")
	}
	token := ts.token(t, "editor")

	rec := ts.request(t, http.MethodPost, "/api/ai/generate", token, map[string]string{"prompt": "draw a web app"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["success"] != false || payload["message"] != "Failed to generate diagram" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	debugError, _ := payload["debugError"].(string)
	if !strings.Contains(debugError, "connection refused") {
		t.Fatalf("expected debugError to carry the upstream error, got %q", debugError)
	}
}

func TestGenerateReturnsDiagram(t *testing.T) {
	ts := newTestServer(testConfig())
	ts.agent.generateFn = func(_ context.Context, req ai.Request) (*ai.Result, error) {
		if req.Prompt != "draw a web app" {
			return nil, errors.New("unexpected prompt " + req.Prompt)
		}
		doc, err := diagram.TransformJSON([]byte(`{"objects":[{"text":"Web App"},{"text":"Postgres DB"}],"connections":[{"from":"node-0","to":"node-1"}]}`))
		if err != nil {
			return nil, err
		}
		return &ai.Result{Document: doc, Message: "Here is your diagram."}, nil
	}
	token := ts.token(t, "editor")

	rec := ts.request(t, http.MethodPost, "/api/ai/generate", token, map[string]any{
		"prompt": "draw a web app",
		"conversationHistory": []map[string]string{
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["success"] != true || payload["needsClarification"] != false {
		t.Fatalf("unexpected envelope: %v", payload)
	}
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected diagram data, got %v", payload["data"])
	}
	objects, _ := data["objects"].([]any)
	connections, _ := data["connections"].([]any)
	if len(objects) != 2 || len(connections) != 1 {
		t.Fatalf("expected 2 objects and 1 connection, got %d and %d", len(objects), len(connections))
	}
	if payload["message"] != "Here is your diagram." {
		t.Fatalf("unexpected message: %v", payload["message"])
	}
}

func TestGeneratePlainReplyHasNullData(t *testing.T) {
	ts := newTestServer(testConfig())
	ts.agent.generateFn = func(context.Context, ai.Request) (*ai.Result, error) {
		return &ai.Result{Message: "Could you tell me more about the system?"}, nil
	}
	token := ts.token(t, "editor")

	rec := ts.request(t, http.MethodPost, "/api/ai/generate", token, map[string]string{"prompt": "make it better"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["success"] != true {
		t.Fatalf("expected success envelope, got %v", payload)
	}
	if payload["data"] != nil {
		t.Fatalf("expected null data for a plain reply, got %v", payload["data"])
	}
}

func TestGenerateForwardsCanvasContext(t *testing.T) {
	ts := newTestServer(testConfig())
	var got *diagram.Document
	ts.agent.generateFn = func(_ context.Context, req ai.Request) (*ai.Result, error) {
		got = req.Canvas
		return &ai.Result{Message: "noted"}, nil
	}
	token := ts.token(t, "editor")

	rec := ts.request(t, http.MethodPost, "/api/ai/generate", token, map[string]any{
		"prompt": "add a cache",
		"canvasContext": map[string]any{
			"objects":     []map[string]any{{"id": "web", "text": "Web App"}},
			"connections": []map[string]any{},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got == nil || len(got.Objects) != 1 || got.Objects[0].ID != "web" {
		t.Fatalf("expected canvas context forwarded to the agent, got %+v", got)
	}
}

func TestGenerateDeniedForViewer(t *testing.T) {
	ts := newTestServer(testConfig())
	token := ts.token(t, "viewer")

	rec := ts.request(t, http.MethodPost, "/api/ai/generate", token, map[string]string{"prompt": "draw a web app"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
