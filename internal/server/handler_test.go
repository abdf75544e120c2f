package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/easywatch/internal/engine"
	"github.com/ChamsBouzaiene/easywatch/internal/providers"
	"github.com/ChamsBouzaiene/easywatch/internal/server"
	"github.com/ChamsBouzaiene/easywatch/internal/session"
)

func newTestServer(t *testing.T) (http.Handler, session.Store) {
	t.Helper()

	store := session.NewMemoryStore()
	orch, err := engine.NewOrchestrator(
		providers.NewMockLLM(),
		engine.NewToolRegistry(),
		store,
		engine.DefaultTurnConfig("mock-model"),
	)
	require.NoError(t, err)
	return server.NewServer(orch, store), store
}

func do(t *testing.T, h http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(server.PrincipalHeader, user)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRootAndHealthz(t *testing.T) {
	h, _ := newTestServer(t)

	w := do(t, h, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Welcome to the Youtube Assistant API", decode[map[string]string](t, w)["message"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatThenHistory(t *testing.T) {
	h, _ := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/chat", "alice", map[string]string{
		"prompt": "hello there", "session_id": "s1", "tag": "science",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[map[string]any](t, w)
	assert.Equal(t, "You said: hello there", out["response"])
	assert.Equal(t, "s1", out["session_id"])

	w = do(t, h, http.MethodGet, "/api/sessions/s1/messages?tag=science", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}](t, w)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "user", hist.Messages[0].Role)
	assert.Equal(t, "assistant", hist.Messages[1].Role)

	w = do(t, h, http.MethodGet, "/api/sessions", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sessions := decode[map[string][]session.Session](t, w)["sessions"]
	require.Len(t, sessions, 1)
	assert.Equal(t, "science", sessions[0].Tag)
}

func TestHistoryAccessDenied(t *testing.T) {
	h, _ := newTestServer(t)
	w := do(t, h, http.MethodPost, "/api/chat", "alice", map[string]string{"prompt": "hi", "session_id": "s1"})
	require.Equal(t, http.StatusOK, w.Code)

	for _, tc := range []struct{ name, path, user string }{
		{"other principal", "/api/sessions/s1/messages", "mallory"},
		{"guest", "/api/sessions/s1/messages", ""},
		{"wrong tag", "/api/sessions/s1/messages?tag=music", "alice"},
		{"missing session", "/api/sessions/nope/messages", "alice"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tc.path, tc.user, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "not found or access denied", decode[map[string]string](t, w)["error"])
		})
	}

	// writing into someone else's session is denied the same way
	w = do(t, h, http.MethodPost, "/api/chat", "mallory", map[string]string{"prompt": "hi", "session_id": "s1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatValidation(t *testing.T) {
	h, _ := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/chat", "", map[string]string{"prompt": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuestChatGetsSessionID(t *testing.T) {
	h, store := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/chat", "", map[string]string{"prompt": "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	id, _ := decode[map[string]any](t, w)["session_id"].(string)
	require.NotEmpty(t, id)

	sess, err := store.GetSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, session.GuestOwner, sess.OwnerID)
	assert.Equal(t, session.DefaultTag, sess.Tag)
}

func TestCollections(t *testing.T) {
	h, _ := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/collections", "alice", map[string]string{"name": "Space", "color": "#112233"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[session.Collection](t, w)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.OwnerID)

	w = do(t, h, http.MethodPost, "/api/collections", "alice", map[string]string{"color": "#000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/api/collections", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]session.Collection](t, w)["collections"], 1)

	w = do(t, h, http.MethodGet, "/api/collections", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[map[string][]session.Collection](t, w)["collections"])
}

type failingRunner struct{ err error }

func (f failingRunner) RunTurn(context.Context, engine.TurnInput) (*engine.TurnOutput, error) {
	return nil, f.err
}

func TestChatErrorMapping(t *testing.T) {
	store := session.NewMemoryStore()

	tests := []struct {
		err  error
		code int
		msg  string
	}{
		{engine.ErrAccessDenied, http.StatusNotFound, "not found or access denied"},
		{&engine.TurnError{Err: engine.ErrUpstreamTimeout, State: engine.StateModelQueried, Operation: "llm_call"}, http.StatusGatewayTimeout, "upstream timeout"},
		{errors.New("firestore: permission denied on projects/secret"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		h := server.NewServer(failingRunner{err: tt.err}, store)
		w := do(t, h, http.MethodPost, "/api/chat", "", map[string]string{"prompt": "hi"})
		assert.Equal(t, tt.code, w.Code)
		assert.Equal(t, tt.msg, decode[map[string]string](t, w)["error"])
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t)
	w := do(t, h, http.MethodOptions, "/api/chat", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
