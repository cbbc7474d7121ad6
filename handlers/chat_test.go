package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartcalendar/models"
	ai "smartcalendar/services/intelligence"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInterpreter struct {
	turns    []string
	sessions []string
	reset    string
	resetErr error
	history  []models.ChatLog
}

func (f *fakeInterpreter) Turn(_ context.Context, utterance, sessionID string) ai.TurnResult {
	f.turns = append(f.turns, utterance)
	f.sessions = append(f.sessions, sessionID)
	return ai.TurnResult{Reply: "ok: " + utterance, Action: models.ActionReply}
}

func (f *fakeInterpreter) Reset(_ context.Context, sessionID string) error {
	f.reset = sessionID
	return f.resetErr
}

func (f *fakeInterpreter) History(_ context.Context, sessionID string) ([]models.ChatLog, error) {
	return f.history, nil
}

func newChatRouter(f *fakeInterpreter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewChatHandler(f)
	r := gin.New()
	r.POST("/api/chat/message", h.SendMessage)
	r.POST("/api/chat/clear", h.ClearContext)
	r.GET("/api/chat/historico", h.History)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendMessage(t *testing.T) {
	f := &fakeInterpreter{}
	w := do(newChatRouter(f), http.MethodPost, "/api/chat/message", `{"message":"oi","sessionId":"s1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok: oi", resp.Message)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, models.ActionReply, resp.Action)
	assert.Equal(t, []string{"s1"}, f.sessions)
}

func TestSendMessageGeneratesSession(t *testing.T) {
	f := &fakeInterpreter{}
	w := do(newChatRouter(f), http.MethodPost, "/api/chat/message", `{"message":"oi"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, resp.SessionID, f.sessions[0])
}

func TestSendMessageRequiresMessage(t *testing.T) {
	f := &fakeInterpreter{}
	r := newChatRouter(f)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/chat/message", `{"message":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/chat/message", `not json`).Code)
	assert.Empty(t, f.turns)
}

func TestClearContext(t *testing.T) {
	f := &fakeInterpreter{}
	r := newChatRouter(f)

	w := do(r, http.MethodPost, "/api/chat/clear", `{"sessionId":"s9"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s9", f.reset)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/chat/clear", `{}`).Code)

	f.resetErr = errors.New("redis down")
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodPost, "/api/chat/clear", `{"sessionId":"s9"}`).Code)
}

func TestChatHistory(t *testing.T) {
	f := &fakeInterpreter{history: []models.ChatLog{{SessionID: "s1", Sender: models.SenderUser, Text: "oi"}}}
	r := newChatRouter(f)

	w := do(r, http.MethodGet, "/api/chat/historico?sessionId=s1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.ChatLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "oi", logs[0].Text)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/chat/historico", "").Code)
}
