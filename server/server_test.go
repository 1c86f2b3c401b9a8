// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/concierge/config"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeService struct {
	mu        sync.Mutex
	chatErr   error
	chats     []chatRequest
	feedback  []feedbackRequest
	convs     map[string]*core.Conversation
	listErr   error
	lastLimit int
	deadline  bool
}

func (f *fakeService) Chat(ctx context.Context, message, sessionID string) (*core.AnswerResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.deadline = ctx.Deadline()
	if err := core.ValidateChatRequest(message, sessionID); err != nil {
		return nil, err
	}
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	f.chats = append(f.chats, chatRequest{Message: message, SessionID: sessionID})
	return &core.AnswerResult{
		Answer:      "answer to " + message,
		Sources:     []core.Source{{Title: "Tax", URL: "https://occams.example/tax"}},
		Suggestions: []string{"Next?"},
	}, nil
}

func (f *fakeService) RecordFeedback(ctx context.Context, query, answer, rating string) (*core.FeedbackRecord, error) {
	r, err := core.ParseRating(rating)
	if err != nil {
		return nil, err
	}
	record := &core.FeedbackRecord{Query: query, Answer: answer, Rating: r}
	if err := core.ValidateFeedback(record); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, feedbackRequest{Query: query, Answer: answer, Rating: rating})
	return record, nil
}

func (f *fakeService) Conversation(ctx context.Context, sessionID string) (*core.Conversation, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	conv, ok := f.convs[sessionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return conv, nil
}

func (f *fakeService) RecentConversations(ctx context.Context, limit int) ([]*core.ConversationSummary, error) {
	f.mu.Lock()
	f.lastLimit = limit
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return nil, nil
}

func newTestServer(svc Service, cfg config.ServerConfig) http.Handler {
	return New(svc, cfg).Handler()
}

func defaultServerConfig() config.ServerConfig {
	return config.ServerConfig{Addr: "127.0.0.1:0", RequestTimeout: time.Minute}
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeService{}, defaultServerConfig())
	rec := doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestChat(t *testing.T) {
	svc := &fakeService{}
	h := newTestServer(svc, defaultServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message": "Tax credits?", "sessionId": "s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result core.AnswerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "answer to Tax credits?", result.Answer)
	assert.Equal(t, []core.Source{{Title: "Tax", URL: "https://occams.example/tax"}}, result.Sources)
	assert.Equal(t, []string{"Next?"}, result.Suggestions)
	assert.True(t, svc.deadline, "request context must carry the timeout")
}

func TestChat_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing message", `{"sessionId": "s1"}`},
		{"blank message", `{"message": "   ", "sessionId": "s1"}`},
		{"missing session", `{"message": "hi"}`},
		{"malformed json", `{"message": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			h := newTestServer(svc, defaultServerConfig())

			rec := doJSON(t, h, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, msgChatRequired, decode(t, rec)["error"])
			assert.Empty(t, svc.chats)
		})
	}
}

func TestChat_InternalErrorHidesDetail(t *testing.T) {
	svc := &fakeService{chatErr: errors.New("badger: disk on fire")}
	h := newTestServer(svc, defaultServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message": "hi", "sessionId": "s1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgChatFailed, decode(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestChat_RateLimited(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 2}
	h := newTestServer(&fakeService{}, cfg)

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message": "hi", "sessionId": "s1"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/chat", `{"message": "hi", "sessionId": "s1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other routes are not limited
	rec = doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFeedback(t *testing.T) {
	svc := &fakeService{}
	h := newTestServer(svc, defaultServerConfig())

	rec := doJSON(t, h, http.MethodPost, "/api/feedback", `{"query": "q", "answer": "a", "rating": "positive"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, msgFeedbackThanks, body["message"])
	assert.Len(t, svc.feedback, 1)
}

func TestFeedback_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"neutral rating", `{"query": "q", "answer": "a", "rating": "neutral"}`, msgFeedbackRating},
		{"missing rating", `{"query": "q", "answer": "a"}`, msgFeedbackRating},
		{"missing query", `{"answer": "a", "rating": "negative"}`, msgFeedbackRequired},
		{"missing answer", `{"query": "q", "rating": "negative"}`, msgFeedbackRequired},
		{"malformed json", `not json`, msgFeedbackRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			h := newTestServer(svc, defaultServerConfig())

			rec := doJSON(t, h, http.MethodPost, "/api/feedback", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, decode(t, rec)["error"])
			assert.Empty(t, svc.feedback)
		})
	}
}

func TestConversation(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &fakeService{convs: map[string]*core.Conversation{
		"s1": {
			SessionID: "s1",
			Messages:  []*core.Message{{HumanText: "hi", AIText: "hello", Timestamp: ts}},
			CreatedAt: ts,
			UpdatedAt: ts,
		},
	}}
	h := newTestServer(svc, defaultServerConfig())

	rec := doJSON(t, h, http.MethodGet, "/api/conversations/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "s1", body["sessionId"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].(map[string]any)["human"])
	assert.Equal(t, "hello", messages[0].(map[string]any)["ai"])

	rec = doJSON(t, h, http.MethodGet, "/api/conversations/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, msgSessionNotFound, decode(t, rec)["error"])
}

func TestRecentConversations(t *testing.T) {
	svc := &fakeService{}
	h := newTestServer(svc, defaultServerConfig())

	rec := doJSON(t, h, http.MethodGet, "/api/conversations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{}, body["conversations"])
	assert.Equal(t, float64(0), body["total"])
	assert.Equal(t, defaultListLimit, svc.lastLimit)

	rec = doJSON(t, h, http.MethodGet, "/api/conversations?limit=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxListLimit, svc.lastLimit)

	for _, bad := range []string{"0", "-3", "ten"} {
		rec = doJSON(t, h, http.MethodGet, "/api/conversations?limit="+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	svc.listErr = errors.New("boom")
	rec = doJSON(t, h, http.MethodGet, "/api/conversations", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTimeoutMiddleware(t *testing.T) {
	engine := gin.New()
	engine.Use(Timeout(10 * time.Millisecond))
	engine.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": c.Request.Context().Err().Error()})
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, rec.Body.String(), "deadline exceeded")
}

func TestServe_GracefulShutdown(t *testing.T) {
	srv := New(&fakeService{}, defaultServerConfig())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := fmt.Sprintf("http://%s/api/chat", ln.Addr().String())
	require.Eventually(t, func() bool {
		resp, err := http.Post(url, "application/json", bytes.NewBufferString(`{"message":"hi","sessionId":"s"}`))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
