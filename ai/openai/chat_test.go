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

package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/concierge/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newChatServer(t *testing.T, reply string, choices bool, seen *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(seen))

		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   seen.Model,
			"choices": []any{},
		}
		if choices {
			resp["choices"] = []any{map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestChatModel_Generate(t *testing.T) {
	var seen chatRequest
	srv := newChatServer(t, "  occams_query\n", true, &seen)
	defer srv.Close()

	lm, err := NewChatModel(ai.NewConfig(ai.WithHost(srv.URL), ai.WithChatModel("test-model")))
	require.NoError(t, err)

	out, err := lm.Generate(context.Background(), ai.Prompt{System: "be brief", Human: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "occams_query", out)

	assert.Equal(t, "test-model", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "be brief", seen.Messages[0].Content)
	assert.Equal(t, "user", seen.Messages[1].Role)
	assert.Equal(t, "hello", seen.Messages[1].Content)
}

func TestChatModel_GenerateWithoutSystem(t *testing.T) {
	var seen chatRequest
	srv := newChatServer(t, "hi", true, &seen)
	defer srv.Close()

	lm, err := NewChatModel(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)

	_, err = lm.Generate(context.Background(), ai.Prompt{Human: "hello"})
	require.NoError(t, err)
	require.Len(t, seen.Messages, 1)
	assert.Equal(t, "user", seen.Messages[0].Role)
}

func TestChatModel_EmptyChoices(t *testing.T) {
	var seen chatRequest
	srv := newChatServer(t, "", false, &seen)
	defer srv.Close()

	lm, err := NewChatModel(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)

	_, err = lm.Generate(context.Background(), ai.Prompt{Human: "hello"})
	assert.Error(t, err)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(&ai.Config{})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(ai.DefaultConfig())
	require.NoError(t, err)
	defer provider.Close()

	assert.NotNil(t, provider.Embedder())
	assert.NotNil(t, provider.LanguageModel())
}
