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

package mock

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/poiesic/concierge/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.EmbedText(ctx, "tax credits")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "tax credits")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimensions)
	assert.Equal(t, 2, m.CallCount())

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-4)
}

func TestMockEmbedder_CustomFuncAndReset(t *testing.T) {
	m := NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("down")
	})

	_, err := m.EmbedText(context.Background(), "x")
	assert.Error(t, err)

	m.Reset()
	assert.Equal(t, 0, m.CallCount())

	m.Dimensions = 8
	vecs, err := m.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 8)
}

func TestMockLanguageModel_Rules(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockLanguageModel().
		WithReply("Classify", "conversational").
		WithError("Refine", boom)
	ctx := context.Background()

	out, err := m.Generate(ctx, ai.Prompt{Human: "Classify this"})
	require.NoError(t, err)
	assert.Equal(t, "conversational", out)

	_, err = m.Generate(ctx, ai.Prompt{System: "Refine please", Human: "x"})
	assert.ErrorIs(t, err, boom)

	out, err = m.Generate(ctx, ai.Prompt{Human: "anything else"})
	require.NoError(t, err)
	assert.Equal(t, DefaultReply, out)

	assert.Equal(t, 3, m.CallCount())
	assert.Equal(t, 1, m.CallsContaining("Classify"))
	assert.Equal(t, "anything else", m.Prompts()[2].Human)
}

func TestMockLanguageModel_Concurrent(t *testing.T) {
	m := NewMockLanguageModel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Generate(context.Background(), ai.Prompt{Human: "hi"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)

	assert.Same(t, p.GetMockEmbedder(), p.Embedder())
	assert.Same(t, p.GetMockLanguageModel(), p.LanguageModel())
	require.NoError(t, p.Close())
	assert.True(t, p.Closed())
}
