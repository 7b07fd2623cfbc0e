package humanizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/perepys/internal/ollama"
	"github.com/valpere/perepys/internal/pipeline"
)

var _ pipeline.Humanizer = (*Model)(nil)

type mockGenerator struct {
	calls   atomic.Int32
	prompts []string
	reply   func(prompt string) (string, error)
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	m.prompts = append(m.prompts, prompt)
	return m.reply(prompt)
}

// textOf pulls the TEXT block back out of a rewrite prompt.
func textOf(prompt string) string {
	start := strings.Index(prompt, "TEXT:\n") + len("TEXT:\n")
	end := strings.Index(prompt, "\n\nOutput ONLY")
	return prompt[start:end]
}

func TestModel_OneRequestPerPass(t *testing.T) {
	gen := &mockGenerator{reply: func(p string) (string, error) {
		return textOf(p) + "+", nil
	}}
	m := NewModel(gen, "academic", "medical", nil)

	got, err := m.Humanize(context.Background(), "Base text", 3)
	require.NoError(t, err)
	assert.Equal(t, "Base text+++", got)
	assert.Equal(t, int32(3), gen.calls.Load())

	assert.NotContains(t, gen.prompts[0], "already been revised")
	assert.Contains(t, gen.prompts[1], "already been revised")
	assert.Contains(t, gen.prompts[0], "Medical (clinical papers, medical research)")
	assert.Contains(t, gen.prompts[0], "Do not use contractions")
}

func TestModel_CleansOutput(t *testing.T) {
	gen := &mockGenerator{reply: func(string) (string, error) {
		return "<think>plan</think>Here's the rewritten text: \"Cleaner prose.\"", nil
	}}
	m := NewModel(gen, "balanced", "technical", nil)

	got, err := m.Humanize(context.Background(), "Raw prose.", 1)
	require.NoError(t, err)
	assert.Equal(t, "Cleaner prose.", got)
}

func TestModel_ProtectsSpans(t *testing.T) {
	gen := &mockGenerator{reply: func(p string) (string, error) {
		return "Rewritten, see " + "[PH0]" + " and [PH1].", nil
	}}
	m := NewModel(gen, "academic", "scientific", nil)

	got, err := m.Humanize(context.Background(), "Read https://example.org and [4].", 1)
	require.NoError(t, err)
	assert.Equal(t, "Rewritten, see https://example.org and [4].", got)
	assert.Contains(t, gen.prompts[0], "[PHn]")
	assert.NotContains(t, textOf(gen.prompts[0]), "https://")
}

func TestModel_DroppedSpanFails(t *testing.T) {
	gen := &mockGenerator{reply: func(string) (string, error) {
		return "The citation vanished.", nil
	}}
	m := NewModel(gen, "academic", "academic", nil)

	_, err := m.Humanize(context.Background(), "As shown in [2].", 1)
	assert.Error(t, err)
}

func TestModel_EmptyRewriteFails(t *testing.T) {
	gen := &mockGenerator{reply: func(string) (string, error) {
		return "<thinking>never finished", nil
	}}
	m := NewModel(gen, "academic", "academic", nil)

	_, err := m.Humanize(context.Background(), "Some text.", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass 1")
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestModel_GeneratorError(t *testing.T) {
	cause := errors.New("connection refused")
	gen := &mockGenerator{reply: func(string) (string, error) { return "", cause }}
	m := NewModel(gen, "academic", "academic", nil)

	_, err := m.Humanize(context.Background(), "Some text.", 1)
	assert.ErrorIs(t, err, cause)
}

func TestModel_WithOllamaServer(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "qwen2.5:3b" {
			t.Errorf("expected model 'qwen2.5:3b', got %q", req.Model)
		}
		json.NewEncoder(w).Encode(map[string]string{"response": "Humanized text."})
	}))
	defer server.Close()

	m := NewModel(ollama.NewClient(server.URL, "qwen2.5:3b", time.Second), "professional", "technical", nil)
	got, err := m.Humanize(context.Background(), "Machine text.", 2)
	require.NoError(t, err)
	assert.Equal(t, "Humanized text.", got)
	assert.Equal(t, int32(2), requests.Load())
}

func TestModel_ChunksLongText(t *testing.T) {
	gen := &mockGenerator{reply: func(p string) (string, error) {
		return strings.ToUpper(textOf(p)), nil
	}}
	m := NewModel(gen, "balanced", "academic", nil).WithChunkChars(30)

	got, err := m.Humanize(context.Background(), "First paragraph here.\n\nSecond paragraph here.", 1)
	require.NoError(t, err)
	assert.Equal(t, "FIRST PARAGRAPH HERE.\n\nSECOND PARAGRAPH HERE.", got)

	require.Len(t, gen.prompts, 2)
	assert.NotContains(t, gen.prompts[0], "PRECEDING TEXT")
	assert.Contains(t, gen.prompts[1], "PRECEDING TEXT")
	assert.Contains(t, gen.prompts[1], "FIRST PARAGRAPH HERE.")
	assert.Equal(t, "Second paragraph here.", textOf(gen.prompts[1]))
}

func TestModel_ChunkingCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &mockGenerator{reply: func(p string) (string, error) {
		cancel()
		return textOf(p), nil
	}}
	m := NewModel(gen, "balanced", "academic", nil).WithChunkChars(30)

	_, err := m.Humanize(ctx, "First paragraph here.\n\nSecond paragraph here.", 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), gen.calls.Load())
}
