package generateanswer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agri-evidence-workers/internal/common/logger"
	"agri-evidence-workers/internal/evidence"
)

// ==========================
// Test Helpers
// ==========================

func createTestConfig(baseURL string) *Config {
	cfg := LoadConfig()
	cfg.GenAIBaseURL = baseURL
	cfg.APIKey = "test-key"
	cfg.Model = "agri-llm"
	cfg.Timeout = 2 * time.Second
	return cfg
}

func createFormatter() *evidence.CitationFormatter {
	return evidence.NewCitationFormatter(evidence.DefaultTrustTables(), evidence.DefaultConfig())
}

func testInput() *Input {
	return &Input{
		Query:    "When should I plant maize?",
		District: "Mazowe",
		Sources: []evidence.Source{
			{
				Content:  "Farmers should plant maize from October to early November.",
				Metadata: evidence.SourceMetadata{Filename: "agritex_maize_guide.pdf", Page: "4"},
			},
			{
				Content:  "Farmers should wait for 50mm of rainfall before planting maize.",
				Metadata: evidence.SourceMetadata{Filename: "icrisat_rainfall.pdf"},
			},
		},
		Reconciliation: &evidence.ReconciliationReport{
			Summary: "Found 1 disagreement(s) across sources (0 high severity, 1 moderate).",
			ConsensusRecommendations: []evidence.ConsensusEntry{
				{Topic: evidence.TopicPlantingTime, Confidence: evidence.ConsensusModerate, Recommendation: "Plant after 50mm of rain."},
			},
		},
	}
}

// ==========================
// Execute
// ==========================

func TestExecute_Success(t *testing.T) {
	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(generateResponse{Text: "  Plant after the first 50mm of rain [1] [2].  ", Model: "agri-llm"})
	}))
	defer srv.Close()

	h := NewHandler(createTestConfig(srv.URL), createFormatter(), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "Plant after the first 50mm of rain [1] [2].", out.Answer)
	assert.Equal(t, "agri-llm", out.Model)
	assert.True(t, out.Grounded)

	assert.Equal(t, "agri-llm", captured.Model)
	assert.Equal(t, 1024, captured.MaxTokens)
	assert.Contains(t, captured.Prompt, "[1] AGRITEX – Agritex Maize Guide, p. 4")
	assert.Contains(t, captured.Prompt, "[2] ICRISAT – Icrisat Rainfall")
	assert.Contains(t, captured.Prompt, "planting_time (moderate confidence): Plant after 50mm of rain.")
	assert.Contains(t, captured.Prompt, "[LOCATION]\nMazowe")
	assert.Contains(t, captured.Prompt, "Refer farmers to AGRITEX")
	assert.Contains(t, captured.Prompt, "[USER QUESTION]\nWhen should I plant maize?")
}

func TestExecute_NoSourcesSkipsModel(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	h := NewHandler(createTestConfig(srv.URL), createFormatter(), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Query: "cassava spacing"})
	require.NoError(t, err)
	assert.False(t, out.Grounded)
	assert.Equal(t, noEvidenceAnswer, out.Answer)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestExecute_EmptyModelText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(generateResponse{Text: "   "})
	}))
	defer srv.Close()

	h := NewHandler(createTestConfig(srv.URL), createFormatter(), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, emptyAnswer, out.Answer)
}

func TestExecute_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Text: "ok"})
	}))
	defer srv.Close()

	h := NewHandler(createTestConfig(srv.URL), createFormatter(), logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Answer)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestExecute_Errors(t *testing.T) {
	t.Run("client error is not retried", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		h := NewHandler(createTestConfig(srv.URL), createFormatter(), logger.NewTestLogger(t))
		_, err := h.Execute(context.Background(), testInput())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrLLMSynthesisFailed))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		}))
		defer srv.Close()

		h := NewHandler(createTestConfig(srv.URL), createFormatter(), logger.NewTestLogger(t))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := h.Execute(ctx, testInput())
		assert.True(t, errors.Is(err, ErrLLMTimeout))
	})

	t.Run("empty query", func(t *testing.T) {
		h := NewHandler(createTestConfig("http://unused"), createFormatter(), logger.NewNoOpLogger())
		_, err := h.Execute(context.Background(), &Input{Query: " "})
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "a b c", excerpt("a\n  b\tc"))

	long := make([]rune, maxExcerptRunes+10)
	for i := range long {
		long[i] = 'x'
	}
	got := excerpt(string(long))
	assert.Len(t, []rune(got), maxExcerptRunes+3)
}
