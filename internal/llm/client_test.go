package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfworkflow/internal/logging"
	"pdfworkflow/internal/pipeline"
)

const validAnalysisJSON = `{
	"formations": [
		{
			"periode": "2015-2018",
			"diplome": "Licence Informatique",
			"etablissement": "Universite de Lyon",
			"description": "Programmation et bases de donnees"
		}
	],
	"experiences_professionnelles": [
		{
			"periode": "2019-2023",
			"poste": "Developpeuse",
			"entreprise": "Acme",
			"description": "Services web",
			"competences": ["go", "sql"]
		}
	]
}`

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		if assert.NotNil(t, req.ResponseFormat) {
			assert.Equal(t, "json_object", req.ResponseFormat.Type)
		}
		assert.Len(t, req.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(chatCompletion(validAnalysisJSON)))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o-mini", 1, logging.NewLogger())

	analysis, err := client.Analyze(context.Background(), "cv text")
	require.NoError(t, err)
	require.Len(t, analysis.Formations, 1)
	assert.Equal(t, "Licence Informatique", analysis.Formations[0].Diplome)
	require.Len(t, analysis.ExperiencesProfessionnelles, 1)
	assert.Equal(t, []string{"go", "sql"}, analysis.ExperiencesProfessionnelles[0].Competences)
}

func TestAnalyzeSchemaInvalidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Well-formed JSON that does not match the expected schema.
		assert.NoError(t, json.NewEncoder(w).Encode(chatCompletion(`{"formations": []}`)))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o-mini", 1, logging.NewLogger())

	_, err := client.Analyze(context.Background(), "cv text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
}

func TestAnalyzeEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{"choices": []any{}}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o-mini", 1, logging.NewLogger())

	_, err := client.Analyze(context.Background(), "cv text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestAnalyzeRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.NoError(t, json.NewEncoder(w).Encode(chatCompletion(validAnalysisJSON)))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o-mini", 2, logging.NewLogger())

	analysis, err := client.Analyze(context.Background(), "cv text")
	require.NoError(t, err)
	assert.NotNil(t, analysis)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnalyzeExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o-mini", 2, logging.NewLogger())

	_, err := client.Analyze(context.Background(), "cv text")
	require.Error(t, err)
	kind, ok := pipeline.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, pipeline.KindExternalService, kind)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnalyzeNonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o-mini", 3, logging.NewLogger())

	_, err := client.Analyze(context.Background(), "cv text")
	require.Error(t, err)
	kind, ok := pipeline.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, pipeline.KindExternalService, kind)
	// A 401 is not retried.
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnalyzeContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "gpt-4o-mini", 3, logging.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Analyze(ctx, "cv text")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffCapped(t *testing.T) {
	assert.Equal(t, initialBackoff, backoffFor(0))
	assert.Equal(t, 2*initialBackoff, backoffFor(1))
	assert.Equal(t, maxBackoff, backoffFor(10))
}
