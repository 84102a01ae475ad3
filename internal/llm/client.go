// Package llm calls an OpenAI-compatible chat-completions endpoint to
// produce the structured analysis enrichment.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pdfworkflow/internal/logging"
	"pdfworkflow/internal/pipeline"
	"pdfworkflow/pkg/models"
)

const systemPrompt = "Tu es un assistant spécialisé dans l'extraction d'informations structurées à partir de CV. " +
	"Tu dois extraire les formations et les expériences professionnelles et les retourner au format JSON selon un schéma précis."

const userPromptTemplate = `Voici le texte d'un CV:

%s

Extrais les informations suivantes du CV et retourne-les au format JSON selon ce schéma précis:

{
  "formations": [
    {
      "periode": "string",
      "diplome": "string",
      "etablissement": "string",
      "description": "string"
    }
  ],
  "experiences_professionnelles": [
    {
      "periode": "string",
      "poste": "string",
      "entreprise": "string",
      "description": "string",
      "competences": ["string", "string"]
    }
  ]
}

Tous les champs sont obligatoires. Si une information n'est pas disponible, utilise une chaîne vide ou un tableau vide pour les compétences.
Assure-toi que le format JSON est strictement respecté et que toutes les clés requises sont présentes.`

// Client calls an OpenAI-compatible chat completion endpoint and validates
// the response against the fixed analysis schema. It satisfies
// pipeline.Analyzer.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxAttempts int
	httpClient  *http.Client
	logger      *logging.Logger
}

// NewClient creates a Client. maxAttempts <= 0 selects the default of 3.
func NewClient(baseURL, apiKey, model string, maxAttempts int, logger *logging.Logger) *Client {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		maxAttempts: maxAttempts,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		logger:      logger,
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends the extracted text with the schema-constraining prompt and
// returns the validated structured analysis. The response is untrusted and
// is validated before use.
func (c *Client) Analyze(ctx context.Context, text string) (*models.StructuredAnalysis, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptTemplate, text)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0.1,
		MaxTokens:      2000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pipeline.ExternalServiceError("analysis request rejected",
			fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if payload.Error != nil {
		return nil, pipeline.ExternalServiceError("analysis request failed",
			fmt.Errorf("%s", payload.Error.Message))
	}
	if len(payload.Choices) == 0 || payload.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("analysis response is empty")
	}

	analysis, err := models.ParseStructuredAnalysis([]byte(payload.Choices[0].Message.Content))
	if err != nil {
		return nil, fmt.Errorf("analysis response failed schema validation: %w", err)
	}
	return analysis, nil
}
