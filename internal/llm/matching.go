package llm

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"pdfworkflow/internal/logging"
	"pdfworkflow/pkg/models"
)

const matchSystemPrompt = "Tu es un assistant spécialisé dans la correspondance entre des intitulés de postes de CV " +
	"et la nomenclature ROME des métiers. Tu privilégies les métiers génériques quand le contexte est insuffisant."

const matchPromptTemplate = `Voici un intitulé de poste extrait d'un CV : "%s" dans l'entreprise "%s" avec la description de poste suivante: "%s"

Je dois trouver le métier correspondant dans la nomenclature ROME (Répertoire Opérationnel des Métiers et des Emplois).
Voici les métiers disponibles dans la base ROME:

%s

Trouve le métier qui correspond le mieux à ce poste. En cas de doute entre plusieurs métiers, choisis celui qui a la portée la plus large.
Réponds au format JSON avec les champs suivants:
- id: l'identifiant du métier
- code_rome: le code ROME du métier
- libelle: le libellé du métier
- score: un score de confiance entre 0 et 1 (1 étant une correspondance parfaite)`

// Metier is one entry of the ROME occupation reference.
type Metier struct {
	ID       string
	CodeRome string
	Libelle  string
}

// LoadMetiers reads the ROME reference CSV. The file must carry a header
// with `code_rome` and `libelle_rome` columns; rows without a code are
// skipped.
func LoadMetiers(path string) ([]Metier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open occupation reference: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read occupation reference header: %w", err)
	}
	codeCol, libelleCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "code_rome":
			codeCol = i
		case "libelle_rome":
			libelleCol = i
		}
	}
	if codeCol < 0 || libelleCol < 0 {
		return nil, fmt.Errorf("occupation reference is missing code_rome/libelle_rome columns")
	}

	var metiers []Metier
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		if codeCol >= len(record) || libelleCol >= len(record) {
			continue
		}
		code := strings.TrimSpace(record[codeCol])
		if code == "" {
			continue
		}
		metiers = append(metiers, Metier{
			ID:       code,
			CodeRome: code,
			Libelle:  strings.TrimSpace(record[libelleCol]),
		})
	}
	if len(metiers) == 0 {
		return nil, fmt.Errorf("occupation reference %s contains no usable rows", path)
	}
	return metiers, nil
}

// Matcher matches CV positions against the ROME occupation reference through
// the chat-completions endpoint. It satisfies pipeline.JobMatcher.
type Matcher struct {
	client  *Client
	metiers []Metier
	logger  *logging.Logger
}

// NewMatcher creates a Matcher over an already-loaded reference.
func NewMatcher(client *Client, metiers []Metier, logger *logging.Logger) *Matcher {
	return &Matcher{client: client, metiers: metiers, logger: logger}
}

// MatchJobs matches each professional experience's position against the
// reference, one model call per position. Positions without a title are
// skipped; a failed call yields an empty match list for that position rather
// than failing the whole batch.
func (m *Matcher) MatchJobs(ctx context.Context, experiences []models.Experience) ([]models.PosteMatches, error) {
	matches := make([]models.PosteMatches, 0, len(experiences))
	for _, exp := range experiences {
		if exp.Poste == "" {
			continue
		}
		match, err := m.matchOne(ctx, exp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Warn("Occupation matching failed for position", "poste", exp.Poste, "error", err)
			matches = append(matches, models.PosteMatches{Poste: exp.Poste, Matches: []models.MetierMatch{}})
			continue
		}
		entry := models.PosteMatches{Poste: exp.Poste, Matches: []models.MetierMatch{}}
		if match != nil {
			entry.Matches = append(entry.Matches, *match)
		}
		matches = append(matches, entry)
	}
	return matches, nil
}

func (m *Matcher) matchOne(ctx context.Context, exp models.Experience) (*models.MetierMatch, error) {
	var reference strings.Builder
	for i, metier := range m.metiers {
		fmt.Fprintf(&reference, "%d. ID: %s, Code ROME: %s, Libellé: %s\n", i+1, metier.ID, metier.CodeRome, metier.Libelle)
	}

	body, err := json.Marshal(chatRequest{
		Model: m.client.model,
		Messages: []chatMessage{
			{Role: "system", Content: matchSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(matchPromptTemplate, exp.Poste, exp.Entreprise, exp.Description, reference.String())},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0.1,
		MaxTokens:      2000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	resp, err := m.client.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.client.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if m.client.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+m.client.apiKey)
		}
		return m.client.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("matching request rejected: HTTP %d", resp.StatusCode)
	}

	var payload chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(payload.Choices) == 0 || payload.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("matching response is empty")
	}

	return parseMetierMatch([]byte(payload.Choices[0].Message.Content))
}

// parseMetierMatch validates a single match object. A response missing any
// required field is treated as no match, since the model is told to return
// only well-formed matches.
func parseMetierMatch(raw []byte) (*models.MetierMatch, error) {
	var aux struct {
		ID       *string  `json:"id"`
		CodeRome *string  `json:"code_rome"`
		Libelle  *string  `json:"libelle"`
		Score    *float64 `json:"score"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return nil, fmt.Errorf("matching response is not a JSON object: %w", err)
	}
	if aux.ID == nil || aux.CodeRome == nil || aux.Libelle == nil || aux.Score == nil {
		return nil, nil
	}
	return &models.MetierMatch{
		ID:       *aux.ID,
		CodeRome: *aux.CodeRome,
		Libelle:  *aux.Libelle,
		Score:    *aux.Score,
	}, nil
}
