package models

import (
	"encoding/json"
	"fmt"
)

// StructuredAnalysis is the fixed schema the language-model service must
// produce. Field names follow the persisted contract and are not translated.
// Both arrays are required; each record's fields are required. An absent key
// is a schema violation, an empty value is not.
type StructuredAnalysis struct {
	Formations                  []Formation  `json:"formations"`
	ExperiencesProfessionnelles []Experience `json:"experiences_professionnelles"`
}

type Formation struct {
	Periode       string `json:"periode"`
	Diplome       string `json:"diplome"`
	Etablissement string `json:"etablissement"`
	Description   string `json:"description"`
}

type Experience struct {
	Periode     string   `json:"periode"`
	Poste       string   `json:"poste"`
	Entreprise  string   `json:"entreprise"`
	Description string   `json:"description"`
	Competences []string `json:"competences"`
}

// ParseStructuredAnalysis decodes raw JSON from the language-model service and
// validates it against the schema. The response is untrusted: every required
// key must be present, including empty competences arrays.
func ParseStructuredAnalysis(raw []byte) (*StructuredAnalysis, error) {
	var top struct {
		Formations                  *[]json.RawMessage `json:"formations"`
		ExperiencesProfessionnelles *[]json.RawMessage `json:"experiences_professionnelles"`
	}
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("analysis response is not a JSON object: %w", err)
	}
	if top.Formations == nil {
		return nil, fmt.Errorf("analysis response missing required field %q", "formations")
	}
	if top.ExperiencesProfessionnelles == nil {
		return nil, fmt.Errorf("analysis response missing required field %q", "experiences_professionnelles")
	}

	out := &StructuredAnalysis{
		Formations:                  make([]Formation, 0, len(*top.Formations)),
		ExperiencesProfessionnelles: make([]Experience, 0, len(*top.ExperiencesProfessionnelles)),
	}
	for i, rec := range *top.Formations {
		f, err := parseFormation(rec)
		if err != nil {
			return nil, fmt.Errorf("formations[%d]: %w", i, err)
		}
		out.Formations = append(out.Formations, *f)
	}
	for i, rec := range *top.ExperiencesProfessionnelles {
		e, err := parseExperience(rec)
		if err != nil {
			return nil, fmt.Errorf("experiences_professionnelles[%d]: %w", i, err)
		}
		out.ExperiencesProfessionnelles = append(out.ExperiencesProfessionnelles, *e)
	}
	return out, nil
}

func parseFormation(raw json.RawMessage) (*Formation, error) {
	var aux struct {
		Periode       *string `json:"periode"`
		Diplome       *string `json:"diplome"`
		Etablissement *string `json:"etablissement"`
		Description   *string `json:"description"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return nil, err
	}
	for name, v := range map[string]*string{
		"periode": aux.Periode, "diplome": aux.Diplome,
		"etablissement": aux.Etablissement, "description": aux.Description,
	} {
		if v == nil {
			return nil, fmt.Errorf("missing required field %q", name)
		}
	}
	return &Formation{
		Periode:       *aux.Periode,
		Diplome:       *aux.Diplome,
		Etablissement: *aux.Etablissement,
		Description:   *aux.Description,
	}, nil
}

func parseExperience(raw json.RawMessage) (*Experience, error) {
	var aux struct {
		Periode     *string   `json:"periode"`
		Poste       *string   `json:"poste"`
		Entreprise  *string   `json:"entreprise"`
		Description *string   `json:"description"`
		Competences *[]string `json:"competences"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return nil, err
	}
	for name, v := range map[string]*string{
		"periode": aux.Periode, "poste": aux.Poste,
		"entreprise": aux.Entreprise, "description": aux.Description,
	} {
		if v == nil {
			return nil, fmt.Errorf("missing required field %q", name)
		}
	}
	if aux.Competences == nil {
		return nil, fmt.Errorf("missing required field %q", "competences")
	}
	return &Experience{
		Periode:     *aux.Periode,
		Poste:       *aux.Poste,
		Entreprise:  *aux.Entreprise,
		Description: *aux.Description,
		Competences: *aux.Competences,
	}, nil
}
