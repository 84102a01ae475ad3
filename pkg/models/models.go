package models

// Document is an uploaded PDF as received at the boundary. It is immutable
// once created: the extraction stage reads it, nothing mutates it.
type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
}

// ExtractionResult is the output of the extraction stage.
type ExtractionResult struct {
	FullText  string            `json:"full_text"`
	PageCount int               `json:"page_count"`
	Metadata  map[string]string `json:"metadata"`
}

// TransformationResult is the output of the transformation stage. The
// statistics are deterministic for a given ExtractionResult; StructuredAnalysis
// and MetiersMatches are best-effort enrichment and may be absent on a
// successful run.
type TransformationResult struct {
	Filename           string              `json:"original_filename"`
	WordCount          int                 `json:"word_count"`
	CharacterCount     int                 `json:"character_count"`
	PageCount          int                 `json:"page_count"`
	KeywordFrequencies map[string]int      `json:"keyword_frequencies"`
	TopKeywords        []string            `json:"top_keywords"`
	StructuredAnalysis *StructuredAnalysis `json:"structured_analysis,omitempty"`
	MetiersMatches     []PosteMatches      `json:"metiers_matches,omitempty"`
}

// MetierMatch is one ROME reference occupation matched to a CV position,
// with the model's confidence score in [0, 1].
type MetierMatch struct {
	ID       string  `json:"id"`
	CodeRome string  `json:"code_rome"`
	Libelle  string  `json:"libelle"`
	Score    float64 `json:"score"`
}

// PosteMatches pairs one position title from the structured analysis with
// its reference matches. Matches may be empty when no occupation fits.
type PosteMatches struct {
	Poste   string        `json:"poste"`
	Matches []MetierMatch `json:"matches"`
}

// LoadReceipt is the terminal artifact of a successful run.
type LoadReceipt struct {
	DestinationPath string `json:"destination_path"`
	BytesWritten    int    `json:"bytes_written"`
}
