package pipeline

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"pdfworkflow/internal/logging"
	"pdfworkflow/pkg/models"
)

const defaultTopKeywords = 10

// Analyzer produces a structured analysis of extracted text by calling an
// external language-model service. Implementations must validate the response
// against the fixed schema before returning it.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*models.StructuredAnalysis, error)
}

// JobMatcher matches the positions of a structured analysis against a
// reference occupation list through an external service.
type JobMatcher interface {
	MatchJobs(ctx context.Context, experiences []models.Experience) ([]models.PosteMatches, error)
}

// Options carries per-run transformation configuration.
type Options struct {
	// Analyze requests structured analysis through the external
	// language-model service.
	Analyze bool
}

// Transformer computes text statistics and optionally enriches the result
// with a structured analysis and occupation matches. Statistics are
// deterministic; enrichment is best-effort and degrades to absence when the
// external service fails.
type Transformer struct {
	analyzer    Analyzer
	matcher     JobMatcher
	stopwords   map[string]struct{}
	topKeywords int
	logger      *logging.Logger
}

// NewTransformer creates a Transformer. analyzer and matcher may be nil, in
// which case the corresponding enrichment is skipped. topKeywords <= 0
// selects the default of 10.
func NewTransformer(analyzer Analyzer, matcher JobMatcher, topKeywords int, logger *logging.Logger) *Transformer {
	if topKeywords <= 0 {
		topKeywords = defaultTopKeywords
	}
	return &Transformer{
		analyzer:    analyzer,
		matcher:     matcher,
		stopwords:   newStopwordSet(defaultStopwords),
		topKeywords: topKeywords,
		logger:      logger,
	}
}

// Transform computes statistics over the extracted text. When opts.Analyze is
// set and an analyzer is configured, the structured analysis is attached on
// success and silently omitted on failure. Occupation matching runs only over
// a successful analysis with professional experiences and degrades the same
// way.
func (t *Transformer) Transform(ctx context.Context, doc models.Document, ex *models.ExtractionResult, opts Options) (*models.TransformationResult, error) {
	frequencies, top := t.keywordFrequencies(ex.FullText)

	result := &models.TransformationResult{
		Filename:           doc.Filename,
		WordCount:          len(strings.Fields(ex.FullText)),
		CharacterCount:     len(ex.FullText),
		PageCount:          ex.PageCount,
		KeywordFrequencies: frequencies,
		TopKeywords:        top,
	}

	if opts.Analyze && t.analyzer != nil {
		analysis, err := t.analyzer.Analyze(ctx, ex.FullText)
		if err != nil {
			// Best-effort enrichment: the run continues without it.
			t.logger.Warn("Structured analysis degraded", "error", err)
		} else {
			result.StructuredAnalysis = analysis
		}
	}

	if t.matcher != nil && result.StructuredAnalysis != nil && len(result.StructuredAnalysis.ExperiencesProfessionnelles) > 0 {
		matches, err := t.matcher.MatchJobs(ctx, result.StructuredAnalysis.ExperiencesProfessionnelles)
		if err != nil {
			t.logger.Warn("Occupation matching degraded", "error", err)
		} else {
			result.MetiersMatches = matches
		}
	}

	return result, nil
}

// keywordFrequencies builds a case-insensitive frequency table over the
// tokens of text, excluding stopwords, truncated to the configured top-N.
// Ties are broken by first occurrence in the text.
func (t *Transformer) keywordFrequencies(text string) (map[string]int, []string) {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)

	for i, token := range tokenize(text) {
		if _, stop := t.stopwords[token]; stop {
			continue
		}
		if _, seen := counts[token]; !seen {
			firstSeen[token] = i
		}
		counts[token]++
	}

	keywords := make([]string, 0, len(counts))
	for k := range counts {
		keywords = append(keywords, k)
	}
	sort.Slice(keywords, func(i, j int) bool {
		a, b := keywords[i], keywords[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return firstSeen[a] < firstSeen[b]
	})
	if len(keywords) > t.topKeywords {
		keywords = keywords[:t.topKeywords]
	}

	result := make(map[string]int, len(keywords))
	for _, k := range keywords {
		result[k] = counts[k]
	}
	return result, keywords
}

// tokenize splits text into lower-cased runs of letters, digits and hyphens.
// Single-rune and purely numeric tokens are dropped; mixed tokens like
// "gpt-4" are kept.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		token := strings.Trim(current.String(), "-")
		current.Reset()
		if len(token) <= 1 || isNumericOnly(token) {
			return
		}
		tokens = append(tokens, token)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func isNumericOnly(token string) bool {
	for _, r := range token {
		if !unicode.IsNumber(r) && r != '-' {
			return false
		}
	}
	return true
}
