package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfworkflow/internal/logging"
	"pdfworkflow/pkg/models"
)

type stubAnalyzer struct {
	analysis *models.StructuredAnalysis
	err      error
	calls    int
}

func (a *stubAnalyzer) Analyze(_ context.Context, _ string) (*models.StructuredAnalysis, error) {
	a.calls++
	return a.analysis, a.err
}

type stubMatcher struct {
	matches []models.PosteMatches
	err     error
	calls   int
}

func (m *stubMatcher) MatchJobs(_ context.Context, _ []models.Experience) ([]models.PosteMatches, error) {
	m.calls++
	return m.matches, m.err
}

func extraction(text string, pages int) *models.ExtractionResult {
	return &models.ExtractionResult{FullText: text, PageCount: pages, Metadata: map[string]string{}}
}

func TestTransform_HelloWorldScenario(t *testing.T) {
	transformer := NewTransformer(nil, nil, 0, logging.NewLogger())

	result, err := transformer.Transform(context.Background(),
		models.Document{Filename: "doc.pdf"}, extraction("hello hello world", 2), Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.WordCount)
	assert.Equal(t, 2, result.PageCount)
	assert.Equal(t, map[string]int{"hello": 2, "world": 1}, result.KeywordFrequencies)
	assert.Equal(t, []string{"hello", "world"}, result.TopKeywords)
	assert.Nil(t, result.StructuredAnalysis)
}

func TestTransform_Deterministic(t *testing.T) {
	transformer := NewTransformer(nil, nil, 0, logging.NewLogger())
	ex := extraction("alpha beta beta gamma Alpha ALPHA delta", 1)

	first, err := transformer.Transform(context.Background(), models.Document{}, ex, Options{})
	require.NoError(t, err)
	second, err := transformer.Transform(context.Background(), models.Document{}, ex, Options{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 3, first.KeywordFrequencies["alpha"])
}

func TestTransform_StopwordsExcluded(t *testing.T) {
	transformer := NewTransformer(nil, nil, 0, logging.NewLogger())

	result, err := transformer.Transform(context.Background(), models.Document{},
		extraction("the report and the antenna for the antenna", 1), Options{})
	require.NoError(t, err)

	assert.NotContains(t, result.KeywordFrequencies, "the")
	assert.NotContains(t, result.KeywordFrequencies, "and")
	assert.NotContains(t, result.KeywordFrequencies, "for")
	assert.Equal(t, 2, result.KeywordFrequencies["antenna"])
	assert.Equal(t, 1, result.KeywordFrequencies["report"])
	// Word count stays a plain whitespace token count.
	assert.Equal(t, 8, result.WordCount)
}

func TestTransform_TopNTiesBrokenByFirstOccurrence(t *testing.T) {
	transformer := NewTransformer(nil, nil, 2, logging.NewLogger())

	// zebra and apple both occur once; zebra appears first in the text.
	result, err := transformer.Transform(context.Background(), models.Document{},
		extraction("orange orange zebra apple", 1), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"orange", "zebra"}, result.TopKeywords)
	assert.Len(t, result.KeywordFrequencies, 2)
	assert.NotContains(t, result.KeywordFrequencies, "apple")
}

func TestTransform_AnalysisAttached(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: &models.StructuredAnalysis{
		Formations:                  []models.Formation{{Periode: "2018-2020", Diplome: "Master"}},
		ExperiencesProfessionnelles: []models.Experience{},
	}}
	transformer := NewTransformer(analyzer, nil, 0, logging.NewLogger())

	result, err := transformer.Transform(context.Background(), models.Document{},
		extraction("some resume text", 1), Options{Analyze: true})
	require.NoError(t, err)

	require.NotNil(t, result.StructuredAnalysis)
	assert.Equal(t, "Master", result.StructuredAnalysis.Formations[0].Diplome)
	assert.Equal(t, 1, analyzer.calls)
}

func TestTransform_AnalysisDegradesOnFailure(t *testing.T) {
	analyzer := &stubAnalyzer{err: ExternalServiceError("service unreachable", errors.New("dial refused"))}
	transformer := NewTransformer(analyzer, nil, 0, logging.NewLogger())

	result, err := transformer.Transform(context.Background(), models.Document{},
		extraction("some resume text", 1), Options{Analyze: true})
	require.NoError(t, err)

	assert.Nil(t, result.StructuredAnalysis)
	assert.Equal(t, 3, result.WordCount)
}

func TestTransform_MatchingAttached(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: &models.StructuredAnalysis{
		Formations: []models.Formation{},
		ExperiencesProfessionnelles: []models.Experience{
			{Poste: "Développeur", Entreprise: "Acme", Competences: []string{}},
		},
	}}
	matcher := &stubMatcher{matches: []models.PosteMatches{
		{Poste: "Développeur", Matches: []models.MetierMatch{
			{ID: "M1805", CodeRome: "M1805", Libelle: "Études et développement informatique", Score: 0.92},
		}},
	}}
	transformer := NewTransformer(analyzer, matcher, 0, logging.NewLogger())

	result, err := transformer.Transform(context.Background(), models.Document{},
		extraction("some resume text", 1), Options{Analyze: true})
	require.NoError(t, err)

	require.Len(t, result.MetiersMatches, 1)
	assert.Equal(t, "M1805", result.MetiersMatches[0].Matches[0].CodeRome)
	assert.Equal(t, 1, matcher.calls)
}

func TestTransform_MatchingDegradesOnFailure(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: &models.StructuredAnalysis{
		Formations: []models.Formation{},
		ExperiencesProfessionnelles: []models.Experience{
			{Poste: "Développeur", Competences: []string{}},
		},
	}}
	matcher := &stubMatcher{err: errors.New("reference service down")}
	transformer := NewTransformer(analyzer, matcher, 0, logging.NewLogger())

	result, err := transformer.Transform(context.Background(), models.Document{},
		extraction("some resume text", 1), Options{Analyze: true})
	require.NoError(t, err)

	assert.Nil(t, result.MetiersMatches)
	require.NotNil(t, result.StructuredAnalysis)
}

func TestTransform_MatchingSkippedWithoutExperiences(t *testing.T) {
	analyzer := &stubAnalyzer{analysis: &models.StructuredAnalysis{
		Formations:                  []models.Formation{{Periode: "2018", Diplome: "Master"}},
		ExperiencesProfessionnelles: []models.Experience{},
	}}
	matcher := &stubMatcher{}
	transformer := NewTransformer(analyzer, matcher, 0, logging.NewLogger())

	result, err := transformer.Transform(context.Background(), models.Document{},
		extraction("some resume text", 1), Options{Analyze: true})
	require.NoError(t, err)

	assert.Zero(t, matcher.calls)
	assert.Nil(t, result.MetiersMatches)
}

func TestTransform_MatchingSkippedWhenAnalysisDegraded(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("unreachable")}
	matcher := &stubMatcher{}
	transformer := NewTransformer(analyzer, matcher, 0, logging.NewLogger())

	result, err := transformer.Transform(context.Background(), models.Document{},
		extraction("some resume text", 1), Options{Analyze: true})
	require.NoError(t, err)

	assert.Zero(t, matcher.calls)
	assert.Nil(t, result.MetiersMatches)
}

func TestTransform_AnalysisSkippedWithoutRequest(t *testing.T) {
	analyzer := &stubAnalyzer{}
	transformer := NewTransformer(analyzer, nil, 0, logging.NewLogger())

	_, err := transformer.Transform(context.Background(), models.Document{},
		extraction("text", 1), Options{})
	require.NoError(t, err)

	assert.Zero(t, analyzer.calls)
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("GPT-4 runs on 2024 hardware, the AI said!")
	assert.Equal(t, []string{"gpt-4", "runs", "on", "hardware", "the", "ai", "said"}, tokens)
}
