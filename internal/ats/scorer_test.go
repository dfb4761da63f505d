package ats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResume = `Summary. Senior backend engineer with a focus on payments.
Experience. Led the migration of billing to Go and reduced latency by 40%. Built a ledger processing $2k per second.
Education. BSc in Computer Science.
Skills. Go, PostgreSQL, Kubernetes, Terraform.
Projects. Open source contributor to several database drivers.`

func TestAnalyzeResumeEmptyInputIsDefined(t *testing.T) {
	result := AnalyzeResume("")

	assert.Equal(t, 0, result.TotalScore)
	assert.Equal(t, 0, result.BrevityScore)
	assert.Equal(t, 0, result.GrammarScore)
	assert.Equal(t, 0, result.ImpactScore)
	assert.Equal(t, 0, result.SectionsScore)
	assert.Equal(t, 0, result.TotalKeywords)
	assert.Empty(t, result.MatchedKeywords)
}

func TestBrevityScoreWithoutSentencesIsZero(t *testing.T) {
	scorer := NewScorer(DefaultConfig())

	assert.Equal(t, 0, scorer.brevityScore("...!!!???"))
	assert.Equal(t, 0, scorer.brevityScore("   "))
}

func TestGrammarScoreIsPerfectForCleanText(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	text := "Designed a billing platform. Managed vendor relations. Shipped weekly releases."

	assert.Equal(t, 100, scorer.grammarScore(text))
}

func TestGrammarScoreDeductions(t *testing.T) {
	cfg := DefaultConfig()
	scorer := NewScorer(cfg)

	tests := []struct {
		name string
		text string
		want int
	}{
		{"pronouns", "I fixed my bugs. Me too.", 100 - 3*cfg.Penalties.Pronoun},
		{"double space", "Shipped  code.", 100 - cfg.Penalties.MultipleSpaces},
		{"ellipsis", "Shipped code... Again.", 100 - cfg.Penalties.MultiplePeriods},
		{"exclamations", "Shipped code!! Again.", 100 - cfg.Penalties.MultipleExclamation},
		{"lowercase sentence", "Shipped code. again and again.", 100 - cfg.Penalties.Capitalization},
		{"digit start is not penalized", "Shipped code. 5 releases.", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scorer.grammarScore(tt.text))
		})
	}
}

func TestGrammarScoreClampsAtZero(t *testing.T) {
	scorer := NewScorer(DefaultConfig())
	text := strings.Repeat("i my me ", 100)

	assert.Equal(t, 0, scorer.grammarScore(text))
}

func TestBrevityScorePenalizesLongSentencesAndJargon(t *testing.T) {
	scorer := NewScorer(DefaultConfig())

	balanced := "Delivered the quarterly roadmap for the platform team on time."
	assert.Equal(t, 100, scorer.brevityScore(balanced))

	long := strings.Repeat("word ", 34) + "word."
	// 35 words in one sentence: 10 over the ideal max at 2 points each.
	assert.Equal(t, 80, scorer.brevityScore(long))

	jargon := "Operationalized internationalization frameworks across the whole organization quickly."
	assert.Less(t, scorer.brevityScore(jargon), 100)
}

func TestKeywordsRaiseTotalScore(t *testing.T) {
	keywords := []string{"Go", "PostgreSQL", "Kubernetes"}

	without := AnalyzeResume(sampleResume)
	with := AnalyzeResume(sampleResume, keywords...)

	assert.Equal(t, len(keywords), with.KeywordMatches)
	assert.Equal(t, len(keywords), with.TotalKeywords)
	assert.Equal(t, 100, with.KeywordScore)
	assert.Greater(t, with.TotalScore, without.TotalScore)
}

func TestKeywordsReportMissing(t *testing.T) {
	result := AnalyzeResume(sampleResume, "Go", "Rust", " ")

	assert.Equal(t, 1, result.KeywordMatches)
	assert.Equal(t, 2, result.TotalKeywords)
	assert.Equal(t, []string{"Go"}, result.MatchedKeywords)
	assert.Equal(t, []string{"Rust"}, result.MissingKeywords)
}

func TestTotalScoreStaysInRange(t *testing.T) {
	inputs := []string{
		"",
		".",
		"!!!!!!!!!!!!",
		"..........",
		"1234567890 99% 100k $5",
		strings.Repeat("9", 5000),
		strings.Repeat("led managed increased 50% ", 400),
		strings.Repeat("experience education skills summary projects ", 50),
		"\t\n\r",
		"Ω≈ç√∫˜µ≤≥÷",
	}

	for _, input := range inputs {
		result := AnalyzeResume(input, "go", "sql")
		assert.GreaterOrEqual(t, result.TotalScore, 0, "input %q", input)
		assert.LessOrEqual(t, result.TotalScore, 100, "input %q", input)
		for _, sub := range []int{result.GrammarScore, result.BrevityScore, result.ImpactScore, result.SectionsScore} {
			assert.GreaterOrEqual(t, sub, 0)
			assert.LessOrEqual(t, sub, 100)
		}
	}
}

func TestAnalyzeResumeActionVerbsAndPronouns(t *testing.T) {
	result := AnalyzeResume("I managed a team of 5 and increased revenue by 20%. I led the project.")

	assert.Greater(t, result.ImpactScore, 0)
	assert.Less(t, result.GrammarScore, 100)
	assert.Equal(t, 90, result.GrammarScore)
	// managed, increased, led plus the numbers 5 and 20%.
	assert.Equal(t, 50, result.ImpactScore)
}

func TestSectionsScoreCapsOptionalSections(t *testing.T) {
	cfg := DefaultConfig()
	scorer := NewScorer(cfg)
	text := "experience education skills summary projects certifications awards volunteer languages"

	want := 3*cfg.Points.RequiredSection + cfg.Thresholds.MaxOptionalSections*cfg.Points.OptionalSection
	assert.Equal(t, want, scorer.sectionsScore(text))
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ats.yaml")
	content := `
weights:
  grammar: 0.1
  brevity: 0.1
  impact: 0.3
  sections: 0.3
  keywords: 0.2
action_verbs: [shipped]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 0.3, cfg.Weights.Impact)
	assert.Equal(t, []string{"shipped"}, cfg.ActionVerbs)
	assert.Equal(t, DefaultConfig().Penalties, cfg.Penalties)
}

func TestLoadConfigRejectsUnbalancedWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ats.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights:\n  grammar: 0.9\n"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestExtractKeywords(t *testing.T) {
	keywords := ExtractKeywords("We need a Go and C++ engineer with Node.js, PostgreSQL and Go experience.")

	assert.Equal(t, []string{"c++", "engineer", "experience", "need", "node.js", "postgresql"}, keywords)
}
