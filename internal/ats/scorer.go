// Package ats estimates how well a plain-text resume would fare against an
// applicant tracking system filter. Scoring is deterministic and pure.
package ats

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	pronounRe      = regexp.MustCompile(`(?i)\b(i|me|my)\b`)
	multiSpaceRe   = regexp.MustCompile(` {2,}`)
	multiPeriodRe  = regexp.MustCompile(`\.{2,}`)
	multiExclaimRe = regexp.MustCompile(`!{2,}`)
	numberRe       = regexp.MustCompile(`\d+(\.\d+)?[%$k]?`)
)

type ScoreBreakdown struct {
	TotalScore      int      `json:"total_score"`
	GrammarScore    int      `json:"grammar_score"`
	BrevityScore    int      `json:"brevity_score"`
	ImpactScore     int      `json:"impact_score"`
	SectionsScore   int      `json:"sections_score"`
	KeywordScore    int      `json:"keyword_score"`
	KeywordMatches  int      `json:"keyword_matches"`
	TotalKeywords   int      `json:"total_keywords"`
	MatchedKeywords []string `json:"matched_keywords"`
	MissingKeywords []string `json:"missing_keywords"`
}

type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Config() Config {
	return s.cfg
}

var defaultScorer = NewScorer(DefaultConfig())

// AnalyzeResume scores text with the default configuration.
func AnalyzeResume(text string, jobKeywords ...string) ScoreBreakdown {
	return defaultScorer.Analyze(text, jobKeywords)
}

// Analyze never fails. Blank text scores zero on every axis.
func (s *Scorer) Analyze(text string, jobKeywords []string) ScoreBreakdown {
	lower := strings.ToLower(text)
	matched, missing := matchKeywords(lower, jobKeywords)

	result := ScoreBreakdown{
		KeywordMatches:  len(matched),
		TotalKeywords:   len(matched) + len(missing),
		MatchedKeywords: matched,
		MissingKeywords: missing,
	}
	if strings.TrimSpace(text) == "" {
		return result
	}

	result.GrammarScore = s.grammarScore(text)
	result.BrevityScore = s.brevityScore(text)
	result.ImpactScore = s.impactScore(text, lower)
	result.SectionsScore = s.sectionsScore(lower)
	result.KeywordScore = s.keywordScore(result.KeywordMatches, result.TotalKeywords)

	w := s.cfg.Weights
	total := w.Grammar*float64(result.GrammarScore) +
		w.Brevity*float64(result.BrevityScore) +
		w.Impact*float64(result.ImpactScore) +
		w.Sections*float64(result.SectionsScore) +
		w.Keywords*float64(result.KeywordScore)
	result.TotalScore = clamp(int(math.Round(total)), 0, 100)

	return result
}

func (s *Scorer) grammarScore(text string) int {
	p := s.cfg.Penalties
	score := 100
	score -= len(pronounRe.FindAllStringIndex(text, -1)) * p.Pronoun
	score -= len(multiSpaceRe.FindAllStringIndex(text, -1)) * p.MultipleSpaces
	score -= len(multiPeriodRe.FindAllStringIndex(text, -1)) * p.MultiplePeriods
	score -= len(multiExclaimRe.FindAllStringIndex(text, -1)) * p.MultipleExclamation

	for _, sentence := range strings.Split(text, ".") {
		trimmed := strings.TrimSpace(sentence)
		if trimmed == "" {
			continue
		}
		first, _ := utf8.DecodeRuneInString(trimmed)
		if unicode.IsLower(first) {
			score -= p.Capitalization
		}
	}

	return clamp(score, 0, 100)
}

func (s *Scorer) brevityScore(text string) int {
	words := strings.Fields(text)
	sentences := splitSentences(text)
	if len(words) == 0 || len(sentences) == 0 {
		return 0
	}

	t := s.cfg.Thresholds
	p := s.cfg.Penalties
	score := 100.0

	avg := float64(len(words)) / float64(len(sentences))
	switch {
	case avg > t.IdealMaxWordsPerSentence:
		score -= (avg - t.IdealMaxWordsPerSentence) * p.ExcessWord
	case avg < t.IdealMinWordsPerSentence:
		score -= (t.IdealMinWordsPerSentence - avg) * p.DeficitWord
	}

	for _, word := range words {
		bare := strings.TrimFunc(word, unicode.IsPunct)
		if utf8.RuneCountInString(bare) > t.LongWordLength {
			score -= float64(p.LongWord)
		}
	}

	return clamp(int(math.Round(score)), 0, 100)
}

func (s *Scorer) impactScore(text, lower string) int {
	verbs := 0
	for _, verb := range s.cfg.ActionVerbs {
		if verb != "" && strings.Contains(lower, strings.ToLower(verb)) {
			verbs++
		}
	}
	numbers := len(numberRe.FindAllStringIndex(text, -1))

	score := min(s.cfg.Thresholds.ActionVerbCap, verbs*s.cfg.Points.PerActionVerb) +
		min(s.cfg.Thresholds.NumberCap, numbers*s.cfg.Points.PerNumber)
	return clamp(score, 0, 100)
}

func (s *Scorer) sectionsScore(lower string) int {
	score := 0
	for _, section := range s.cfg.RequiredSections {
		if section != "" && strings.Contains(lower, strings.ToLower(section)) {
			score += s.cfg.Points.RequiredSection
		}
	}

	optional := 0
	for _, section := range s.cfg.OptionalSections {
		if optional >= s.cfg.Thresholds.MaxOptionalSections {
			break
		}
		if section != "" && strings.Contains(lower, strings.ToLower(section)) {
			score += s.cfg.Points.OptionalSection
			optional++
		}
	}

	return clamp(score, 0, 100)
}

func (s *Scorer) keywordScore(matches, total int) int {
	if total == 0 {
		return 0
	}
	bonus := float64(matches) / float64(total) * float64(s.cfg.Thresholds.MaxKeywordBonus)
	return clamp(int(math.Round(bonus)), 0, 100)
}

// matchKeywords splits the non-blank keywords into those found in lower and
// those missing from it, preserving input order.
func matchKeywords(lower string, keywords []string) (matched, missing []string) {
	matched = []string{}
	missing = []string{}
	for _, keyword := range keywords {
		needle := strings.ToLower(strings.TrimSpace(keyword))
		if needle == "" {
			continue
		}
		if strings.Contains(lower, needle) {
			matched = append(matched, keyword)
		} else {
			missing = append(missing, keyword)
		}
	}
	return matched, missing
}

func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentences := parts[:0]
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
