package ats

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights are the share of each sub-score in the total. They sum to 1.
type Weights struct {
	Grammar  float64 `yaml:"grammar" json:"grammar"`
	Brevity  float64 `yaml:"brevity" json:"brevity"`
	Impact   float64 `yaml:"impact" json:"impact"`
	Sections float64 `yaml:"sections" json:"sections"`
	Keywords float64 `yaml:"keywords" json:"keywords"`
}

func (w Weights) sum() float64 {
	return w.Grammar + w.Brevity + w.Impact + w.Sections + w.Keywords
}

type Thresholds struct {
	IdealMaxWordsPerSentence float64 `yaml:"ideal_max_words_per_sentence" json:"ideal_max_words_per_sentence"`
	IdealMinWordsPerSentence float64 `yaml:"ideal_min_words_per_sentence" json:"ideal_min_words_per_sentence"`
	LongWordLength           int     `yaml:"long_word_length" json:"long_word_length"`
	ActionVerbCap            int     `yaml:"action_verb_cap" json:"action_verb_cap"`
	NumberCap                int     `yaml:"number_cap" json:"number_cap"`
	MaxOptionalSections      int     `yaml:"max_optional_sections" json:"max_optional_sections"`
	MaxKeywordBonus          int     `yaml:"max_keyword_bonus" json:"max_keyword_bonus"`
}

type Penalties struct {
	Pronoun             int     `yaml:"pronoun" json:"pronoun"`
	MultipleSpaces      int     `yaml:"multiple_spaces" json:"multiple_spaces"`
	MultiplePeriods     int     `yaml:"multiple_periods" json:"multiple_periods"`
	MultipleExclamation int     `yaml:"multiple_exclamation" json:"multiple_exclamation"`
	Capitalization      int     `yaml:"capitalization" json:"capitalization"`
	ExcessWord          float64 `yaml:"excess_word" json:"excess_word"`
	DeficitWord         float64 `yaml:"deficit_word" json:"deficit_word"`
	LongWord            int     `yaml:"long_word" json:"long_word"`
}

type Points struct {
	PerActionVerb   int `yaml:"per_action_verb" json:"per_action_verb"`
	PerNumber       int `yaml:"per_number" json:"per_number"`
	RequiredSection int `yaml:"required_section" json:"required_section"`
	OptionalSection int `yaml:"optional_section" json:"optional_section"`
}

// Config holds every constant the scorer uses.
type Config struct {
	Weights          Weights    `yaml:"weights" json:"weights"`
	Thresholds       Thresholds `yaml:"thresholds" json:"thresholds"`
	Penalties        Penalties  `yaml:"penalties" json:"penalties"`
	Points           Points     `yaml:"points" json:"points"`
	ActionVerbs      []string   `yaml:"action_verbs" json:"action_verbs"`
	RequiredSections []string   `yaml:"required_sections" json:"required_sections"`
	OptionalSections []string   `yaml:"optional_sections" json:"optional_sections"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Grammar:  0.20,
			Brevity:  0.20,
			Impact:   0.25,
			Sections: 0.20,
			Keywords: 0.15,
		},
		Thresholds: Thresholds{
			IdealMaxWordsPerSentence: 25,
			IdealMinWordsPerSentence: 8,
			LongWordLength:           15,
			ActionVerbCap:            50,
			NumberCap:                50,
			MaxOptionalSections:      4,
			MaxKeywordBonus:          100,
		},
		Penalties: Penalties{
			Pronoun:             5,
			MultipleSpaces:      2,
			MultiplePeriods:     2,
			MultipleExclamation: 3,
			Capitalization:      3,
			ExcessWord:          2,
			DeficitWord:         3,
			LongWord:            1,
		},
		Points: Points{
			PerActionVerb:   10,
			PerNumber:       10,
			RequiredSection: 20,
			OptionalSection: 10,
		},
		ActionVerbs: []string{
			"achieved", "built", "created", "delivered", "designed", "developed",
			"drove", "improved", "increased", "implemented", "launched", "led",
			"managed", "optimized", "reduced", "resolved", "saved", "streamlined",
			"spearheaded", "automated", "negotiated", "mentored", "generated",
		},
		RequiredSections: []string{"experience", "education", "skills"},
		OptionalSections: []string{
			"summary", "projects", "certifications", "awards",
			"volunteer", "languages", "publications", "interests",
		},
	}
}

// LoadConfig reads a YAML file and lays it over DefaultConfig. Fields the
// file omits keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read ats config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse ats config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if math.Abs(c.Weights.sum()-1) > 1e-6 {
		return fmt.Errorf("ats weights must sum to 1, got %.4f", c.Weights.sum())
	}
	for name, weight := range map[string]float64{
		"grammar":  c.Weights.Grammar,
		"brevity":  c.Weights.Brevity,
		"impact":   c.Weights.Impact,
		"sections": c.Weights.Sections,
		"keywords": c.Weights.Keywords,
	} {
		if weight < 0 {
			return fmt.Errorf("ats weight %s must not be negative", name)
		}
	}
	if c.Thresholds.IdealMinWordsPerSentence > c.Thresholds.IdealMaxWordsPerSentence {
		return fmt.Errorf("ats ideal min words per sentence exceeds ideal max")
	}
	if c.Thresholds.LongWordLength <= 0 {
		return fmt.Errorf("ats long word length must be positive")
	}
	return nil
}
