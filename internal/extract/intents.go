package extract

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary is the fixed intent lexicon used for consent classification and
// skip detection. Phrases are matched as whole-token runs against normalized
// utterances, so "no" never matches inside "know".
//
// The defaults are tuned for English; deployments targeting other languages
// or accents should load a calibrated file instead of assuming the defaults
// generalize.
type Vocabulary struct {
	Yes  []string `yaml:"yes"`
	No   []string `yaml:"no"`
	Skip []string `yaml:"skip"`
}

// DefaultVocabulary returns the compiled-in English lexicon.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Yes: []string{
			"yes", "yeah", "yep", "yup", "sure", "okay", "ok",
			"of course", "definitely", "absolutely", "go ahead", "i agree", "i consent", "fine",
		},
		No: []string{
			"no", "nope", "nah", "not interested", "i decline", "i do not consent",
			"don't call", "do not call", "stop calling", "remove me",
		},
		Skip: []string{
			"skip", "pass", "next question", "no comment", "i don't know", "i dont know",
			"prefer not to say", "rather not say", "no answer",
		},
	}
}

// LoadVocabularyFile reads a YAML vocabulary. Lists that are absent or empty
// fall back to the defaults, so a file may override only one intent.
func LoadVocabularyFile(path string) (Vocabulary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("extract: read vocabulary: %w", err)
	}
	var v Vocabulary
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("extract: parse vocabulary: %w", err)
	}
	return v.withDefaults(), nil
}

func (v Vocabulary) withDefaults() Vocabulary {
	def := DefaultVocabulary()
	out := v
	if len(out.Yes) == 0 {
		out.Yes = def.Yes
	}
	if len(out.No) == 0 {
		out.No = def.No
	}
	if len(out.Skip) == 0 {
		out.Skip = def.Skip
	}
	return out
}

// ConsentIntent is the classification of a consent-gate utterance.
type ConsentIntent string

const (
	ConsentAffirmative ConsentIntent = "affirmative"
	ConsentNegative    ConsentIntent = "negative"
	ConsentUnclear     ConsentIntent = "unclear"
)

// ClassifyConsent classifies one utterance against the yes/no lexicon.
// An utterance containing both a yes and a no phrase is unclear.
func ClassifyConsent(v Vocabulary, utterance string) ConsentIntent {
	v = v.withDefaults()
	tokens := tokenize(utterance)

	yes := containsAnyPhrase(tokens, v.Yes)
	no := containsAnyPhrase(tokens, v.No)
	switch {
	case yes && !no:
		return ConsentAffirmative
	case no && !yes:
		return ConsentNegative
	default:
		return ConsentUnclear
	}
}

func isSkip(v Vocabulary, tokens []string) bool {
	return containsAnyPhrase(tokens, v.Skip)
}

// containsAnyPhrase reports whether any phrase appears as a contiguous token
// run in tokens.
func containsAnyPhrase(tokens []string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(tokens, tokenize(p)) {
			return true
		}
	}
	return false
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, pt := range phrase {
			if tokens[i+j] != pt {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// tokenize lowercases and splits on everything except letters, digits and
// in-word apostrophes.
func tokenize(s string) []string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'', r == '’':
			if r == '’' {
				r = '\''
			}
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

func normalize(s string) string {
	return strings.Join(tokenize(s), " ")
}
