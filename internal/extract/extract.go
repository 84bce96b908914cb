package extract

import (
	"regexp"
	"strconv"
	"strings"

	"voicesurvey-platform/internal/survey"
)

// Confidence levels assigned by the type-specific rules.
// The clarify threshold that consumes these lives in conversation config.
const (
	confExact = 100
	confFuzzy = 70
	confClamp = 50
	confNone  = 0
)

// Extract turns one spoken utterance plus a target question into a candidate
// structured answer with a confidence score.
//
// Pure function of its inputs: the same (question, utterance, isRetry) always
// yields the identical answer. isRetry never changes the computed value; it
// records the caller's promise that no further clarification will be asked,
// so ambiguous retry results are accepted as-is instead of looping.
func Extract(v Vocabulary, q survey.Question, utterance string, isRetry bool) ExtractedAnswer {
	_ = isRetry
	v = v.withDefaults()
	tokens := tokenize(utterance)

	// An explicit skip on a non-required question is a defined answer,
	// regardless of question type.
	if !q.Required && isSkip(v, tokens) {
		return notAnswered(q.ID, confExact)
	}

	switch q.Type {
	case survey.QuestionSingleChoice:
		return extractSingleChoice(q, utterance)
	case survey.QuestionMultiChoice:
		return extractMultiChoice(q, utterance)
	case survey.QuestionLinearScale:
		return extractLinearScale(q, tokens)
	case survey.QuestionFreeText:
		return ExtractedAnswer{
			QuestionID: q.ID,
			Value:      Value{Text: utterance},
			Confidence: confExact,
			Source:     SourceLive,
		}
	default:
		// Questionnaire validation rejects unknown types up front.
		return notAnswered(q.ID, confNone)
	}
}

func extractSingleChoice(q survey.Question, utterance string) ExtractedAnswer {
	opt, conf, ok := matchOption(q.Options, utterance)
	if !ok {
		return notAnswered(q.ID, confNone)
	}
	return ExtractedAnswer{
		QuestionID: q.ID,
		Value:      Value{Option: opt},
		Confidence: conf,
		Source:     SourceLive,
	}
}

var clauseSplitRe = regexp.MustCompile(`(?i)(?:,|;|&|\band\b)`)

func extractMultiChoice(q survey.Question, utterance string) ExtractedAnswer {
	clauses := clauseSplitRe.Split(utterance, -1)

	var picked []string
	seen := make(map[string]bool, len(q.Options))
	minConf := confExact
	for _, clause := range clauses {
		if strings.TrimSpace(clause) == "" {
			continue
		}
		opt, conf, ok := matchOption(q.Options, clause)
		if !ok {
			continue
		}
		if conf < minConf {
			minConf = conf
		}
		if !seen[opt] {
			seen[opt] = true
			picked = append(picked, opt)
		}
	}
	if len(picked) == 0 {
		return notAnswered(q.ID, confNone)
	}
	return ExtractedAnswer{
		QuestionID: q.ID,
		Value:      Value{Options: picked},
		Confidence: minConf,
		Source:     SourceLive,
	}
}

func extractLinearScale(q survey.Question, tokens []string) ExtractedAnswer {
	nums := findNumbers(tokens)
	if len(nums) == 0 {
		return notAnswered(q.ID, confNone)
	}

	var inRange []int
	for _, n := range nums {
		if n >= q.ScaleMin && n <= q.ScaleMax {
			inRange = append(inRange, n)
		}
	}

	// Exactly one in-range number is unambiguous. Everything else (only
	// out-of-range numbers, or several plausible ones) is flagged for
	// clarification via reduced confidence.
	if len(inRange) == 1 {
		return ExtractedAnswer{
			QuestionID: q.ID,
			Value:      Value{Scale: inRange[0]},
			Confidence: confExact,
			Source:     SourceLive,
		}
	}

	n := nums[0]
	if len(inRange) > 1 {
		n = inRange[0]
	}
	if n < q.ScaleMin {
		n = q.ScaleMin
	}
	if n > q.ScaleMax {
		n = q.ScaleMax
	}
	return ExtractedAnswer{
		QuestionID: q.ID,
		Value:      Value{Scale: n},
		Confidence: confClamp,
		Source:     SourceLive,
	}
}

// matchOption resolves one clause against an option list.
// Rule order: exact match, ordinal reference, fuzzy containment.
// The first rule producing a unique match wins.
func matchOption(options []string, clause string) (string, int, bool) {
	norm := normalize(clause)
	if norm == "" {
		return "", confNone, false
	}

	for _, opt := range options {
		if normalize(opt) == norm {
			return opt, confExact, true
		}
	}

	if idx, ok := resolveOrdinal(clause, len(options)); ok {
		return options[idx-1], confExact, true
	}

	var candidate string
	count := 0
	for _, opt := range options {
		if fuzzyMatches(norm, normalize(opt)) {
			count++
			candidate = opt
		}
	}
	if count == 1 {
		return candidate, confFuzzy, true
	}
	return "", confNone, false
}

// fuzzyMatches reports a containment or near-miss match between a normalized
// clause and a normalized option.
func fuzzyMatches(clause, opt string) bool {
	if opt == "" {
		return false
	}
	tokens := strings.Fields(clause)

	// Very short options ("A", "B", "7") only match as whole tokens;
	// substring containment would hit inside unrelated words.
	if len(opt) < 3 {
		for _, t := range tokens {
			if t == opt {
				return true
			}
		}
		return false
	}

	if strings.Contains(clause, opt) {
		return true
	}
	for _, t := range tokens {
		if len(t) < 3 {
			continue
		}
		if strings.Contains(opt, t) {
			return true
		}
		// One edit tolerates the typical transcription slip ("Gren").
		if levenshtein(t, opt) <= 1 {
			return true
		}
	}
	return false
}

var ordinalWords = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

// resolveOrdinal maps positional references to a 1-based option index:
// "the second one", "option 2", "number two", "B", "2", "the last one".
func resolveOrdinal(clause string, n int) (int, bool) {
	tokens := tokenize(clause)

	for i, t := range tokens {
		if idx, ok := ordinalWords[t]; ok && idx >= 1 && idx <= n {
			return idx, true
		}
		if t == "last" {
			return n, true
		}
		// "option 2" / "number two" / "choice B"
		if (t == "option" || t == "number" || t == "choice") && i+1 < len(tokens) {
			if idx, ok := tokenIndex(tokens[i+1], n); ok {
				return idx, true
			}
		}
	}

	// A bare reference: strip filler and see if a single index token remains.
	var bare []string
	for _, t := range tokens {
		switch t {
		case "the", "option", "number", "choice", "probably", "maybe", "id", "i'd", "say":
			continue
		}
		bare = append(bare, t)
	}
	if len(bare) == 1 {
		if idx, ok := tokenIndex(bare[0], n); ok {
			return idx, true
		}
	}
	return 0, false
}

// tokenIndex interprets one token as a 1-based option index: a digit, a
// number word, or a single letter ("B" means the second option).
func tokenIndex(t string, n int) (int, bool) {
	if v, err := strconv.Atoi(t); err == nil && v >= 1 && v <= n {
		return v, true
	}
	if v, ok := numberWords[t]; ok && v >= 1 && v <= n {
		return v, true
	}
	if len(t) == 1 && t[0] >= 'a' && t[0] <= 'z' {
		idx := int(t[0]-'a') + 1
		if idx >= 1 && idx <= n {
			return idx, true
		}
	}
	return 0, false
}

// findNumbers returns every integer literal or number word, in spoken order.
func findNumbers(tokens []string) []int {
	var out []int
	for _, t := range tokens {
		if v, err := strconv.Atoi(t); err == nil {
			out = append(out, v)
			continue
		}
		if v, ok := numberWords[t]; ok {
			out = append(out, v)
		}
	}
	return out
}

func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
