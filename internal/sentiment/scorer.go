package sentiment

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

//go:embed afinn.txt
var afinn []byte

const (
	// scoreDivisor scales raw lexicon sums into [-1, 1]. Stored scores depend on it.
	scoreDivisor = 10.0

	positiveThreshold = 0.2
	negativeThreshold = -0.2
)

var negators = map[string]struct{}{
	"cant": {}, "can't": {}, "dont": {}, "don't": {}, "doesnt": {}, "doesn't": {},
	"not": {}, "non": {}, "wont": {}, "won't": {}, "isnt": {}, "isn't": {},
}

var punctuation = strings.NewReplacer(
	"\n", " ", ".", " ", ",", " ", "/", " ", "#", " ", "!", " ", "?", " ",
	"$", " ", "%", " ", "^", " ", "&", " ", "*", " ", ";", " ", ":", " ",
	"{", " ", "}", " ", "=", " ", "_", " ", "`", " ", "\"", " ", "~", " ",
	"(", " ", ")", " ",
)

// Scorer is a lexicon-based polarity analyzer. It is safe for concurrent use.
type Scorer struct {
	lexicon map[string]int
}

// Option configures a Scorer
type Option func(*Scorer)

// WithLexicon replaces the built-in word list
func WithLexicon(lexicon map[string]int) Option {
	return func(s *Scorer) {
		s.lexicon = lexicon
	}
}

// NewScorer returns a scorer backed by the embedded AFINN word list
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{}
	for _, opt := range opts {
		opt(s)
	}
	if s.lexicon == nil {
		lex, err := ParseLexicon(afinn)
		if err != nil {
			panic(fmt.Sprintf("embedded lexicon: %v", err))
		}
		s.lexicon = lex
	}
	return s
}

// ParseLexicon reads "word<TAB>weight" lines
func ParseLexicon(data []byte) (map[string]int, error) {
	lex := make(map[string]int)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		idx := strings.LastIndexAny(text, "\t ")
		if idx <= 0 {
			return nil, fmt.Errorf("line %d: expected word and weight", line)
		}
		weight, err := strconv.Atoi(strings.TrimSpace(text[idx+1:]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		lex[strings.TrimSpace(text[:idx])] = weight
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lex, nil
}

// Score maps text to a normalized score, label and sub-scores. Empty or
// whitespace-only text has no opinion and returns nil.
func (s *Scorer) Score(text string) *models.ScoreResult {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	raw := 0
	positive, negative := 0, 0
	for i, token := range tokens {
		weight, ok := s.lexicon[token]
		if !ok {
			continue
		}
		if i > 0 {
			if _, negated := negators[tokens[i-1]]; negated {
				weight = -weight
			}
		}
		raw += weight
		switch {
		case weight > 0:
			positive++
		case weight < 0:
			negative++
		}
	}

	total := float64(len(tokens))
	normalized := clamp(float64(raw)/scoreDivisor, -1, 1)
	posScore := float64(positive) / total
	negScore := float64(negative) / total

	return &models.ScoreResult{
		SentimentScore: normalized,
		SentimentLabel: Label(normalized),
		CompoundScore:  float64(raw) / total,
		PositiveScore:  posScore,
		NegativeScore:  negScore,
		NeutralScore:   1 - posScore - negScore,
	}
}

// Label derives the discrete label from a normalized score
func Label(score float64) models.Label {
	switch {
	case score > positiveThreshold:
		return models.LabelPositive
	case score < negativeThreshold:
		return models.LabelNegative
	default:
		return models.LabelNeutral
	}
}

func tokenize(text string) []string {
	return strings.Fields(punctuation.Replace(strings.ToLower(text)))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
