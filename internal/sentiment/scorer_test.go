package sentiment

import (
	"math/rand"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

func TestScore_EmptyText(t *testing.T) {
	s := NewScorer()
	assert.Nil(t, s.Score(""))
	assert.Nil(t, s.Score("   \n\t "))
	assert.Nil(t, s.Score("...!?"))
}

func TestScore_Positive(t *testing.T) {
	s := NewScorer()
	result := s.Score("Reliance posts outstanding profit, great quarter")
	require.NotNil(t, result)

	// outstanding(5) + profit(2) + great(3) = 10 over 6 tokens
	assert.InDelta(t, 1.0, result.SentimentScore, 1e-9)
	assert.Equal(t, models.LabelPositive, result.SentimentLabel)
	assert.InDelta(t, 10.0/6.0, result.CompoundScore, 1e-9)
	assert.InDelta(t, 3.0/6.0, result.PositiveScore, 1e-9)
	assert.InDelta(t, 0.0, result.NegativeScore, 1e-9)
	assert.InDelta(t, 0.5, result.NeutralScore, 1e-9)
}

func TestScore_Negative(t *testing.T) {
	s := NewScorer()
	result := s.Score("Fraud inquiry deepens as losses mount")
	require.NotNil(t, result)

	// fraud(-4) + losses(-3)
	assert.InDelta(t, -0.7, result.SentimentScore, 1e-9)
	assert.Equal(t, models.LabelNegative, result.SentimentLabel)
	assert.InDelta(t, 2.0/6.0, result.NegativeScore, 1e-9)
}

func TestScore_ClampsToUnitRange(t *testing.T) {
	s := NewScorer()
	result := s.Score("fraud fraud fraud catastrophic disaster")
	require.NotNil(t, result)
	assert.Equal(t, -1.0, result.SentimentScore)
}

func TestScore_Negation(t *testing.T) {
	s := NewScorer()

	plain := s.Score("results good")
	negated := s.Score("results not good")
	require.NotNil(t, plain)
	require.NotNil(t, negated)

	assert.InDelta(t, 0.3, plain.SentimentScore, 1e-9)
	assert.InDelta(t, -0.3, negated.SentimentScore, 1e-9)
	assert.Equal(t, 1.0/3.0, negated.NegativeScore)
	assert.Equal(t, 0.0, negated.PositiveScore)
}

func TestScore_PunctuationSplitsTokens(t *testing.T) {
	s := NewScorer()
	result := s.Score("gain,gain!gain")
	require.NotNil(t, result)
	assert.InDelta(t, 0.6, result.SentimentScore, 1e-9)
}

func TestScore_NoLexiconHits(t *testing.T) {
	s := NewScorer()
	result := s.Score("TCS announces board meeting date")
	require.NotNil(t, result)
	assert.Equal(t, 0.0, result.SentimentScore)
	assert.Equal(t, models.LabelNeutral, result.SentimentLabel)
	assert.Equal(t, 1.0, result.NeutralScore)
}

func TestScore_WithLexicon(t *testing.T) {
	s := NewScorer(WithLexicon(map[string]int{"upgrade": 4, "downgrade": -4}))

	result := s.Score("broker upgrade after downgrade")
	require.NotNil(t, result)
	assert.Equal(t, 0.0, result.SentimentScore)
	assert.Equal(t, 0.25, result.PositiveScore)
	assert.Equal(t, 0.25, result.NegativeScore)
	assert.Equal(t, 0.5, result.NeutralScore)

	result = s.Score("good")
	require.NotNil(t, result)
	assert.Equal(t, models.LabelNeutral, result.SentimentLabel)
}

func TestEmbeddedLexicon(t *testing.T) {
	lex, err := ParseLexicon(afinn)
	require.NoError(t, err)
	assert.Len(t, lex, 3356)

	assert.Equal(t, -3, lex["hate"])
	assert.Equal(t, -2, lex["weak"])
	assert.Equal(t, -3, lex["terrible"])
	assert.Equal(t, 3, lex["delighted"])
	assert.Equal(t, 2, lex["outperform"])
	assert.Equal(t, -2, lex["not good"])
}

func TestScore_Headlines(t *testing.T) {
	s := NewScorer()
	tests := []struct {
		text  string
		score float64
		label models.Label
	}{
		// hate(-3) + weak(-2)
		{"Investors hate the weak guidance", -0.5, models.LabelNegative},
		// delighted(3)
		{"Shareholders delighted as Titan beats estimates", 0.3, models.LabelPositive},
		// horrible(-3) + losses(-3)
		{"Horrible quarter for Paytm as losses widen", -0.6, models.LabelNegative},
		// outperform(2) sits on the threshold
		{"Analysts say HDFC Bank will outperform peers", 0.2, models.LabelNeutral},
		// cut(-1) + hopes(2)
		{"Banks rally on rate cut hopes", 0.1, models.LabelNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result := s.Score(tt.text)
			require.NotNil(t, result)
			assert.InDelta(t, tt.score, result.SentimentScore, 1e-9)
			assert.Equal(t, tt.label, result.SentimentLabel)
		})
	}
}

func assertConsistent(t *testing.T, result *models.ScoreResult) {
	t.Helper()
	assert.GreaterOrEqual(t, result.SentimentScore, -1.0)
	assert.LessOrEqual(t, result.SentimentScore, 1.0)
	switch {
	case result.SentimentScore > 0.2:
		assert.Equal(t, models.LabelPositive, result.SentimentLabel)
	case result.SentimentScore < -0.2:
		assert.Equal(t, models.LabelNegative, result.SentimentLabel)
	default:
		assert.Equal(t, models.LabelNeutral, result.SentimentLabel)
	}
	assert.GreaterOrEqual(t, result.PositiveScore, 0.0)
	assert.GreaterOrEqual(t, result.NegativeScore, 0.0)
	assert.GreaterOrEqual(t, result.NeutralScore, -1e-9)
	assert.InDelta(t, 1.0, result.PositiveScore+result.NegativeScore+result.NeutralScore, 1e-9)
}

func TestScore_RandomTextStaysConsistent(t *testing.T) {
	s := NewScorer()

	vocab := []string{"nifty", "sensex", "q3", "board", "shares", "the", "of", "-", "..."}
	for word := range s.lexicon {
		if !strings.Contains(word, " ") {
			vocab = append(vocab, word)
		}
	}
	for word := range negators {
		vocab = append(vocab, word)
	}
	sort.Strings(vocab)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		words := make([]string, 1+rng.Intn(30))
		for j := range words {
			words[j] = vocab[rng.Intn(len(vocab))]
		}
		text := strings.Join(words, " ")

		result := s.Score(text)
		if result == nil {
			assert.Empty(t, tokenize(text), text)
			continue
		}
		assertConsistent(t, result)
	}
}

func FuzzScore(f *testing.F) {
	for _, seed := range []string{
		"good",
		"good great",
		"bad worse worst",
		"not bad",
		"win win win win",
		"fraud fraud fraud catastrophic disaster",
		"board meeting",
		"gain,gain!gain",
		"...!?",
		"",
	} {
		f.Add(seed)
	}

	s := NewScorer()
	f.Fuzz(func(t *testing.T, text string) {
		result := s.Score(text)
		if result == nil {
			assert.Empty(t, tokenize(text))
			return
		}
		assertConsistent(t, result)
	})
}

func TestLabel(t *testing.T) {
	assert.Equal(t, models.LabelPositive, Label(0.21))
	assert.Equal(t, models.LabelNeutral, Label(0.2))
	assert.Equal(t, models.LabelNeutral, Label(-0.2))
	assert.Equal(t, models.LabelNegative, Label(-0.21))
}

func TestParseLexicon(t *testing.T) {
	lex, err := ParseLexicon([]byte("# comment\ngood\t3\nbad -3\n\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"good": 3, "bad": -3}, lex)

	_, err = ParseLexicon([]byte("good\tthree\n"))
	assert.Error(t, err)
}
