package analysis

import (
	"regexp"
	"strings"

	"github.com/kitbuilder587/finanalyst/internal/search"
)

type SentimentLabel string

const (
	SentimentBullish SentimentLabel = "Bullish"
	SentimentBearish SentimentLabel = "Bearish"
	SentimentNeutral SentimentLabel = "Neutral"
)

var (
	positiveWords = []string{"bullish", "positive", "growth", "gain", "rise", "up", "beat", "upgrade", "record", "strong"}
	negativeWords = []string{"bearish", "negative", "decline", "fall", "down", "risk", "miss", "downgrade", "loss", "weak"}

	positiveRe = wordsRegexp(positiveWords)
	negativeRe = wordsRegexp(negativeWords)
)

func wordsRegexp(words []string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + strings.Join(words, "|") + `)\b`)
}

type Sentiment struct {
	Positive int
	Negative int
	Label    SentimentLabel
}

// Score от -1 до 1
func (s Sentiment) Score() float64 {
	total := s.Positive + s.Negative
	if total == 0 {
		return 0
	}
	return float64(s.Positive-s.Negative) / float64(total)
}

// ScoreSentiment - подсчет ключевых слов по границам слов,
// поэтому "upgrade" не считается за "up"
func ScoreSentiment(texts []string) Sentiment {
	var s Sentiment
	for _, t := range texts {
		lower := strings.ToLower(t)
		s.Positive += len(positiveRe.FindAllString(lower, -1))
		s.Negative += len(negativeRe.FindAllString(lower, -1))
	}

	switch {
	case s.Positive > s.Negative:
		s.Label = SentimentBullish
	case s.Negative > s.Positive:
		s.Label = SentimentBearish
	default:
		s.Label = SentimentNeutral
	}
	return s
}

func ScoreResults(results []search.SearchResult) Sentiment {
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Title+" "+r.Content)
	}
	return ScoreSentiment(texts)
}
