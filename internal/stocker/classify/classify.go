// Package classify labels article text as bullish, bearish or neutral news.
package classify

import (
	"strings"
	"unicode"
)

// Labels written to the "class" column.
const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// Classifier assigns a label to article text.
type Classifier interface {
	Classify(text string) string
}

var defaultPositive = []string{
	"beat", "beats", "bullish", "buy", "climb", "climbed", "climbs", "gain", "gained", "gains",
	"growth", "higher", "jump", "jumped", "jumps", "outperform", "outperformed", "profit",
	"profits", "rally", "rallied", "record", "rise", "rises", "rose", "soar", "soared", "soars",
	"strong", "surge", "surged", "surges", "upgrade", "upgraded",
}

var defaultNegative = []string{
	"bearish", "cut", "cuts", "decline", "declined", "declines", "downgrade", "downgraded",
	"drop", "dropped", "drops", "fall", "fell", "falls", "fraud", "lawsuit", "loss", "losses",
	"lower", "miss", "missed", "misses", "plunge", "plunged", "recall", "sell", "selloff",
	"slump", "slumped", "tumble", "tumbled", "underperform", "weak",
}

// Lexicon scores text by counting positive and negative terms.
type Lexicon struct {
	positive map[string]struct{}
	negative map[string]struct{}
	// Margin is how many more hits one side needs over the other.
	Margin int
}

// NewLexicon creates a classifier from term lists. Nil lists use the
// built-in financial vocabulary.
func NewLexicon(positive, negative []string) *Lexicon {
	if positive == nil {
		positive = defaultPositive
	}
	if negative == nil {
		negative = defaultNegative
	}
	return &Lexicon{
		positive: toSet(positive),
		negative: toSet(negative),
		Margin:   1,
	}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// Score returns the positive and negative term counts of text.
func (l *Lexicon) Score(text string) (pos, neg int) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	for _, w := range words {
		if _, ok := l.positive[w]; ok {
			pos++
		}
		if _, ok := l.negative[w]; ok {
			neg++
		}
	}
	return pos, neg
}

// Classify implements Classifier.
func (l *Lexicon) Classify(text string) string {
	pos, neg := l.Score(text)
	switch {
	case pos-neg >= l.Margin && pos > neg:
		return Positive
	case neg-pos >= l.Margin && neg > pos:
		return Negative
	default:
		return Neutral
	}
}
