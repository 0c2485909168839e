package model

import (
	"math"
	"strings"
	"unicode"
)

// Model is a multinomial naive Bayes text classifier. The whole artifact is
// held in memory after Open, so scoring is pure arithmetic with no I/O.
type Model struct {
	spamDocs   int64
	hamDocs    int64
	spamTokens int64
	hamTokens  int64
	vocab      map[string]TokenCount
}

type TokenCount struct {
	Spam int64
	Ham  int64
}

func New() *Model {
	return &Model{vocab: make(map[string]TokenCount)}
}

// Train folds one labelled document into the counts.
func (m *Model) Train(text string, spam bool) {
	if spam {
		m.spamDocs++
	} else {
		m.hamDocs++
	}
	for _, token := range Tokenize(text) {
		count := m.vocab[token]
		if spam {
			count.Spam++
			m.spamTokens++
		} else {
			count.Ham++
			m.hamTokens++
		}
		m.vocab[token] = count
	}
}

// SpamProbability returns the posterior probability that text belongs to the
// spam class, using Laplace-smoothed per-class token likelihoods in log space.
func (m *Model) SpamProbability(text string) float64 {
	if m.spamDocs == 0 || m.hamDocs == 0 {
		return 0
	}

	totalDocs := float64(m.spamDocs + m.hamDocs)
	logSpam := math.Log(float64(m.spamDocs) / totalDocs)
	logHam := math.Log(float64(m.hamDocs) / totalDocs)
	vocabSize := float64(len(m.vocab))

	for _, token := range Tokenize(text) {
		count := m.vocab[token]
		logSpam += math.Log((float64(count.Spam) + 1) / (float64(m.spamTokens) + vocabSize))
		logHam += math.Log((float64(count.Ham) + 1) / (float64(m.hamTokens) + vocabSize))
	}

	return 1 / (1 + math.Exp(logHam-logSpam))
}

func (m *Model) VocabularySize() int {
	return len(m.vocab)
}

// Documents reports how many labelled documents went into the model.
func (m *Model) Documents() (spam, ham int64) {
	return m.spamDocs, m.hamDocs
}

// Tokenize lower-cases text and splits it into letter/digit runs.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
