package classifier

import (
	"context"
	"log/slog"

	"github.io/infrasutra/spamwatch/internal/model"
)

// Verdict is a classification decision with its confidence score.
type Verdict struct {
	IsSpam bool
	Score  float64
}

// Scorer classifies arbitrary text as spam or legitimate. The variant is
// selected once at startup and stays fixed for the process lifetime.
type Scorer interface {
	Classify(text string) (Verdict, error)
	Name() string
}

const spamThreshold = 0.5

// Select returns the trained scorer when a usable model artifact exists at
// modelPath, and the rule-based scorer otherwise.
func Select(ctx context.Context, modelPath string, logger *slog.Logger) Scorer {
	if modelPath == "" {
		logger.Info("no model path configured; using rule based scorer")
		return RuleScorer{}
	}
	m, err := model.Open(ctx, modelPath)
	if err != nil {
		logger.Warn("trained model unavailable; using rule based scorer", "path", modelPath, "error", err)
		return RuleScorer{}
	}
	logger.Info("trained model loaded", "path", modelPath, "vocabulary", m.VocabularySize())
	return NewTrainedScorer(m)
}
