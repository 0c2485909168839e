package classifier

import "github.io/infrasutra/spamwatch/internal/model"

// TrainedScorer scores text by querying a preloaded classification artifact.
type TrainedScorer struct {
	model *model.Model
}

func NewTrainedScorer(m *model.Model) *TrainedScorer {
	return &TrainedScorer{model: m}
}

func (s *TrainedScorer) Classify(text string) (Verdict, error) {
	score := s.model.SpamProbability(text)
	return Verdict{IsSpam: score >= spamThreshold, Score: score}, nil
}

func (s *TrainedScorer) Name() string { return "trained" }
