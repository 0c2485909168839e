package classifier

import (
	"regexp"
	"strings"
)

var spamKeywords = []*regexp.Regexp{
	regexp.MustCompile(`free\b`),
	regexp.MustCompile(`buy now`),
	regexp.MustCompile(`limited time`),
	regexp.MustCompile(`winner`),
	regexp.MustCompile(`congratulat`),
	regexp.MustCompile(`claim prize`),
	regexp.MustCompile(`click here`),
	regexp.MustCompile(`urgent`),
	regexp.MustCompile(`act now`),
	regexp.MustCompile(`cheap\b`),
	regexp.MustCompile(`\$\d+`),
	regexp.MustCompile(`viagra`),
	regexp.MustCompile(`lottery`),
}

var (
	urlPattern         = regexp.MustCompile(`https?://\S+`)
	exclamationPattern = regexp.MustCompile(`!{2,}`)
)

// RuleScorer is the deterministic heuristic fallback. Each matching keyword
// adds 0.25 on the lower-cased text; runs of exclamation marks add 0.15; one
// URL adds 0.08, two or more add 0.20 instead. The score is clamped to 1.0.
type RuleScorer struct{}

func (RuleScorer) Classify(text string) (Verdict, error) {
	lowered := strings.ToLower(text)
	score := 0.0

	for _, keyword := range spamKeywords {
		if keyword.MatchString(lowered) {
			score += 0.25
		}
	}

	if exclamationPattern.MatchString(text) {
		score += 0.15
	}

	switch urls := len(urlPattern.FindAllString(text, -1)); {
	case urls >= 2:
		score += 0.20
	case urls == 1:
		score += 0.08
	}

	if score > 1.0 {
		score = 1.0
	}
	return Verdict{IsSpam: score >= spamThreshold, Score: score}, nil
}

func (RuleScorer) Name() string { return "rules" }
