package pipeline

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.io/infrasutra/spamwatch/internal/classifier"
	"github.io/infrasutra/spamwatch/internal/mailparse"
	"github.io/infrasutra/spamwatch/internal/sse"
	"github.io/infrasutra/spamwatch/internal/stats"
)

const (
	typeEmailEvent = "email_event"
	typeStatus     = "status"
	typeInit       = "init"
)

type wireMessage struct {
	Type    string         `json:"type"`
	Event   *stats.Event   `json:"event,omitempty"`
	Summary stats.Snapshot `json:"summary"`
}

// Pipeline takes accepted deliveries through parse, classify, record and
// broadcast. It never rejects a message: every failure along the way
// degrades to a logged default.
type Pipeline struct {
	scorer classifier.Scorer
	stats  *stats.Aggregator
	hub    *sse.Hub
	logger *slog.Logger
}

func New(scorer classifier.Scorer, aggregator *stats.Aggregator, hub *sse.Hub, logger *slog.Logger) *Pipeline {
	return &Pipeline{scorer: scorer, stats: aggregator, hub: hub, logger: logger}
}

// Deliver ingests one message.
func (p *Pipeline) Deliver(envelopeFrom string, rcptTos []string, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline failure, message accepted without event", "panic", r)
		}
	}()

	parsed, err := mailparse.Parse(raw)
	if err != nil {
		p.logger.Warn("message parse degraded", "from", envelopeFrom, "error", err)
	}

	verdict, err := p.scorer.Classify(scoringText(envelopeFrom, parsed))
	if err != nil {
		p.logger.Warn("classification failed, defaulting to non-spam", "scorer", p.scorer.Name(), "error", err)
		verdict = classifier.Verdict{}
	}

	event, snapshot := p.stats.RecordEvent(envelopeFrom, rcptTos, parsed, verdict)
	p.broadcast(wireMessage{Type: typeEmailEvent, Event: &event, Summary: snapshot})

	p.logger.Info("email processed",
		"id", event.ID,
		"from", envelopeFrom,
		"subject", parsed.Subject,
		"is_spam", verdict.IsSpam,
		"score", verdict.Score,
	)
}

// SetListening records the SMTP listener state and notifies observers.
func (p *Pipeline) SetListening(listening bool) {
	snapshot := p.stats.SetListening(listening)
	p.broadcast(wireMessage{Type: typeStatus, Summary: snapshot})
}

// Subscribe registers an observer whose first frame carries the current
// summary.
func (p *Pipeline) Subscribe() *sse.Subscriber {
	payload, err := json.Marshal(wireMessage{Type: typeInit, Summary: p.stats.Snapshot()})
	if err != nil {
		p.logger.Error("marshal init frame", "error", err)
		payload = []byte(`{"type":"init"}`)
	}
	return p.hub.Subscribe(payload)
}

func (p *Pipeline) Unsubscribe(sub *sse.Subscriber) {
	p.hub.Unsubscribe(sub)
}

func (p *Pipeline) Snapshot() stats.Snapshot { return p.stats.Snapshot() }

func (p *Pipeline) RecentEvents() []stats.Event { return p.stats.RecentEvents() }

func (p *Pipeline) Observers() int { return p.hub.Len() }

func (p *Pipeline) broadcast(msg wireMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("marshal broadcast frame", "type", msg.Type, "error", err)
		return
	}
	p.hub.Broadcast(payload)
}

// scoringText is what the classifier sees: subject, body, envelope sender
// and From header joined by single spaces, empty fields included.
func scoringText(envelopeFrom string, parsed mailparse.ParsedMessage) string {
	return strings.Join([]string{parsed.Subject, parsed.Body, envelopeFrom, parsed.FromHeader}, " ")
}
