package stats

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.io/infrasutra/spamwatch/internal/classifier"
	"github.io/infrasutra/spamwatch/internal/mailparse"
)

const (
	eventHistoryCap = 200
	topDomainLimit  = 10
)

// Aggregator owns all shared mutable statistics. Every mutation and every
// snapshot read serializes on a single mutex.
type Aggregator struct {
	mu           sync.Mutex
	totalEmails  uint64
	spamCount    uint64
	domainCounts map[string]uint64
	domainOrder  []string
	recent       eventRing
	listener     ListenerStatus
}

func New(host string, port uint16) *Aggregator {
	return &Aggregator{
		domainCounts: make(map[string]uint64),
		recent:       newEventRing(eventHistoryCap),
		listener:     ListenerStatus{Host: host, Port: port},
	}
}

// RecordEvent folds one classified delivery into the statistics and returns
// the constructed event together with a snapshot taken inside the same
// critical section, so the snapshot always reflects its own event.
func (a *Aggregator) RecordEvent(envelopeFrom string, rcptTos []string, parsed mailparse.ParsedMessage, verdict classifier.Verdict) (Event, Snapshot) {
	event := Event{
		ID:         uuid.NewString(),
		Time:       time.Now().UTC(),
		From:       envelopeFrom,
		FromHeader: parsed.FromHeader,
		To:         append(make([]string, 0, len(rcptTos)), rcptTos...),
		Subject:    parsed.Subject,
		IsSpam:     verdict.IsSpam,
		Score:      verdict.Score,
	}
	domain := senderDomain(envelopeFrom, parsed.FromHeader)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalEmails++
	if verdict.IsSpam {
		a.spamCount++
	}
	if domain != "" {
		if _, seen := a.domainCounts[domain]; !seen {
			a.domainOrder = append(a.domainOrder, domain)
		}
		a.domainCounts[domain]++
	}
	a.recent.push(event)

	return event, a.snapshotLocked()
}

// SetListening flips the listener flag and returns the snapshot for the
// accompanying status broadcast.
func (a *Aggregator) SetListening(listening bool) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listener.Listening = listening
	return a.snapshotLocked()
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// RecentEvents returns a newest-first copy of the bounded event history.
func (a *Aggregator) RecentEvents() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.recent.newestFirst()
}

func (a *Aggregator) snapshotLocked() Snapshot {
	return Snapshot{
		TotalEmails: a.totalEmails,
		SpamCount:   a.spamCount,
		TopDomains:  a.topDomainsLocked(topDomainLimit),
		SMTPStatus:  a.listener,
	}
}

// topDomainsLocked ranks domains by count, ties broken by the order in which
// each domain was first seen.
func (a *Aggregator) topDomainsLocked(n int) []DomainCount {
	ranked := make([]DomainCount, 0, len(a.domainOrder))
	for _, domain := range a.domainOrder {
		ranked = append(ranked, DomainCount{Domain: domain, Count: a.domainCounts[domain]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// senderDomain extracts the sender's domain, preferring the envelope address.
// An envelope containing @ settles the question even when the part after it
// is empty. Otherwise the From header is consulted: trailing spaces and one
// trailing > are stripped, and anything still containing angle brackets or
// whitespace counts as no domain.
func senderDomain(envelopeFrom, fromHeader string) string {
	if at := strings.LastIndex(envelopeFrom, "@"); at >= 0 {
		return strings.ToLower(envelopeFrom[at+1:])
	}
	at := strings.LastIndex(fromHeader, "@")
	if at < 0 {
		return ""
	}
	domain := strings.TrimRight(fromHeader[at+1:], " ")
	domain = strings.TrimSuffix(domain, ">")
	if domain == "" || strings.ContainsAny(domain, "<> \t") {
		return ""
	}
	return strings.ToLower(domain)
}
