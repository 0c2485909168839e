package stats

import "time"

// Event is one processed delivery, immutable once constructed.
type Event struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	From       string    `json:"from"`
	FromHeader string    `json:"from_header"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	IsSpam     bool      `json:"is_spam"`
	Score      float64   `json:"score"`
}

// Snapshot is a point-in-time, internally consistent view of the aggregate
// statistics, safe to hand to observers.
type Snapshot struct {
	TotalEmails uint64         `json:"total_emails"`
	SpamCount   uint64         `json:"spam_count"`
	TopDomains  []DomainCount  `json:"top_domains"`
	SMTPStatus  ListenerStatus `json:"smtp_status"`
}

type DomainCount struct {
	Domain string `json:"domain"`
	Count  uint64 `json:"count"`
}

type ListenerStatus struct {
	Listening bool   `json:"listening"`
	Host      string `json:"host"`
	Port      uint16 `json:"port"`
}
