// Package analytics records privacy-conscious visitor counts and which FAQ
// topics visitors ask about.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zachkp/folio/internal/db"
)

const (
	OutcomeResolved = "resolved"
	OutcomeFallback = "fallback"
)

// VisitorMetric is one tracked page view. The IP address is only ever stored hashed.
type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// KeywordLookup is the hit count of one topic by outcome.
type KeywordLookup struct {
	Topic      string    `json:"topic"`
	Outcome    string    `json:"outcome"`
	Count      int64     `json:"count"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	TotalQuestions   int64           `json:"total_questions"`
	FallbackRate     float64         `json:"fallback_rate"`
	TopTopics        []KeywordLookup `json:"top_topics"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
}

// Tracker writes and summarizes analytics rows.
type Tracker struct {
	db   *db.DB
	salt string
	log  zerolog.Logger
	now  func() time.Time
}

// NewTracker creates a tracker with a fresh random hashing salt, so hashes
// cannot be correlated across restarts.
func NewTracker(database *db.DB, log zerolog.Logger) (*Tracker, error) {
	salt, err := RandomToken()
	if err != nil {
		return nil, err
	}
	return &Tracker{
		db:   database,
		salt: salt,
		log:  log.With().Str("component", "analytics").Logger(),
		now:  time.Now,
	}, nil
}

// RandomToken returns 32 random bytes hex encoded.
func RandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashIP returns a salted, truncated SHA-256 of ip, stable for the tracker's lifetime.
func (t *Tracker) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + t.salt))
	return hex.EncodeToString(sum[:])[:16]
}

func (t *Tracker) stamp(ts time.Time) string {
	return ts.UTC().Format(time.DateTime)
}

// RecordVisit stores one page view.
func (t *Tracker) RecordVisit(ctx context.Context, ip, userAgent, path string) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)`,
		t.HashIP(ip), userAgent, path, t.stamp(t.now()),
	)
	if err != nil {
		return fmt.Errorf("recording visitor: %w", err)
	}
	return nil
}

// RecordLookup counts one answered question for topic.
func (t *Tracker) RecordLookup(ctx context.Context, topic, outcome string) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO chatbot_lookups (topic, outcome, count, last_seen_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(topic, outcome) DO UPDATE SET count = count + 1, last_seen_at = excluded.last_seen_at`,
		topic, outcome, t.stamp(t.now()),
	)
	if err != nil {
		return fmt.Errorf("recording lookup: %w", err)
	}
	return nil
}

// Cleanup deletes visitor rows older than retention and returns how many were removed.
func (t *Tracker) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	result, err := t.db.ExecContext(ctx,
		`DELETE FROM visitors WHERE timestamp < ?`, t.stamp(t.now().Add(-retention)))
	if err != nil {
		return 0, fmt.Errorf("cleaning up visitors: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		t.log.Info().Int64("rows", n).Dur("retention", retention).Msg("privacy cleanup removed old visitor records")
	}
	return n, nil
}

// Stats summarizes visitors and chatbot usage.
func (t *Tracker) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	now := t.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts := []struct {
		query string
		args  []any
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM visitors`, nil, &stats.TotalVisitors},
		{`SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil, &stats.UniqueVisitors},
		{`SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{t.stamp(startOfDay)}, &stats.VisitorsToday},
		{`SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{t.stamp(now.Add(-7 * 24 * time.Hour))}, &stats.VisitorsThisWeek},
		{`SELECT COALESCE(SUM(count), 0) FROM chatbot_lookups`, nil, &stats.TotalQuestions},
	}
	for _, c := range counts {
		if err := t.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("querying stats: %w", err)
		}
	}

	var fallbacks int64
	if err := t.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(count), 0) FROM chatbot_lookups WHERE outcome = ?`, OutcomeFallback,
	).Scan(&fallbacks); err != nil {
		return nil, fmt.Errorf("querying fallbacks: %w", err)
	}
	if stats.TotalQuestions > 0 {
		stats.FallbackRate = float64(fallbacks) / float64(stats.TotalQuestions)
	}

	topics, err := t.TopTopics(ctx, 10)
	if err != nil {
		return nil, err
	}
	stats.TopTopics = topics

	visitors, err := t.RecentVisitors(ctx, 50)
	if err != nil {
		return nil, err
	}
	stats.RecentVisitors = visitors

	return stats, nil
}

// TopTopics returns the most asked topics.
func (t *Tracker) TopTopics(ctx context.Context, limit int) ([]KeywordLookup, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT topic, outcome, count, last_seen_at FROM chatbot_lookups
		 ORDER BY count DESC, topic ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	var out []KeywordLookup
	for rows.Next() {
		var k KeywordLookup
		var seen string
		if err := rows.Scan(&k.Topic, &k.Outcome, &k.Count, &seen); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		k.LastSeenAt = parseStamp(seen)
		out = append(out, k)
	}
	return out, rows.Err()
}

// RecentVisitors returns the latest page views, newest first.
func (t *Tracker) RecentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		 FROM visitors ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying visitors: %w", err)
	}
	defer rows.Close()

	var out []VisitorMetric
	for rows.Next() {
		var v VisitorMetric
		var ts string
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, fmt.Errorf("scanning visitor: %w", err)
		}
		v.Timestamp = parseStamp(ts)
		out = append(out, v)
	}
	return out, rows.Err()
}

// parseStamp accepts both the stored form and the RFC 3339 form database/sql
// produces when the driver hands back DATETIME columns as time.Time.
func parseStamp(s string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339Nano} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
