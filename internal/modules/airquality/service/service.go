// Package service answers selection events from MQTT sessions: each event
// recomputes the dashboard views for that session and publishes them back.
package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"airquality-server/internal/modules/airquality/dataset"
	"airquality-server/internal/modules/airquality/report"
)

var ErrInvalidTopic = errors.New("invalid selection topic")

// Publisher sends a JSON document to a topic.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Subscriber delivers raw messages from the selection topic.
type Subscriber interface {
	SetMessageHandler(h func(topic string, payload []byte))
}

// DefaultMaxSessions bounds the selections kept when no limit is configured.
const DefaultMaxSessions = 1024

type Service struct {
	data        dataset.RecordSet
	publisher   Publisher
	topicPrefix string
	logger      *slog.Logger

	// mu serialises read-merge-store of a session's selection.
	mu       sync.Mutex
	sessions *lru.Cache[string, report.Selection]
}

// NewService keeps the selection of at most maxSessions sessions, evicting
// the least recently active one. maxSessions <= 0 means DefaultMaxSessions.
func NewService(data dataset.RecordSet, publisher Publisher, topicPrefix string, maxSessions int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	sessions, err := lru.New[string, report.Selection](maxSessions)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &Service{
		data:        data,
		publisher:   publisher,
		topicPrefix: strings.TrimSuffix(topicPrefix, "/"),
		logger:      logger,
		sessions:    sessions,
	}
}

// Register attaches the selection handler. Invalid messages are logged and
// dropped.
func (s *Service) Register(sub Subscriber) {
	sub.SetMessageHandler(func(topic string, payload []byte) {
		if err := s.HandleSelection(topic, payload); err != nil {
			s.logger.Warn("selection event dropped", "topic", topic, "error", err)
		}
	})
}

// HandleSelection merges the event over the session's stored selection,
// recomputes the views and publishes them to <prefix>/<session>/views. Fields
// left zero in the event keep their stored value.
func (s *Service) HandleSelection(topic string, payload []byte) error {
	session, err := sessionFromTopic(topic)
	if err != nil {
		return err
	}

	var sel report.Selection
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sel); err != nil {
		return fmt.Errorf("decode selection: %w", err)
	}

	if err := sel.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if prev, ok := s.sessions.Get(session); ok {
		sel = merge(prev, sel)
	}
	views, err := report.Recompute(s.data, sel)
	if err == nil {
		s.sessions.Add(session, views.Selection)
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("recompute session %s: %w", session, err)
	}

	out := s.ViewsTopic(session)
	if err := s.publisher.PublishJSON(out, views); err != nil {
		return fmt.Errorf("publish session %s: %w", session, err)
	}
	s.logger.Debug("views published",
		"session", session,
		"topic", out,
		"year", views.Selection.Year,
		"station", views.Selection.Station,
		"month", views.Selection.Month,
		"sessions", s.Sessions(),
	)
	return nil
}

// merge overlays the chosen fields of next on prev.
func merge(prev, next report.Selection) report.Selection {
	if next.Year != 0 {
		prev.Year = next.Year
	}
	if next.Station != "" {
		prev.Station = next.Station
	}
	if next.Month != 0 {
		prev.Month = next.Month
	}
	return prev
}

// Sessions reports how many session selections are held.
func (s *Service) Sessions() int {
	return s.sessions.Len()
}

func (s *Service) ViewsTopic(session string) string {
	return s.topicPrefix + "/" + session + "/views"
}

// sessionFromTopic returns the segment before the trailing "/selection".
func sessionFromTopic(topic string) (string, error) {
	rest, ok := strings.CutSuffix(topic, "/selection")
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	session := rest[strings.LastIndex(rest, "/")+1:]
	if session == "" || strings.ContainsAny(session, "+#") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}
	return session, nil
}
