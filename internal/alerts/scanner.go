package alerts

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aoi01/fridgesnap/internal/expiry"
	"github.com/aoi01/fridgesnap/internal/models"
)

const kindExpiry = "expiry.alert"

type ItemSource interface {
	Items(context.Context) []models.FoodItem
	Today() models.Date
}

type Broadcaster interface {
	Broadcast(payload any) (int, error)
}

type Item struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   expiry.Status `json:"status"`
	DaysLeft int           `json:"daysLeft"`
}

type Alert struct {
	Kind        string    `json:"kind"`
	GeneratedAt time.Time `json:"generatedAt"`
	Items       []Item    `json:"items"`
}

// Scanner periodically looks for items that need eating soon.
type Scanner struct {
	source   ItemSource
	out      Broadcaster
	interval time.Duration
	log      Log
	now      func() time.Time
}

func NewScanner(source ItemSource, out Broadcaster, interval time.Duration, log Log) *Scanner {
	return &Scanner{
		source:   source,
		out:      out,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Scan classifies every item and broadcasts an alert when at least one is
// urgent. It returns the alert, or nil when nothing is urgent.
func (s *Scanner) Scan(ctx context.Context) *Alert {
	entries := expiry.Annotate(s.source.Today(), s.source.Items(ctx))

	alert := &Alert{Kind: kindExpiry, GeneratedAt: s.now().UTC()}
	for _, e := range entries {
		if !e.Status.Urgent() {
			continue
		}
		alert.Items = append(alert.Items, Item{
			ID:       e.ID,
			Name:     e.Name,
			Status:   e.Status,
			DaysLeft: e.DaysLeft,
		})
	}
	if len(alert.Items) == 0 {
		return nil
	}

	sent, err := s.out.Broadcast(alert)
	if err != nil {
		s.log.Warn("failed to broadcast expiry alert", zap.Error(err))
		return alert
	}
	s.log.Debug("expiry alert sent", zap.Int("items", len(alert.Items)), zap.Int("clients", sent))
	return alert
}

// Run scans every interval until ctx is done. A non-positive interval
// disables scanning.
func (s *Scanner) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info("expiry alerts disabled")
		return
	}

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Scan(ctx)
		}
	}
}
