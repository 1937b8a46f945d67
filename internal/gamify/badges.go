package gamify

import (
	"fmt"
	"time"

	"repute/internal/ledger"

	"github.com/google/uuid"
)

func (e *Engine) seedBadges() {
	e.catalog = []*Badge{
		{ID: "first-review", Name: "First Review", Description: "Posted a first review", MinReviews: 1},
		{ID: "regular-reviewer", Name: "Regular Reviewer", Description: "Posted 10 reviews", MinReviews: 10},
		{ID: "review-century", Name: "Review Century", Description: "Posted 100 reviews", MinReviews: 100},
		{ID: "week-streak", Name: "Week Streak", Description: "Kept a 7-day activity streak", MinStreak: 7},
		{ID: "month-streak", Name: "Month Streak", Description: "Kept a 30-day activity streak", MinStreak: 30},
		{ID: "point-collector", Name: "Point Collector", Description: "Earned 1,000 points", MinPoints: 1000},
		{ID: "point-hoarder", Name: "Point Hoarder", Description: "Earned 10,000 points", MinPoints: 10000},
	}
}

// AddBadge registers a new catalog entry. At least one threshold must be set,
// otherwise every account would earn it on first activity.
func (e *Engine) AddBadge(b Badge) (*Badge, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if b.ID == "" || b.Name == "" {
		return nil, fmt.Errorf("%w: badge id and name are required", ledger.ErrValidation)
	}
	if b.MinPoints == 0 && b.MinReviews == 0 && b.MinStreak == 0 {
		return nil, fmt.Errorf("%w: badge needs at least one threshold", ledger.ErrValidation)
	}
	for _, existing := range e.catalog {
		if existing.ID == b.ID {
			return nil, fmt.Errorf("%w: badge id already exists", ledger.ErrConflict)
		}
	}
	entry := b
	e.catalog = append(e.catalog, &entry)
	return &entry, nil
}

func (e *Engine) Badges() []Badge {
	out := make([]Badge, 0, len(e.catalog))
	for _, b := range e.catalog {
		out = append(out, *b)
	}
	return out
}

func (e *Engine) EarnedBadges(account string) []EarnedBadge {
	s, ok := e.stats[account]
	if !ok {
		return nil
	}
	out := make([]EarnedBadge, len(s.Badges))
	copy(out, s.Badges)
	return out
}

// evaluateBadges mints a collectible for every badge whose nonzero thresholds
// are all satisfied and that the account has not earned before.
func (e *Engine) evaluateBadges(s *UserStats, now time.Time) {
	for _, b := range e.catalog {
		if e.hasBadge(s, b.ID) {
			continue
		}
		if b.MinPoints > 0 && s.TotalPoints < b.MinPoints {
			continue
		}
		if b.MinReviews > 0 && s.ReviewCount < b.MinReviews {
			continue
		}
		if b.MinStreak > 0 && s.CurrentStreak < b.MinStreak {
			continue
		}
		s.Badges = append(s.Badges, EarnedBadge{
			BadgeID:       b.ID,
			CollectibleID: uuid.NewString(),
			EarnedAt:      now,
		})
	}
}

func (e *Engine) hasBadge(s *UserStats, badgeID string) bool {
	for _, earned := range s.Badges {
		if earned.BadgeID == badgeID {
			return true
		}
	}
	return false
}
