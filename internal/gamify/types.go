package gamify

import "time"

type UserStats struct {
	Account       string        `json:"account"`
	TotalPoints   int64         `json:"total_points"`
	CurrentStreak int           `json:"current_streak"`
	LongestStreak int           `json:"longest_streak"`
	LastActivity  time.Time     `json:"last_activity"`
	ReviewCount   int           `json:"review_count"`
	PhotoCount    int           `json:"photo_count"`
	UpvoteCount   int           `json:"upvote_count"`
	Level         int           `json:"level"`
	Experience    int64         `json:"experience"`
	Badges        []EarnedBadge `json:"badges,omitempty"`
	CheckInCount  int           `json:"check_in_count"`
	LastCheckIn   time.Time     `json:"last_check_in,omitempty"`
}

// Badge is a catalog entry. A zero threshold on a dimension means that
// dimension is ignored when judging eligibility.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MinPoints   int64  `json:"min_points"`
	MinReviews  int    `json:"min_reviews"`
	MinStreak   int    `json:"min_streak"`
}

// EarnedBadge is the one-of-a-kind collectible minted the first time an
// account satisfies a badge's thresholds. Never revoked, never re-awarded.
type EarnedBadge struct {
	BadgeID       string    `json:"badge_id"`
	CollectibleID string    `json:"collectible_id"`
	EarnedAt      time.Time `json:"earned_at"`
}

type LeaderboardEntry struct {
	Account   string    `json:"account"`
	Score     int64     `json:"score"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Season struct {
	Number       int       `json:"number"`
	StartedAt    time.Time `json:"started_at"`
	EndsAt       time.Time `json:"ends_at"`
	TotalRewards int64     `json:"total_rewards"`
	Active       bool      `json:"active"`
	Winners      []string  `json:"winners,omitempty"`
}
