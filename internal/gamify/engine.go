package gamify

import (
	"encoding/json"
	"fmt"
	"time"

	"repute/internal/ledger"

	"go.uber.org/zap"
)

const (
	ReviewBasePoints   = 100
	ReviewStarPoints   = 20
	UpvotePoints       = 10
	PhotoPoints        = 25
	CheckInPoints      = 50
	StreakWindow       = 48 * time.Hour
	StreakBonusAt      = 7
	seasonWinnerCount  = 10
)

// Distributor is the reward-ledger surface this engine notifies. Calls are
// best-effort: a failed payout never rolls back points.
type Distributor interface {
	DistributeReviewRewards(account string, qualityScore int64, photoCount int, now time.Time) error
	DistributeUpvoteRewards(account string, now time.Time) error
	DistributeDailyReward(account string, now time.Time) error
}

// Engine tracks points, streaks, levels, badges, leaderboards and seasons.
type Engine struct {
	stats    map[string]*UserStats
	catalog  []*Badge
	global   *board
	weekly   *board
	monthly  *board
	seasons  []*Season
	busy     bool

	distributor Distributor
	logger      *zap.SugaredLogger
}

func NewEngine(distributor Distributor, logger *zap.SugaredLogger) *Engine {
	e := &Engine{
		stats:       make(map[string]*UserStats),
		global:      &board{},
		weekly:      &board{},
		monthly:     &board{},
		distributor: distributor,
		logger:      logger,
	}
	e.seedBadges()
	return e
}

func (e *Engine) enter() error {
	if e.busy {
		return ledger.ErrReentrant
	}
	e.busy = true
	return nil
}

func (e *Engine) leave() { e.busy = false }

func (e *Engine) userStats(account string) *UserStats {
	s, ok := e.stats[account]
	if !ok {
		s = &UserStats{Account: account}
		e.stats[account] = s
	}
	return s
}

// advanceStreak continues the streak when the gap since the last activity is
// inside the window, otherwise resets it to 1.
func advanceStreak(s *UserStats, now time.Time) {
	if s.LastActivity.IsZero() || now.Sub(s.LastActivity) > StreakWindow {
		s.CurrentStreak = 1
	} else {
		s.CurrentStreak++
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastActivity = now
}

// AwardReviewPoints credits points for a submitted review: a flat base plus a
// per-star bonus, doubled once the account's streak reaches the bonus length.
// The photo count rides along on the reward notification so the ledger can pay
// its per-photo bonus; the photo points themselves come via AwardPhotoPoints.
func (e *Engine) AwardReviewPoints(account string, rating, photoCount int, now time.Time) (*UserStats, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating out of range", ledger.ErrValidation)
	}
	if photoCount < 0 {
		return nil, fmt.Errorf("%w: photo count cannot be negative", ledger.ErrValidation)
	}

	s := e.userStats(account)
	advanceStreak(s, now)

	points := int64(ReviewBasePoints + rating*ReviewStarPoints)
	if s.CurrentStreak >= StreakBonusAt {
		points *= 2
	}
	s.ReviewCount++
	e.credit(s, points, now)

	if e.distributor != nil {
		ledger.Notify(e.logger, "rewards.distribute_review", func() error {
			return e.distributor.DistributeReviewRewards(account, points, photoCount, now)
		})
	}
	out := *s
	return &out, nil
}

// AwardUpvotePoints credits a flat bonus for receiving an upvote. No streak
// interaction.
func (e *Engine) AwardUpvotePoints(account string, now time.Time) (*UserStats, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	s := e.userStats(account)
	s.UpvoteCount++
	e.credit(s, UpvotePoints, now)

	if e.distributor != nil {
		ledger.Notify(e.logger, "rewards.distribute_upvote", func() error {
			return e.distributor.DistributeUpvoteRewards(account, now)
		})
	}
	out := *s
	return &out, nil
}

// AwardPhotoPoints credits a flat bonus per attached photo. No streak
// interaction.
func (e *Engine) AwardPhotoPoints(account string, photoCount int, now time.Time) (*UserStats, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if photoCount <= 0 {
		return nil, fmt.Errorf("%w: photo count must be positive", ledger.ErrValidation)
	}
	s := e.userStats(account)
	s.PhotoCount += photoCount
	e.credit(s, int64(photoCount)*PhotoPoints, now)
	out := *s
	return &out, nil
}

// DailyCheckIn awards the once-per-day bonus. The check-in shares the streak
// counter with reviews. The reward ledger keeps its own independent daily
// gate; the two can drift and that is accepted.
func (e *Engine) DailyCheckIn(account string, now time.Time) (*UserStats, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	s := e.userStats(account)
	if !s.LastCheckIn.IsZero() && sameDay(s.LastCheckIn, now) {
		return nil, fmt.Errorf("%w: already checked in today", ledger.ErrConflict)
	}
	advanceStreak(s, now)

	points := int64(CheckInPoints)
	if s.CurrentStreak >= StreakBonusAt {
		points *= 2
	}
	s.CheckInCount++
	s.LastCheckIn = now
	e.credit(s, points, now)

	if e.distributor != nil {
		ledger.Notify(e.logger, "rewards.distribute_daily", func() error {
			return e.distributor.DistributeDailyReward(account, now)
		})
	}
	out := *s
	return &out, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// credit applies earned points to totals, experience, level, badges and all
// three leaderboards.
func (e *Engine) credit(s *UserStats, points int64, now time.Time) {
	s.TotalPoints += points
	s.Experience += points
	s.Level = levelFor(s.Experience)
	e.evaluateBadges(s, now)

	e.global.upsert(s.Account, points, now)
	e.weekly.roll(weekPeriod(now))
	e.weekly.upsert(s.Account, points, now)
	e.monthly.roll(monthPeriod(now))
	e.monthly.upsert(s.Account, points, now)
}

// levelFor returns the largest level L with experience >= L^2 * 100.
func levelFor(experience int64) int {
	level := 0
	for int64(level+1)*int64(level+1)*100 <= experience {
		level++
	}
	return level
}

func (e *Engine) Stats(account string) (*UserStats, error) {
	s, ok := e.stats[account]
	if !ok {
		return nil, fmt.Errorf("%w: user stats", ledger.ErrNotFound)
	}
	out := *s
	return &out, nil
}

func (e *Engine) Leaderboard(name BoardName, limit int) []LeaderboardEntry {
	if limit <= 0 {
		limit = 100
	}
	switch name {
	case BoardWeekly:
		return e.weekly.top(limit)
	case BoardMonthly:
		return e.monthly.top(limit)
	default:
		return e.global.top(limit)
	}
}

// StartSeason opens a new competition window. Only one season may be active.
func (e *Engine) StartSeason(duration time.Duration, totalRewards int64, now time.Time) (*Season, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if duration <= 0 {
		return nil, fmt.Errorf("%w: season duration must be positive", ledger.ErrValidation)
	}
	if current := e.currentSeason(); current != nil {
		return nil, fmt.Errorf("%w: a season is already active", ledger.ErrConflict)
	}
	season := &Season{
		Number:       len(e.seasons) + 1,
		StartedAt:    now,
		EndsAt:       now.Add(duration),
		TotalRewards: totalRewards,
		Active:       true,
	}
	e.seasons = append(e.seasons, season)
	out := *season
	return &out, nil
}

// EndSeason closes the active season once its end time has passed and records
// the top accounts of the global board as winners.
func (e *Engine) EndSeason(now time.Time) (*Season, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	season := e.currentSeason()
	if season == nil {
		return nil, fmt.Errorf("%w: no active season", ledger.ErrNotFound)
	}
	if now.Before(season.EndsAt) {
		return nil, fmt.Errorf("%w: season has not ended yet", ledger.ErrValidation)
	}
	for _, entry := range e.global.top(seasonWinnerCount) {
		season.Winners = append(season.Winners, entry.Account)
	}
	season.Active = false
	out := *season
	return &out, nil
}

func (e *Engine) currentSeason() *Season {
	for _, s := range e.seasons {
		if s.Active {
			return s
		}
	}
	return nil
}

func (e *Engine) CurrentSeason() (*Season, error) {
	s := e.currentSeason()
	if s == nil {
		return nil, fmt.Errorf("%w: no active season", ledger.ErrNotFound)
	}
	out := *s
	return &out, nil
}

type snapshot struct {
	Stats   []*UserStats `json:"stats"`
	Catalog []*Badge     `json:"catalog"`
	Global  *board       `json:"global"`
	Weekly  *board       `json:"weekly"`
	Monthly *board       `json:"monthly"`
	Seasons []*Season    `json:"seasons"`
}

func (e *Engine) Snapshot() ([]byte, error) {
	snap := snapshot{
		Catalog: e.catalog,
		Global:  e.global,
		Weekly:  e.weekly,
		Monthly: e.monthly,
		Seasons: e.seasons,
	}
	for _, s := range e.stats {
		snap.Stats = append(snap.Stats, s)
	}
	return json.Marshal(snap)
}

func (e *Engine) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	e.stats = make(map[string]*UserStats)
	for _, s := range snap.Stats {
		e.stats[s.Account] = s
	}
	if len(snap.Catalog) > 0 {
		e.catalog = snap.Catalog
	}
	if snap.Global != nil {
		e.global = snap.Global
	}
	if snap.Weekly != nil {
		e.weekly = snap.Weekly
	}
	if snap.Monthly != nil {
		e.monthly = snap.Monthly
	}
	e.seasons = snap.Seasons
	return nil
}
