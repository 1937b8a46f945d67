package gamify

import (
	"fmt"
	"sort"
	"time"
)

type BoardName string

const (
	BoardGlobal  BoardName = "global"
	BoardWeekly  BoardName = "weekly"
	BoardMonthly BoardName = "monthly"
)

func ParseBoard(s string) (BoardName, error) {
	switch BoardName(s) {
	case BoardGlobal, BoardWeekly, BoardMonthly:
		return BoardName(s), nil
	}
	return "", fmt.Errorf("unknown leaderboard %q", s)
}

// board keeps one live entry per account, re-sorted on every update. Ties are
// broken by ascending account id so rankings are deterministic.
type board struct {
	Entries []*LeaderboardEntry `json:"entries"`
	Period  string              `json:"period,omitempty"`
}

func (b *board) upsert(account string, delta int64, now time.Time) {
	for _, e := range b.Entries {
		if e.Account == account {
			e.Score += delta
			e.UpdatedAt = now
			b.sort()
			return
		}
	}
	b.Entries = append(b.Entries, &LeaderboardEntry{Account: account, Score: delta, UpdatedAt: now})
	b.sort()
}

func (b *board) sort() {
	sort.Slice(b.Entries, func(i, j int) bool {
		if b.Entries[i].Score != b.Entries[j].Score {
			return b.Entries[i].Score > b.Entries[j].Score
		}
		return b.Entries[i].Account < b.Entries[j].Account
	})
}

// roll resets the board when its period key no longer matches the clock.
func (b *board) roll(period string) {
	if b.Period == period {
		return
	}
	b.Period = period
	b.Entries = nil
}

func (b *board) top(n int) []LeaderboardEntry {
	if n > len(b.Entries) {
		n = len(b.Entries)
	}
	out := make([]LeaderboardEntry, 0, n)
	for _, e := range b.Entries[:n] {
		out = append(out, *e)
	}
	return out
}

func weekPeriod(now time.Time) string {
	year, week := now.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthPeriod(now time.Time) string {
	return now.UTC().Format("2006-01")
}
