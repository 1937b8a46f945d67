package rewards

import (
	"fmt"
	"time"

	"repute/internal/ledger"
)

// CreateVestingSchedule registers a time-linear unlock plan for a
// pre-allocated grant. Used for initial team/partner allocations; releases
// mint against the supply cap.
func (l *Ledger) CreateVestingSchedule(beneficiary string, total uint64, start time.Time, cliff, duration time.Duration, revocable bool) (*VestingSchedule, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.leave()

	if beneficiary == "" {
		return nil, fmt.Errorf("%w: beneficiary is required", ledger.ErrValidation)
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: vesting amount must be positive", ledger.ErrValidation)
	}
	if duration <= 0 || cliff < 0 || cliff > duration {
		return nil, fmt.Errorf("%w: invalid cliff/duration", ledger.ErrValidation)
	}

	schedule := &VestingSchedule{
		Beneficiary: beneficiary,
		TotalAmount: total,
		StartAt:     start,
		Cliff:       cliff,
		Duration:    duration,
		Revocable:   revocable,
	}
	l.vesting[beneficiary] = append(l.vesting[beneficiary], schedule)
	out := *schedule
	return &out, nil
}

// vestedAmount is the linear unlock: zero before the cliff, the full grant
// once the duration has elapsed. A revoked schedule freezes at revocation
// time.
func vestedAmount(s *VestingSchedule, now time.Time) uint64 {
	if s.Revoked && now.After(s.RevokedAt) {
		now = s.RevokedAt
	}
	elapsed := now.Sub(s.StartAt)
	if elapsed < s.Cliff {
		return 0
	}
	if elapsed >= s.Duration {
		return s.TotalAmount
	}
	return s.TotalAmount * uint64(elapsed/time.Second) / uint64(s.Duration/time.Second)
}

// ReleaseVesting pays out whatever has vested since the last release on the
// caller's schedule at index.
func (l *Ledger) ReleaseVesting(account string, index int, now time.Time) (*VestingSchedule, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.leave()

	if err := l.rejectBlacklisted(account); err != nil {
		return nil, err
	}
	schedules := l.vesting[account]
	if index < 0 || index >= len(schedules) {
		return nil, fmt.Errorf("%w: vesting schedule", ledger.ErrNotFound)
	}
	s := schedules[index]

	releasable := vestedAmount(s, now) - s.ReleasedAmount
	if releasable == 0 {
		return nil, fmt.Errorf("%w: nothing to release", ledger.ErrValidation)
	}
	if l.totalMinted+releasable > SupplyCap {
		return nil, fmt.Errorf("%w: release would exceed the supply cap", ledger.ErrExhausted)
	}

	l.totalMinted += releasable
	s.ReleasedAmount += releasable
	l.balances[account] += releasable
	out := *s
	return &out, nil
}

// RevokeVesting stops future vesting on a revocable schedule. Already-vested
// amounts stay releasable.
func (l *Ledger) RevokeVesting(account string, index int, now time.Time) (*VestingSchedule, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.leave()

	schedules := l.vesting[account]
	if index < 0 || index >= len(schedules) {
		return nil, fmt.Errorf("%w: vesting schedule", ledger.ErrNotFound)
	}
	s := schedules[index]
	if !s.Revocable {
		return nil, fmt.Errorf("%w: schedule is not revocable", ledger.ErrValidation)
	}
	if s.Revoked {
		return nil, fmt.Errorf("%w: schedule already revoked", ledger.ErrConflict)
	}
	s.Revoked = true
	s.RevokedAt = now
	out := *s
	return &out, nil
}

func (l *Ledger) VestingOf(account string) []VestingSchedule {
	schedules := l.vesting[account]
	out := make([]VestingSchedule, 0, len(schedules))
	for _, s := range schedules {
		out = append(out, *s)
	}
	return out
}
