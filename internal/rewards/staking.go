package rewards

import (
	"fmt"
	"time"

	"repute/internal/ledger"
)

const year = 365 * 24 * time.Hour

// apyFor maps a lock duration onto its APY tier. Locks under 30 days are not
// accepted.
func apyFor(lock time.Duration) (int, error) {
	switch {
	case lock >= 365*24*time.Hour:
		return 20, nil
	case lock >= 180*24*time.Hour:
		return 15, nil
	case lock >= 90*24*time.Hour:
		return 10, nil
	case lock >= 30*24*time.Hour:
		return 5, nil
	default:
		return 0, fmt.Errorf("%w: minimum lock is 30 days", ledger.ErrValidation)
	}
}

// Stake locks part of the caller's balance. One active stake per account.
func (l *Ledger) Stake(account string, amount uint64, lock time.Duration, now time.Time) (*StakeInfo, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.leave()

	if err := l.rejectBlacklisted(account); err != nil {
		return nil, err
	}
	if _, active := l.stakes[account]; active {
		return nil, fmt.Errorf("%w: account already has an active stake", ledger.ErrConflict)
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: stake amount must be positive", ledger.ErrValidation)
	}
	apy, err := apyFor(lock)
	if err != nil {
		return nil, err
	}
	if l.balances[account] < amount {
		return nil, fmt.Errorf("%w: insufficient balance", ledger.ErrValidation)
	}

	l.balances[account] -= amount
	stake := &StakeInfo{
		Account:      account,
		Amount:       amount,
		StartAt:      now,
		LockDuration: lock,
		APY:          apy,
		LastClaimAt:  now,
	}
	l.stakes[account] = stake
	out := *stake
	return &out, nil
}

// Unstake pays back the principal plus simple interest for the elapsed time,
// drawn from the staking pool and capped at whatever the pool has left.
func (l *Ledger) Unstake(account string, now time.Time) (*UnstakeResult, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.leave()

	if err := l.rejectBlacklisted(account); err != nil {
		return nil, err
	}
	stake, ok := l.stakes[account]
	if !ok {
		return nil, fmt.Errorf("%w: no active stake", ledger.ErrNotFound)
	}
	if now.Before(stake.StartAt.Add(stake.LockDuration)) {
		return nil, fmt.Errorf("%w: stake is locked until %s", ledger.ErrValidation, stake.StartAt.Add(stake.LockDuration).Format(time.RFC3339))
	}

	elapsed := now.Sub(stake.StartAt)
	reward := stake.Amount * uint64(stake.APY) / 100 * uint64(elapsed/time.Second) / uint64(year/time.Second)
	if reward > l.staking.Remaining {
		reward = l.staking.Remaining
	}
	if reward > 0 {
		if err := l.draw(l.staking, reward); err != nil {
			return nil, err
		}
	}

	l.balances[account] += stake.Amount + reward
	delete(l.stakes, account)
	return &UnstakeResult{Account: account, Principal: stake.Amount, Reward: reward}, nil
}

func (l *Ledger) StakeOf(account string) (*StakeInfo, error) {
	stake, ok := l.stakes[account]
	if !ok {
		return nil, fmt.Errorf("%w: no active stake", ledger.ErrNotFound)
	}
	out := *stake
	return &out, nil
}
