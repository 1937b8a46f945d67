package rewards

import (
	"encoding/json"
	"fmt"
	"time"

	"repute/internal/ledger"
)

const (
	SupplyCap         = 1_000_000_000
	CommunityPoolSize = 400_000_000
	StakingPoolSize   = 200_000_000
	TreasuryGenesis   = 100_000_000

	TreasuryAccount = "treasury"

	HalvingInterval   = 180 * 24 * time.Hour
	InitialMultiplier = 4

	BaseReviewReward = 50
	PerPhotoReward   = 10
	UpvoteReward     = 5
	DailyReward      = 20
)

// Ledger manages the capped fungible reward token: balances, distribution
// pools, staking and vesting. It owns every map it holds; other engines reach
// it only through the distributor surface handed out at construction.
type Ledger struct {
	balances  map[string]uint64
	claimable map[string]uint64
	stakes    map[string]*StakeInfo
	vesting   map[string][]*VestingSchedule
	blacklist map[string]struct{}
	lastDaily map[string]time.Time

	community *Pool
	staking   *Pool

	totalMinted uint64
	multiplier  uint64
	lastHalving time.Time

	busy bool
}

// NewLedger mints the treasury's genesis balance against the supply cap and
// allocates both distribution pools.
func NewLedger(now time.Time) *Ledger {
	l := &Ledger{
		balances:  make(map[string]uint64),
		claimable: make(map[string]uint64),
		stakes:    make(map[string]*StakeInfo),
		vesting:   make(map[string][]*VestingSchedule),
		blacklist: make(map[string]struct{}),
		lastDaily: make(map[string]time.Time),
		community: &Pool{Name: "community", TotalAllocated: CommunityPoolSize, Remaining: CommunityPoolSize},
		staking:   &Pool{Name: "staking", TotalAllocated: StakingPoolSize, Remaining: StakingPoolSize},

		multiplier:  InitialMultiplier,
		lastHalving: now,
	}
	l.balances[TreasuryAccount] = TreasuryGenesis
	l.totalMinted = TreasuryGenesis
	return l
}

func (l *Ledger) enter() error {
	if l.busy {
		return ledger.ErrReentrant
	}
	l.busy = true
	return nil
}

func (l *Ledger) leave() { l.busy = false }

func (l *Ledger) rejectBlacklisted(account string) error {
	if _, ok := l.blacklist[account]; ok {
		return fmt.Errorf("%w: account is blacklisted", ledger.ErrForbidden)
	}
	return nil
}

// checkHalving halves the global reward multiplier for every full halving
// interval elapsed since the last check, flooring at 1. Runs lazily at the
// head of every distribution.
func (l *Ledger) checkHalving(now time.Time) {
	for now.Sub(l.lastHalving) >= HalvingInterval {
		l.lastHalving = l.lastHalving.Add(HalvingInterval)
		if l.multiplier > 1 {
			l.multiplier /= 2
		}
	}
}

func (l *Ledger) draw(p *Pool, amount uint64) error {
	if p.Remaining < amount {
		return fmt.Errorf("%w: %s pool has %d remaining, need %d", ledger.ErrExhausted, p.Name, p.Remaining, amount)
	}
	p.Remaining -= amount
	p.Distributed += amount
	return nil
}

// DistributeReviewRewards credits the claimable balance for a submitted
// review: base plus a quality-proportional bonus plus a per-photo bonus, all
// scaled by the halving multiplier and drawn from the community pool.
func (l *Ledger) DistributeReviewRewards(account string, qualityScore int64, photoCount int, now time.Time) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.leave()

	if qualityScore < 0 || photoCount < 0 {
		return fmt.Errorf("%w: negative reward inputs", ledger.ErrValidation)
	}
	l.checkHalving(now)

	reward := (BaseReviewReward + uint64(qualityScore)/10 + uint64(photoCount)*PerPhotoReward) * l.multiplier
	if err := l.draw(l.community, reward); err != nil {
		return err
	}
	l.claimable[account] += reward
	return nil
}

func (l *Ledger) DistributeUpvoteRewards(account string, now time.Time) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.leave()

	l.checkHalving(now)
	reward := uint64(UpvoteReward) * l.multiplier
	if err := l.draw(l.community, reward); err != nil {
		return err
	}
	l.claimable[account] += reward
	return nil
}

// DistributeDailyReward enforces its own one-per-UTC-day gate, independent of
// the gamification engine's check-in gate.
func (l *Ledger) DistributeDailyReward(account string, now time.Time) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.leave()

	if last, ok := l.lastDaily[account]; ok && sameDay(last, now) {
		return fmt.Errorf("%w: daily reward already distributed today", ledger.ErrConflict)
	}
	l.checkHalving(now)
	reward := uint64(DailyReward) * l.multiplier
	if err := l.draw(l.community, reward); err != nil {
		return err
	}
	l.claimable[account] += reward
	l.lastDaily[account] = now
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// Claim pays out the caller's entire claimable balance, minting fresh supply
// up to the cap and covering any remainder from the treasury's held balance.
func (l *Ledger) Claim(account string, now time.Time) (*ClaimResult, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.leave()

	if err := l.rejectBlacklisted(account); err != nil {
		return nil, err
	}
	amount := l.claimable[account]
	if amount == 0 {
		return nil, fmt.Errorf("%w: nothing to claim", ledger.ErrValidation)
	}

	mintRoom := uint64(SupplyCap) - l.totalMinted
	minted := amount
	if minted > mintRoom {
		minted = mintRoom
	}
	fromTreasury := amount - minted
	if fromTreasury > 0 && l.balances[TreasuryAccount] < fromTreasury {
		return nil, fmt.Errorf("%w: treasury cannot cover claim past the supply cap", ledger.ErrExhausted)
	}

	l.totalMinted += minted
	if fromTreasury > 0 {
		l.balances[TreasuryAccount] -= fromTreasury
	}
	l.balances[account] += amount
	l.claimable[account] = 0

	return &ClaimResult{Account: account, Amount: amount, Minted: minted, FromTreasury: fromTreasury}, nil
}

func (l *Ledger) Transfer(from, to string, amount uint64) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.leave()

	if err := l.rejectBlacklisted(from); err != nil {
		return err
	}
	if err := l.rejectBlacklisted(to); err != nil {
		return err
	}
	if to == "" || from == to {
		return fmt.Errorf("%w: invalid transfer target", ledger.ErrValidation)
	}
	if amount == 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ledger.ErrValidation)
	}
	if l.balances[from] < amount {
		return fmt.Errorf("%w: insufficient balance", ledger.ErrValidation)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

func (l *Ledger) Blacklist(account string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.leave()

	if account == "" || account == TreasuryAccount {
		return fmt.Errorf("%w: cannot blacklist this account", ledger.ErrValidation)
	}
	l.blacklist[account] = struct{}{}
	return nil
}

func (l *Ledger) Unblacklist(account string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.leave()

	if _, ok := l.blacklist[account]; !ok {
		return fmt.Errorf("%w: account is not blacklisted", ledger.ErrNotFound)
	}
	delete(l.blacklist, account)
	return nil
}

func (l *Ledger) BalanceOf(account string) uint64   { return l.balances[account] }
func (l *Ledger) ClaimableOf(account string) uint64 { return l.claimable[account] }

func (l *Ledger) Pools() (community, staking Pool) {
	return *l.community, *l.staking
}

func (l *Ledger) Supply() SupplyInfo {
	return SupplyInfo{
		Cap:         SupplyCap,
		Minted:      l.totalMinted,
		Multiplier:  l.multiplier,
		LastHalving: l.lastHalving,
	}
}

type snapshot struct {
	Balances    map[string]uint64            `json:"balances"`
	Claimable   map[string]uint64            `json:"claimable"`
	Stakes      []*StakeInfo                 `json:"stakes"`
	Vesting     map[string][]*VestingSchedule `json:"vesting"`
	Blacklist   []string                     `json:"blacklist"`
	LastDaily   map[string]time.Time         `json:"last_daily"`
	Community   *Pool                        `json:"community"`
	Staking     *Pool                        `json:"staking"`
	TotalMinted uint64                       `json:"total_minted"`
	Multiplier  uint64                       `json:"multiplier"`
	LastHalving time.Time                    `json:"last_halving"`
}

func (l *Ledger) Snapshot() ([]byte, error) {
	snap := snapshot{
		Balances:    l.balances,
		Claimable:   l.claimable,
		Vesting:     l.vesting,
		LastDaily:   l.lastDaily,
		Community:   l.community,
		Staking:     l.staking,
		TotalMinted: l.totalMinted,
		Multiplier:  l.multiplier,
		LastHalving: l.lastHalving,
	}
	for _, s := range l.stakes {
		snap.Stakes = append(snap.Stakes, s)
	}
	for account := range l.blacklist {
		snap.Blacklist = append(snap.Blacklist, account)
	}
	return json.Marshal(snap)
}

func (l *Ledger) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	l.balances = snap.Balances
	l.claimable = snap.Claimable
	l.vesting = snap.Vesting
	l.lastDaily = snap.LastDaily
	l.community = snap.Community
	l.staking = snap.Staking
	l.totalMinted = snap.TotalMinted
	l.multiplier = snap.Multiplier
	l.lastHalving = snap.LastHalving
	l.stakes = make(map[string]*StakeInfo)
	for _, s := range snap.Stakes {
		l.stakes[s.Account] = s
	}
	l.blacklist = make(map[string]struct{})
	for _, account := range snap.Blacklist {
		l.blacklist[account] = struct{}{}
	}
	if l.balances == nil {
		l.balances = make(map[string]uint64)
	}
	if l.claimable == nil {
		l.claimable = make(map[string]uint64)
	}
	if l.vesting == nil {
		l.vesting = make(map[string][]*VestingSchedule)
	}
	if l.lastDaily == nil {
		l.lastDaily = make(map[string]time.Time)
	}
	return nil
}
