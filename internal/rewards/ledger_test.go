package rewards_test

import (
	"encoding/json"
	"testing"
	"time"

	"repute/internal/ledger"
	"repute/internal/rewards"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fund gives account a spendable balance by distributing and claiming a
// review reward of exactly amount. amount must be a multiple of the initial
// multiplier and at least the scaled base reward.
func fund(t *testing.T, l *rewards.Ledger, account string, amount uint64) {
	t.Helper()
	quality := (int64(amount)/rewards.InitialMultiplier - rewards.BaseReviewReward) * 10
	require.NoError(t, l.DistributeReviewRewards(account, quality, 0, base))
	result, err := l.Claim(account, base)
	require.NoError(t, err)
	require.Equal(t, amount, result.Amount)
}

// restoreState loads a hand-built snapshot so tests can start from ledger
// states that are unreachable through the public surface, like a nearly
// exhausted supply.
func restoreState(t *testing.T, l *rewards.Ledger, state map[string]any) {
	t.Helper()
	if _, ok := state["community"]; !ok {
		state["community"] = map[string]any{
			"name":            "community",
			"total_allocated": uint64(rewards.CommunityPoolSize),
			"distributed":     uint64(0),
			"remaining":       uint64(rewards.CommunityPoolSize),
		}
	}
	if _, ok := state["staking"]; !ok {
		state["staking"] = map[string]any{
			"name":            "staking",
			"total_allocated": uint64(rewards.StakingPoolSize),
			"distributed":     uint64(0),
			"remaining":       uint64(rewards.StakingPoolSize),
		}
	}
	if _, ok := state["multiplier"]; !ok {
		state["multiplier"] = uint64(1)
	}
	if _, ok := state["last_halving"]; !ok {
		state["last_halving"] = base
	}
	data, err := json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, l.Restore(data))
}

func TestGenesis(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	supply := l.Supply()
	assert.Equal(t, uint64(rewards.TreasuryGenesis), supply.Minted)
	assert.Equal(t, uint64(rewards.InitialMultiplier), supply.Multiplier)
	assert.Equal(t, uint64(rewards.TreasuryGenesis), l.BalanceOf(rewards.TreasuryAccount))

	community, staking := l.Pools()
	assert.Equal(t, uint64(rewards.CommunityPoolSize), community.Remaining)
	assert.Equal(t, uint64(rewards.StakingPoolSize), staking.Remaining)
}

func TestDistributeReviewRewards(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	require.NoError(t, l.DistributeReviewRewards("alice", 200, 2, base))

	// (50 base + 200/10 quality + 2*10 photos) * 4 multiplier.
	assert.Equal(t, uint64(360), l.ClaimableOf("alice"))

	community, _ := l.Pools()
	assert.Equal(t, uint64(360), community.Distributed)
	assert.Equal(t, community.TotalAllocated, community.Distributed+community.Remaining)

	assert.ErrorIs(t, l.DistributeReviewRewards("alice", -1, 0, base), ledger.ErrValidation)
}

func TestHalvingSchedule(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)

	require.NoError(t, l.DistributeUpvoteRewards("alice", base))
	assert.Equal(t, uint64(20), l.ClaimableOf("alice"))

	// One halving interval later the multiplier drops to 2.
	require.NoError(t, l.DistributeUpvoteRewards("bob", base.Add(181*24*time.Hour)))
	assert.Equal(t, uint64(10), l.ClaimableOf("bob"))

	// Multiplier floors at 1 no matter how much time passes.
	require.NoError(t, l.DistributeUpvoteRewards("carol", base.Add(10*365*24*time.Hour)))
	assert.Equal(t, uint64(5), l.ClaimableOf("carol"))
	assert.Equal(t, uint64(1), l.Supply().Multiplier)
}

func TestDailyRewardGate(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	require.NoError(t, l.DistributeDailyReward("alice", base))
	assert.Equal(t, uint64(80), l.ClaimableOf("alice"))

	err := l.DistributeDailyReward("alice", base.Add(6*time.Hour))
	assert.ErrorIs(t, err, ledger.ErrConflict)

	require.NoError(t, l.DistributeDailyReward("alice", base.Add(24*time.Hour)))
	assert.Equal(t, uint64(160), l.ClaimableOf("alice"))
}

func TestClaim(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	require.NoError(t, l.DistributeReviewRewards("alice", 2000, 0, base))
	require.Equal(t, uint64(1000), l.ClaimableOf("alice"))

	result, err := l.Claim("alice", base)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), result.Amount)
	assert.Equal(t, uint64(1000), result.Minted)
	assert.Equal(t, uint64(0), result.FromTreasury)
	assert.Equal(t, uint64(1000), l.BalanceOf("alice"))
	assert.Equal(t, uint64(0), l.ClaimableOf("alice"))
	assert.Equal(t, uint64(rewards.TreasuryGenesis+1000), l.Supply().Minted)

	_, err = l.Claim("alice", base)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestClaimPastSupplyCapFallsBackToTreasury(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	restoreState(t, l, map[string]any{
		"balances":     map[string]uint64{rewards.TreasuryAccount: 1000},
		"claimable":    map[string]uint64{"alice": 250},
		"total_minted": uint64(rewards.SupplyCap - 100),
	})

	result, err := l.Claim("alice", base)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), result.Amount)
	assert.Equal(t, uint64(100), result.Minted)
	assert.Equal(t, uint64(150), result.FromTreasury)
	assert.Equal(t, uint64(250), l.BalanceOf("alice"))
	assert.Equal(t, uint64(850), l.BalanceOf(rewards.TreasuryAccount))
	assert.Equal(t, uint64(rewards.SupplyCap), l.Supply().Minted)
}

func TestClaimFailsWhenTreasuryCannotCover(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	restoreState(t, l, map[string]any{
		"balances":     map[string]uint64{rewards.TreasuryAccount: 100},
		"claimable":    map[string]uint64{"alice": 250},
		"total_minted": uint64(rewards.SupplyCap - 100),
	})

	_, err := l.Claim("alice", base)
	assert.ErrorIs(t, err, ledger.ErrExhausted)
	// Nothing moved.
	assert.Equal(t, uint64(250), l.ClaimableOf("alice"))
	assert.Equal(t, uint64(0), l.BalanceOf("alice"))
}

func TestTransfer(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	fund(t, l, "alice", 1000)

	require.NoError(t, l.Transfer("alice", "bob", 400))
	assert.Equal(t, uint64(600), l.BalanceOf("alice"))
	assert.Equal(t, uint64(400), l.BalanceOf("bob"))

	assert.ErrorIs(t, l.Transfer("alice", "bob", 10000), ledger.ErrValidation)
	assert.ErrorIs(t, l.Transfer("alice", "alice", 1), ledger.ErrValidation)
	assert.ErrorIs(t, l.Transfer("alice", "bob", 0), ledger.ErrValidation)
}

func TestBlacklist(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	fund(t, l, "alice", 1000)
	require.NoError(t, l.DistributeUpvoteRewards("alice", base))

	require.NoError(t, l.Blacklist("alice"))
	_, err := l.Claim("alice", base)
	assert.ErrorIs(t, err, ledger.ErrForbidden)
	assert.ErrorIs(t, l.Transfer("alice", "bob", 1), ledger.ErrForbidden)

	require.NoError(t, l.Unblacklist("alice"))
	_, err = l.Claim("alice", base)
	assert.NoError(t, err)

	assert.ErrorIs(t, l.Unblacklist("alice"), ledger.ErrNotFound)
	assert.ErrorIs(t, l.Blacklist(rewards.TreasuryAccount), ledger.ErrValidation)
}

func TestStakeAPYTiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		lock    time.Duration
		wantAPY int
		wantErr bool
	}{
		{name: "under minimum", lock: 29 * 24 * time.Hour, wantErr: true},
		{name: "30 days", lock: 30 * 24 * time.Hour, wantAPY: 5},
		{name: "90 days", lock: 90 * 24 * time.Hour, wantAPY: 10},
		{name: "180 days", lock: 180 * 24 * time.Hour, wantAPY: 15},
		{name: "365 days", lock: 365 * 24 * time.Hour, wantAPY: 20},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := rewards.NewLedger(base)
			fund(t, l, "alice", 1000)

			stake, err := l.Stake("alice", 1000, tt.lock, base)
			if tt.wantErr {
				assert.ErrorIs(t, err, ledger.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAPY, stake.APY)
		})
	}
}

func TestStakeAndUnstake(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	fund(t, l, "alice", 1000)

	lock := 365 * 24 * time.Hour
	_, err := l.Stake("alice", 1000, lock, base)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), l.BalanceOf("alice"))

	// One active stake per account.
	_, err = l.Stake("alice", 1, lock, base)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	// Locked until the full duration has passed.
	_, err = l.Unstake("alice", base.Add(lock/2))
	assert.ErrorIs(t, err, ledger.ErrValidation)

	result, err := l.Unstake("alice", base.Add(lock))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), result.Principal)
	assert.Equal(t, uint64(200), result.Reward)
	assert.Equal(t, uint64(1200), l.BalanceOf("alice"))

	_, staking := l.Pools()
	assert.Equal(t, uint64(200), staking.Distributed)
	assert.Equal(t, staking.TotalAllocated, staking.Distributed+staking.Remaining)

	_, err = l.StakeOf("alice")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUnstakeRewardCappedByPool(t *testing.T) {
	t.Parallel()

	lock := 365 * 24 * time.Hour
	l := rewards.NewLedger(base)
	restoreState(t, l, map[string]any{
		"total_minted": uint64(rewards.TreasuryGenesis),
		"stakes": []map[string]any{{
			"account":       "bob",
			"amount":        uint64(1000),
			"start_at":      base,
			"lock_duration": int64(lock),
			"apy":           20,
			"last_claim_at": base,
		}},
		"staking": map[string]any{
			"name":            "staking",
			"total_allocated": uint64(rewards.StakingPoolSize),
			"distributed":     uint64(rewards.StakingPoolSize - 150),
			"remaining":       uint64(150),
		},
	})

	result, err := l.Unstake("bob", base.Add(lock))
	require.NoError(t, err)
	assert.Equal(t, uint64(150), result.Reward)
	assert.Equal(t, uint64(1150), l.BalanceOf("bob"))

	_, staking := l.Pools()
	assert.Equal(t, uint64(0), staking.Remaining)
	assert.Equal(t, staking.TotalAllocated, staking.Distributed+staking.Remaining)
}

func TestVestingLifecycle(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	cliff := 90 * 24 * time.Hour
	duration := 360 * 24 * time.Hour

	_, err := l.CreateVestingSchedule("team", 1000, base, cliff, duration, true)
	require.NoError(t, err)

	// Nothing releases before the cliff.
	_, err = l.ReleaseVesting("team", 0, base.Add(30*24*time.Hour))
	assert.ErrorIs(t, err, ledger.ErrValidation)

	// A quarter of the duration vests a quarter of the grant.
	s, err := l.ReleaseVesting("team", 0, base.Add(cliff))
	require.NoError(t, err)
	assert.Equal(t, uint64(250), s.ReleasedAmount)
	assert.Equal(t, uint64(250), l.BalanceOf("team"))

	s, err = l.ReleaseVesting("team", 0, base.Add(180*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, uint64(500), s.ReleasedAmount)

	// Everything releases once the duration has elapsed.
	s, err = l.ReleaseVesting("team", 0, base.Add(duration))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), s.ReleasedAmount)
	assert.Equal(t, uint64(1000), l.BalanceOf("team"))
	assert.Equal(t, uint64(rewards.TreasuryGenesis+1000), l.Supply().Minted)

	_, err = l.ReleaseVesting("team", 0, base.Add(2*duration))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestVestingValidation(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)

	_, err := l.CreateVestingSchedule("", 1000, base, 0, time.Hour, false)
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = l.CreateVestingSchedule("team", 0, base, 0, time.Hour, false)
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = l.CreateVestingSchedule("team", 1000, base, 2*time.Hour, time.Hour, false)
	assert.ErrorIs(t, err, ledger.ErrValidation)
	_, err = l.ReleaseVesting("team", 0, base)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRevokeVestingFreezesUnlock(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	duration := 360 * 24 * time.Hour
	_, err := l.CreateVestingSchedule("team", 1000, base, 0, duration, true)
	require.NoError(t, err)

	_, err = l.RevokeVesting("team", 0, base.Add(180*24*time.Hour))
	require.NoError(t, err)

	_, err = l.RevokeVesting("team", 0, base.Add(181*24*time.Hour))
	assert.ErrorIs(t, err, ledger.ErrConflict)

	// Only what vested before revocation is ever releasable.
	s, err := l.ReleaseVesting("team", 0, base.Add(duration))
	require.NoError(t, err)
	assert.Equal(t, uint64(500), s.ReleasedAmount)

	_, err = l.ReleaseVesting("team", 0, base.Add(2*duration))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestRevokeRequiresRevocable(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	_, err := l.CreateVestingSchedule("team", 1000, base, 0, time.Hour, false)
	require.NoError(t, err)

	_, err = l.RevokeVesting("team", 0, base)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestReleaseVestingRespectsSupplyCap(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	_, err := l.CreateVestingSchedule("team", 1000, base, 0, time.Hour, false)
	require.NoError(t, err)

	snap, err := l.Snapshot()
	require.NoError(t, err)
	var state map[string]any
	require.NoError(t, json.Unmarshal(snap, &state))
	state["total_minted"] = uint64(rewards.SupplyCap - 100)
	restoreState(t, l, state)

	_, err = l.ReleaseVesting("team", 0, base.Add(2*time.Hour))
	assert.ErrorIs(t, err, ledger.ErrExhausted)
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	l := rewards.NewLedger(base)
	fund(t, l, "alice", 1000)
	_, err := l.Stake("alice", 600, 365*24*time.Hour, base)
	require.NoError(t, err)
	_, err = l.CreateVestingSchedule("team", 5000, base, 0, 360*24*time.Hour, true)
	require.NoError(t, err)
	require.NoError(t, l.Blacklist("mallory"))

	data, err := l.Snapshot()
	require.NoError(t, err)

	restored := rewards.NewLedger(base)
	require.NoError(t, restored.Restore(data))

	assert.Equal(t, uint64(400), restored.BalanceOf("alice"))
	assert.Equal(t, l.Supply().Minted, restored.Supply().Minted)

	stake, err := restored.StakeOf("alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(600), stake.Amount)

	schedules := restored.VestingOf("team")
	require.Len(t, schedules, 1)
	assert.Equal(t, uint64(5000), schedules[0].TotalAmount)

	assert.ErrorIs(t, restored.Transfer("mallory", "alice", 1), ledger.ErrForbidden)
}
