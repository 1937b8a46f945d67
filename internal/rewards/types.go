package rewards

import "time"

// Pool tracks a bounded allocation of reward budget. The invariant
// Distributed + Remaining == TotalAllocated holds at all times.
type Pool struct {
	Name           string `json:"name"`
	TotalAllocated uint64 `json:"total_allocated"`
	Distributed    uint64 `json:"distributed"`
	Remaining      uint64 `json:"remaining"`
}

type StakeInfo struct {
	Account      string        `json:"account"`
	Amount       uint64        `json:"amount"`
	StartAt      time.Time     `json:"start_at"`
	LockDuration time.Duration `json:"lock_duration"`
	APY          int           `json:"apy"`
	LastClaimAt  time.Time     `json:"last_claim_at"`
	Accumulated  uint64        `json:"accumulated"`
}

type VestingSchedule struct {
	Beneficiary    string        `json:"beneficiary"`
	TotalAmount    uint64        `json:"total_amount"`
	ReleasedAmount uint64        `json:"released_amount"`
	StartAt        time.Time     `json:"start_at"`
	Cliff          time.Duration `json:"cliff"`
	Duration       time.Duration `json:"duration"`
	Revocable      bool          `json:"revocable"`
	Revoked        bool          `json:"revoked"`
	RevokedAt      time.Time     `json:"revoked_at,omitempty"`
}

type ClaimResult struct {
	Account      string `json:"account"`
	Amount       uint64 `json:"amount"`
	Minted       uint64 `json:"minted"`
	FromTreasury uint64 `json:"from_treasury"`
}

type UnstakeResult struct {
	Account   string `json:"account"`
	Principal uint64 `json:"principal"`
	Reward    uint64 `json:"reward"`
}

type SupplyInfo struct {
	Cap         uint64    `json:"cap"`
	Minted      uint64    `json:"minted"`
	Multiplier  uint64    `json:"multiplier"`
	LastHalving time.Time `json:"last_halving"`
}
