package reputation

import "time"

type VerificationKind string

const (
	VerifiedIdentity      VerificationKind = "identity"
	VerifiedBusinessOwner VerificationKind = "business_owner"
	VerifiedExpert        VerificationKind = "expert"
	VerifiedCommunity     VerificationKind = "community"
)

type Score struct {
	Account      string `json:"account"`
	Quality      int64  `json:"quality"`
	Consistency  int64  `json:"consistency"`
	Verification int64  `json:"verification"`
	Activity     int64  `json:"activity"`
	Total        int64  `json:"total"`
	VotingPower  int64  `json:"voting_power"`

	Verified   bool               `json:"verified"`
	TrustFlags []VerificationKind `json:"trust_flags,omitempty"`

	ReviewCount    int       `json:"review_count"`
	HelpfulVotes   int       `json:"helpful_votes"`
	UnhelpfulVotes int       `json:"unhelpful_votes"`
	FlagCount      int       `json:"flag_count"`
	PenaltyUntil   time.Time `json:"penalty_until,omitempty"`
	PenaltyReason  string    `json:"penalty_reason,omitempty"`

	AlignedVotes  int `json:"aligned_votes"`
	AccuracyVotes int `json:"accuracy_votes"`

	// Endorsement weight per endorsing account, folded into the
	// verification sub-score at recompute time.
	Endorsements map[string]int64 `json:"endorsements,omitempty"`

	LastUpdated time.Time `json:"last_updated"`
}
