package reputation

import (
	"encoding/json"
	"fmt"
	"time"

	"repute/internal/ledger"
)

const (
	MaxReputation   = 1000
	MaxVotingPower  = 1000
	BaseVotingPower = 100

	weightQuality      = 40
	weightConsistency  = 30
	weightVerification = 20
	weightActivity     = 10

	DecayPeriod      = 30 * 24 * time.Hour
	decayRatePercent = 5

	VerificationBonus  = 100
	EndorseThreshold   = 500
	maxActivity        = 300
	activityPerReview  = 10
	upvoteQualityBonus = 5
	downvoteQualityCut = 2
)

// Engine computes decaying, weighted trust scores and the voting power
// derived from them. It consumes review and vote events from the review
// registry and never calls back into it.
type Engine struct {
	scores map[string]*Score
	busy   bool
}

func NewEngine() *Engine {
	return &Engine{scores: make(map[string]*Score)}
}

func (e *Engine) enter() error {
	if e.busy {
		return ledger.ErrReentrant
	}
	e.busy = true
	return nil
}

func (e *Engine) leave() { e.busy = false }

func (e *Engine) score(account string) *Score {
	s, ok := e.scores[account]
	if !ok {
		s = &Score{Account: account, Endorsements: make(map[string]int64)}
		e.scores[account] = s
	}
	if s.Endorsements == nil {
		s.Endorsements = make(map[string]int64)
	}
	return s
}

// UpdateForReview records a submitted review. Longer comments score higher,
// mid-band ratings score slightly above the extremes so that polarized
// one-star/five-star gaming is not the optimal strategy.
func (e *Engine) UpdateForReview(account string, rating, reviewLength int, hasPhotos bool, now time.Time) (*Score, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating out of range", ledger.ErrValidation)
	}

	s := e.score(account)
	e.applyDecay(s, now)

	var delta int64
	switch {
	case reviewLength > 500:
		delta = 15
	case reviewLength > 200:
		delta = 10
	case reviewLength > 50:
		delta = 5
	default:
		delta = 2
	}
	if hasPhotos {
		delta += 5
	}
	if rating >= 2 && rating <= 4 {
		delta += 3
	} else {
		delta += 1
	}

	s.Quality += delta
	s.ReviewCount++
	s.Activity = int64(s.ReviewCount) * activityPerReview
	if s.Activity > maxActivity {
		s.Activity = maxActivity
	}
	e.recompute(s, now)
	out := *s
	return &out, nil
}

// UpdateForVote records a vote received on one of reviewer's reviews.
func (e *Engine) UpdateForVote(reviewer string, isUpvote bool, now time.Time) (*Score, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	s := e.score(reviewer)
	e.applyDecay(s, now)

	if isUpvote {
		s.Quality += upvoteQualityBonus
		s.HelpfulVotes++
	} else {
		s.Quality -= downvoteQualityCut
		if s.Quality < 0 {
			s.Quality = 0
		}
		s.UnhelpfulVotes++
	}
	e.recompute(s, now)
	out := *s
	return &out, nil
}

// VerifyUser marks the account verified with a named trust flag. Flags are
// one-way: verifying twice with the same kind is a no-op for the flag set but
// still refreshes the bonus only once.
func (e *Engine) VerifyUser(account string, kind VerificationKind, now time.Time) (*Score, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	switch kind {
	case VerifiedIdentity, VerifiedBusinessOwner, VerifiedExpert, VerifiedCommunity:
	default:
		return nil, fmt.Errorf("%w: unknown verification kind %q", ledger.ErrValidation, kind)
	}

	s := e.score(account)
	e.applyDecay(s, now)

	for _, f := range s.TrustFlags {
		if f == kind {
			e.recompute(s, now)
			out := *s
			return &out, nil
		}
	}
	s.TrustFlags = append(s.TrustFlags, kind)
	if !s.Verified {
		s.Verified = true
	}
	s.Verification += VerificationBonus
	e.recompute(s, now)
	out := *s
	return &out, nil
}

// PenalizeUser cuts into the quality sub-score, counts a flag against the
// account and halves voting power until the penalty expires.
func (e *Engine) PenalizeUser(account string, amount int64, duration time.Duration, reason string, now time.Time) (*Score, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if amount <= 0 {
		return nil, fmt.Errorf("%w: penalty amount must be positive", ledger.ErrValidation)
	}
	s := e.score(account)
	e.applyDecay(s, now)

	s.Quality -= amount
	if s.Quality < 0 {
		s.Quality = 0
	}
	s.FlagCount++
	s.PenaltyUntil = now.Add(duration)
	s.PenaltyReason = reason
	e.recompute(s, now)
	out := *s
	return &out, nil
}

// EndorseUser lets a high-reputation account vouch for another. The weight is
// a tenth of the endorser's voting power and overwrites any previous
// endorsement from the same account.
func (e *Engine) EndorseUser(endorser, endorsed string, now time.Time) (*Score, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	if endorser == endorsed {
		return nil, fmt.Errorf("%w: cannot endorse yourself", ledger.ErrValidation)
	}
	es, ok := e.scores[endorser]
	if !ok {
		return nil, fmt.Errorf("%w: endorsing requires reputation of at least %d", ledger.ErrForbidden, EndorseThreshold)
	}
	// The threshold and the endorsement weight must see the endorser's
	// current standing, not a stale pre-decay score.
	e.applyDecay(es, now)
	e.recompute(es, now)
	if es.Total < EndorseThreshold {
		return nil, fmt.Errorf("%w: endorsing requires reputation of at least %d", ledger.ErrForbidden, EndorseThreshold)
	}

	s := e.score(endorsed)
	e.applyDecay(s, now)
	s.Endorsements[endorser] = es.VotingPower / 10
	e.recompute(s, now)
	out := *s
	return &out, nil
}

// RecordVotingAccuracy feeds back whether a voter's vote matched eventual
// consensus on the review. Persistent alignment nudges power up, persistent
// contrarianism nudges it down; the bands are applied inside recompute.
func (e *Engine) RecordVotingAccuracy(voter string, aligned bool, now time.Time) (*Score, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	s := e.score(voter)
	e.applyDecay(s, now)
	s.AccuracyVotes++
	if aligned {
		s.AlignedVotes++
		s.Consistency += 2
	}
	e.recompute(s, now)
	out := *s
	return &out, nil
}

func (e *Engine) Get(account string, now time.Time) (*Score, error) {
	s, ok := e.scores[account]
	if !ok {
		return nil, fmt.Errorf("%w: reputation score", ledger.ErrNotFound)
	}
	// Queries see decay without persisting it.
	out := *s
	decaySubScores(&out, now)
	recomputeScore(&out, now)
	return &out, nil
}

// VotingPower returns the account's current voting power, defaulting to the
// base power for accounts with no recorded activity.
func (e *Engine) VotingPower(account string, now time.Time) int64 {
	s, ok := e.scores[account]
	if !ok {
		return BaseVotingPower
	}
	out := *s
	decaySubScores(&out, now)
	recomputeScore(&out, now)
	return out.VotingPower
}

func (e *Engine) applyDecay(s *Score, now time.Time) {
	decaySubScores(s, now)
	s.LastUpdated = now
}

// decaySubScores applies compound multiplicative decay to the earned
// sub-scores for every full decay period the account sat untouched.
func decaySubScores(s *Score, now time.Time) {
	if s.LastUpdated.IsZero() {
		return
	}
	gap := now.Sub(s.LastUpdated)
	if gap < DecayPeriod {
		return
	}
	periods := int(gap / DecayPeriod)
	for i := 0; i < periods; i++ {
		s.Quality = s.Quality * (100 - decayRatePercent) / 100
		s.Consistency = s.Consistency * (100 - decayRatePercent) / 100
		s.Activity = s.Activity * (100 - decayRatePercent) / 100
	}
}

func (e *Engine) recompute(s *Score, now time.Time) {
	recomputeScore(s, now)
}

func recomputeScore(s *Score, now time.Time) {
	verification := s.Verification
	for _, w := range s.Endorsements {
		verification += w
	}

	total := (s.Quality*weightQuality +
		s.Consistency*weightConsistency +
		verification*weightVerification +
		s.Activity*weightActivity) / 100

	if s.FlagCount > 0 {
		cut := int64(100 - 10*s.FlagCount)
		if cut < 0 {
			cut = 0
		}
		total = total * cut / 100
	}
	if s.Verified {
		total = total * 120 / 100
	}
	if total < 0 {
		total = 0
	}
	if total > MaxReputation {
		total = MaxReputation
	}
	s.Total = total

	power := int64(BaseVotingPower)
	switch {
	case total >= 800:
		power *= 3
	case total >= 500:
		power *= 2
	}
	if s.Verified {
		power *= 2
	}
	received := s.HelpfulVotes + s.UnhelpfulVotes
	if received >= 10 && s.HelpfulVotes*100/received >= 80 {
		power = power * 3 / 2
	}
	if s.AccuracyVotes >= 5 {
		ratio := s.AlignedVotes * 100 / s.AccuracyVotes
		if ratio >= 80 {
			power = power * 110 / 100
		} else if ratio <= 40 {
			power = power * 90 / 100
		}
	}
	if !s.PenaltyUntil.IsZero() && now.Before(s.PenaltyUntil) {
		power /= 2
	}
	if power > MaxVotingPower {
		power = MaxVotingPower
	}
	s.VotingPower = power
}

type snapshot struct {
	Scores []*Score `json:"scores"`
}

func (e *Engine) Snapshot() ([]byte, error) {
	snap := snapshot{}
	for _, s := range e.scores {
		snap.Scores = append(snap.Scores, s)
	}
	return json.Marshal(snap)
}

func (e *Engine) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	e.scores = make(map[string]*Score)
	for _, s := range snap.Scores {
		e.scores[s.Account] = s
	}
	return nil
}
