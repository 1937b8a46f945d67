package main

import (
	"time"

	"repute/internal/gamify"
	"repute/internal/profile"
	"repute/internal/registry"
	"repute/internal/reputation"
	"repute/internal/rewards"
)

// engines bundles the five ledger components. Wiring between them goes
// through the narrow interfaces each consumer declares, built here once at
// startup.
type engines struct {
	profiles   *profile.Registry
	registry   *registry.Registry
	reputation *reputation.Engine
	gamify     *gamify.Engine
	rewards    *rewards.Ledger
}

// pointsAwarder adapts the gamification engine to the review registry's
// notification surface.
type pointsAwarder struct {
	engine *gamify.Engine
}

func (p pointsAwarder) AwardReviewPoints(account string, rating, photoCount int, now time.Time) error {
	_, err := p.engine.AwardReviewPoints(account, rating, photoCount, now)
	return err
}

func (p pointsAwarder) AwardUpvotePoints(account string, now time.Time) error {
	_, err := p.engine.AwardUpvotePoints(account, now)
	return err
}

func (p pointsAwarder) AwardPhotoPoints(account string, photoCount int, now time.Time) error {
	_, err := p.engine.AwardPhotoPoints(account, photoCount, now)
	return err
}

// reputationSink adapts the reputation engine to the registry's event feed.
type reputationSink struct {
	engine *reputation.Engine
}

func (s reputationSink) RecordReview(account string, rating, commentLength int, hasPhotos bool, now time.Time) error {
	_, err := s.engine.UpdateForReview(account, rating, commentLength, hasPhotos, now)
	return err
}

func (s reputationSink) RecordVote(reviewer string, upvote bool, now time.Time) error {
	_, err := s.engine.UpdateForVote(reviewer, upvote, now)
	return err
}
