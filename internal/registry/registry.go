package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"repute/internal/ledger"

	"go.uber.org/zap"
)

const (
	MaxCommentLen  = 1000
	MaxTags        = 5
	MaxTagLen      = 30
	MaxImages      = 5
	MaxResponseLen = 1000
	ReviewCooldown = 24 * time.Hour
	MinAccountAge  = 24 * time.Hour
)

// PointsAwarder is the gamification surface the registry notifies
// best-effort after a review lands.
type PointsAwarder interface {
	AwardReviewPoints(account string, rating, photoCount int, now time.Time) error
	AwardUpvotePoints(account string, now time.Time) error
	AwardPhotoPoints(account string, photoCount int, now time.Time) error
}

// ReputationSink receives review and vote events, best-effort.
type ReputationSink interface {
	RecordReview(account string, rating, commentLength int, hasPhotos bool, now time.Time) error
	RecordVote(reviewer string, upvote bool, now time.Time) error
}

// ProfileStats is the narrow profile surface the registry uses: a strict
// account-age read before accepting a review, and best-effort counter
// increments afterwards.
type ProfileStats interface {
	AccountAge(account string, now time.Time) (time.Duration, error)
	UpdateStats(account string, reviewDelta, upvoteDelta int) error
}

// Registry owns businesses, reviews and votes. It mutates its own state
// unconditionally, then notifies the downstream engines through best-effort
// boundaries that never roll the primary write back.
type Registry struct {
	businesses map[string]*Business
	reviews    map[string]map[string]*Review // business id -> reviewer -> review
	reviewers  map[string][]string           // append-only per business
	votes      map[string]*Vote              // business/reviewer/voter
	banned     map[string]struct{}
	lastReview map[string]time.Time

	points   PointsAwarder
	repute   ReputationSink
	profiles ProfileStats
	logger   *zap.SugaredLogger
	busy     bool
}

func New(points PointsAwarder, repute ReputationSink, profiles ProfileStats, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		businesses: make(map[string]*Business),
		reviews:    make(map[string]map[string]*Review),
		reviewers:  make(map[string][]string),
		votes:      make(map[string]*Vote),
		banned:     make(map[string]struct{}),
		lastReview: make(map[string]time.Time),
		points:     points,
		repute:     repute,
		profiles:   profiles,
		logger:     logger,
	}
}

func (r *Registry) enter() error {
	if r.busy {
		return ledger.ErrReentrant
	}
	r.busy = true
	return nil
}

func (r *Registry) leave() { r.busy = false }

func (r *Registry) rejectBanned(account string) error {
	if _, ok := r.banned[account]; ok {
		return fmt.Errorf("%w: account is banned", ledger.ErrForbidden)
	}
	return nil
}

// businessID derives the identifier deterministically from name, location and
// creation time.
func businessID(name, location string, createdAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", name, location, createdAt.Unix())))
	return hex.EncodeToString(sum[:])[:16]
}

func voteKey(businessID, reviewer, voter string) string {
	return businessID + "/" + reviewer + "/" + voter
}

// RegisterBusiness creates a business record owned by the caller.
func (r *Registry) RegisterBusiness(owner, name, category, location, description string, now time.Time) (*Business, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	if err := r.rejectBanned(owner); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("%w: name and category are required", ledger.ErrValidation)
	}

	id := businessID(name, location, now)
	if _, exists := r.businesses[id]; exists {
		return nil, fmt.Errorf("%w: business id collision", ledger.ErrConflict)
	}

	b := &Business{
		ID:          id,
		Name:        name,
		Category:    category,
		Location:    location,
		Description: description,
		Owner:       owner,
		CreatedAt:   now,
	}
	r.businesses[id] = b
	out := *b
	return &out, nil
}

func validateReviewBody(rating int, comment string, tags []string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ledger.ErrValidation)
	}
	if len(comment) > MaxCommentLen {
		return fmt.Errorf("%w: comment exceeds %d characters", ledger.ErrValidation, MaxCommentLen)
	}
	if len(tags) > MaxTags {
		return fmt.Errorf("%w: at most %d tags", ledger.ErrValidation, MaxTags)
	}
	for _, tag := range tags {
		if tag == "" || len(tag) > MaxTagLen {
			return fmt.Errorf("%w: tags must be 1-%d characters", ledger.ErrValidation, MaxTagLen)
		}
	}
	return nil
}

// AddReview stores a new review after every precondition passes, then
// best-effort notifies gamification, reputation and the profile counters.
func (r *Registry) AddReview(businessID, reviewer string, rating int, comment string, tags, imageRefs []string, now time.Time) (*Review, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	if err := r.rejectBanned(reviewer); err != nil {
		return nil, err
	}
	b, ok := r.businesses[businessID]
	if !ok {
		return nil, fmt.Errorf("%w: business", ledger.ErrNotFound)
	}
	if err := validateReviewBody(rating, comment, tags); err != nil {
		return nil, err
	}
	if len(imageRefs) > MaxImages {
		return nil, fmt.Errorf("%w: at most %d images", ledger.ErrValidation, MaxImages)
	}
	if _, exists := r.reviews[businessID][reviewer]; exists {
		return nil, fmt.Errorf("%w: account already reviewed this business", ledger.ErrConflict)
	}
	if last, ok := r.lastReview[reviewer]; ok && now.Sub(last) < ReviewCooldown {
		return nil, fmt.Errorf("%w: one review per %s", ledger.ErrValidation, ReviewCooldown)
	}
	age, err := r.profiles.AccountAge(reviewer, now)
	if err != nil {
		return nil, fmt.Errorf("%w: a profile is required before reviewing", ledger.ErrValidation)
	}
	if age < MinAccountAge {
		return nil, fmt.Errorf("%w: account must be at least %s old", ledger.ErrValidation, MinAccountAge)
	}

	review := &Review{
		BusinessID: businessID,
		Reviewer:   reviewer,
		Rating:     rating,
		Comment:    comment,
		Tags:       append([]string(nil), tags...),
		ImageRefs:  append([]string(nil), imageRefs...),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if r.reviews[businessID] == nil {
		r.reviews[businessID] = make(map[string]*Review)
	}
	r.reviews[businessID][reviewer] = review
	r.reviewers[businessID] = append(r.reviewers[businessID], reviewer)
	b.RatingSum += int64(rating)
	b.ReviewCount++
	r.lastReview[reviewer] = now

	ledger.Notify(r.logger, "gamify.award_review_points", func() error {
		return r.points.AwardReviewPoints(reviewer, rating, len(imageRefs), now)
	})
	if len(imageRefs) > 0 {
		ledger.Notify(r.logger, "gamify.award_photo_points", func() error {
			return r.points.AwardPhotoPoints(reviewer, len(imageRefs), now)
		})
	}
	ledger.Notify(r.logger, "reputation.record_review", func() error {
		return r.repute.RecordReview(reviewer, rating, len(comment), len(imageRefs) > 0, now)
	})
	ledger.Notify(r.logger, "profile.update_stats", func() error {
		return r.profiles.UpdateStats(reviewer, 1, 0)
	})

	out := cloneReview(review)
	return &out, nil
}

// UpdateReview lets the original reviewer revise rating, comment and tags.
// The business rating sum is adjusted by the rating delta and the review's
// version counter increments.
func (r *Registry) UpdateReview(businessID, reviewer string, rating int, comment string, tags []string, now time.Time) (*Review, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	if err := r.rejectBanned(reviewer); err != nil {
		return nil, err
	}
	b, ok := r.businesses[businessID]
	if !ok {
		return nil, fmt.Errorf("%w: business", ledger.ErrNotFound)
	}
	review, ok := r.reviews[businessID][reviewer]
	if !ok {
		return nil, fmt.Errorf("%w: review", ledger.ErrNotFound)
	}
	if review.Archived {
		return nil, fmt.Errorf("%w: archived reviews cannot be edited", ledger.ErrValidation)
	}
	if err := validateReviewBody(rating, comment, tags); err != nil {
		return nil, err
	}

	b.RatingSum += int64(rating) - int64(review.Rating)
	review.Rating = rating
	review.Comment = comment
	review.Tags = append([]string(nil), tags...)
	review.Version++
	review.UpdatedAt = now

	out := cloneReview(review)
	return &out, nil
}

// VoteReview records or flips the voter's vote. A new vote moves one counter
// by one; a polarity flip moves both counters by one each; repeating the same
// vote is a no-op.
func (r *Registry) VoteReview(businessID, reviewer, voter string, upvote bool, now time.Time) (*Review, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	if err := r.rejectBanned(voter); err != nil {
		return nil, err
	}
	if voter == reviewer {
		return nil, fmt.Errorf("%w: cannot vote on your own review", ledger.ErrValidation)
	}
	review, ok := r.reviews[businessID][reviewer]
	if !ok {
		return nil, fmt.Errorf("%w: review", ledger.ErrNotFound)
	}

	key := voteKey(businessID, reviewer, voter)
	prior, voted := r.votes[key]
	switch {
	case !voted:
		if upvote {
			review.Upvotes++
		} else {
			review.Downvotes++
		}
	case prior.Upvote == upvote:
		out := cloneReview(review)
		return &out, nil
	default:
		if prior.Upvote {
			review.Upvotes--
			review.Downvotes++
		} else {
			review.Downvotes--
			review.Upvotes++
		}
	}
	r.votes[key] = &Vote{BusinessID: businessID, Reviewer: reviewer, Voter: voter, Upvote: upvote, CastAt: now}

	ledger.Notify(r.logger, "reputation.record_vote", func() error {
		return r.repute.RecordVote(reviewer, upvote, now)
	})
	if upvote {
		ledger.Notify(r.logger, "gamify.award_upvote_points", func() error {
			return r.points.AwardUpvotePoints(reviewer, now)
		})
	}
	upvoteDelta := 0
	if upvote {
		upvoteDelta = 1
	} else if voted && prior.Upvote {
		upvoteDelta = -1
	}
	if upvoteDelta != 0 {
		ledger.Notify(r.logger, "profile.update_stats", func() error {
			return r.profiles.UpdateStats(reviewer, 0, upvoteDelta)
		})
	}

	out := cloneReview(review)
	return &out, nil
}

// AddOwnerResponse sets the business owner's reply on a review. Responding
// again overwrites the previous reply; the source system permits the silent
// overwrite and that behavior is kept.
func (r *Registry) AddOwnerResponse(businessID, reviewer, caller, text string, now time.Time) (*Review, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	if err := r.rejectBanned(caller); err != nil {
		return nil, err
	}
	b, ok := r.businesses[businessID]
	if !ok {
		return nil, fmt.Errorf("%w: business", ledger.ErrNotFound)
	}
	if b.Owner != caller {
		return nil, fmt.Errorf("%w: only the business owner may respond", ledger.ErrForbidden)
	}
	review, ok := r.reviews[businessID][reviewer]
	if !ok {
		return nil, fmt.Errorf("%w: review", ledger.ErrNotFound)
	}
	if strings.TrimSpace(text) == "" || len(text) > MaxResponseLen {
		return nil, fmt.Errorf("%w: response must be 1-%d characters", ledger.ErrValidation, MaxResponseLen)
	}

	review.OwnerResponse = text
	review.RespondedAt = now
	out := cloneReview(review)
	return &out, nil
}

func cloneReview(review *Review) Review {
	out := *review
	out.Tags = append([]string(nil), review.Tags...)
	out.ImageRefs = append([]string(nil), review.ImageRefs...)
	return out
}

func (r *Registry) GetBusiness(id string) (*Business, error) {
	b, ok := r.businesses[id]
	if !ok {
		return nil, fmt.Errorf("%w: business", ledger.ErrNotFound)
	}
	out := *b
	return &out, nil
}

func (r *Registry) BusinessIDs() []string {
	out := make([]string, 0, len(r.businesses))
	for id := range r.businesses {
		out = append(out, id)
	}
	return out
}

// AverageRating returns the fixed-point average rating (two implied decimal
// places): ratingSum*100/reviewCount.
func (r *Registry) AverageRating(id string) (int64, error) {
	b, ok := r.businesses[id]
	if !ok {
		return 0, fmt.Errorf("%w: business", ledger.ErrNotFound)
	}
	if b.ReviewCount == 0 {
		return 0, nil
	}
	return b.RatingSum * 100 / int64(b.ReviewCount), nil
}

// Reviews lists a business's reviews in reviewer order. Archived reviews are
// hidden unless includeArchived is set.
func (r *Registry) Reviews(businessID string, includeArchived bool) ([]Review, error) {
	if _, ok := r.businesses[businessID]; !ok {
		return nil, fmt.Errorf("%w: business", ledger.ErrNotFound)
	}
	var out []Review
	for _, reviewer := range r.reviewers[businessID] {
		review, ok := r.reviews[businessID][reviewer]
		if !ok {
			continue
		}
		if review.Archived && !includeArchived {
			continue
		}
		out = append(out, cloneReview(review))
	}
	return out, nil
}

func (r *Registry) GetReview(businessID, reviewer string) (*Review, error) {
	review, ok := r.reviews[businessID][reviewer]
	if !ok {
		return nil, fmt.Errorf("%w: review", ledger.ErrNotFound)
	}
	out := cloneReview(review)
	return &out, nil
}

func (r *Registry) GetVote(businessID, reviewer, voter string) (*Vote, error) {
	v, ok := r.votes[voteKey(businessID, reviewer, voter)]
	if !ok {
		return nil, fmt.Errorf("%w: vote", ledger.ErrNotFound)
	}
	out := *v
	return &out, nil
}

type snapshot struct {
	Businesses []*Business          `json:"businesses"`
	Reviews    []*Review            `json:"reviews"`
	Reviewers  map[string][]string  `json:"reviewers"`
	Votes      []*Vote              `json:"votes"`
	Banned     []string             `json:"banned"`
	LastReview map[string]time.Time `json:"last_review"`
}

func (r *Registry) Snapshot() ([]byte, error) {
	snap := snapshot{
		Reviewers:  r.reviewers,
		LastReview: r.lastReview,
	}
	for _, b := range r.businesses {
		snap.Businesses = append(snap.Businesses, b)
	}
	for _, byReviewer := range r.reviews {
		for _, review := range byReviewer {
			snap.Reviews = append(snap.Reviews, review)
		}
	}
	for _, v := range r.votes {
		snap.Votes = append(snap.Votes, v)
	}
	for account := range r.banned {
		snap.Banned = append(snap.Banned, account)
	}
	return json.Marshal(snap)
}

func (r *Registry) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	r.businesses = make(map[string]*Business)
	for _, b := range snap.Businesses {
		r.businesses[b.ID] = b
	}
	r.reviews = make(map[string]map[string]*Review)
	for _, review := range snap.Reviews {
		if r.reviews[review.BusinessID] == nil {
			r.reviews[review.BusinessID] = make(map[string]*Review)
		}
		r.reviews[review.BusinessID][review.Reviewer] = review
	}
	r.reviewers = snap.Reviewers
	if r.reviewers == nil {
		r.reviewers = make(map[string][]string)
	}
	r.votes = make(map[string]*Vote)
	for _, v := range snap.Votes {
		r.votes[voteKey(v.BusinessID, v.Reviewer, v.Voter)] = v
	}
	r.banned = make(map[string]struct{})
	for _, account := range snap.Banned {
		r.banned[account] = struct{}{}
	}
	r.lastReview = snap.LastReview
	if r.lastReview == nil {
		r.lastReview = make(map[string]time.Time)
	}
	return nil
}
