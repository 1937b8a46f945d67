package registry

import (
	"fmt"
	"time"

	"repute/internal/ledger"
)

// oneWay rejects re-entering a one-way state. Flag, archive and business
// verification never transition backwards.
func oneWay(already bool, what string) error {
	if already {
		return fmt.Errorf("%w: review already %s", ledger.ErrConflict, what)
	}
	return nil
}

// FlagReview marks a review for moderation. One-way.
func (r *Registry) FlagReview(businessID, reviewer string, now time.Time) (*Review, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	review, ok := r.reviews[businessID][reviewer]
	if !ok {
		return nil, fmt.Errorf("%w: review", ledger.ErrNotFound)
	}
	if err := oneWay(review.Flagged, "flagged"); err != nil {
		return nil, err
	}
	review.Flagged = true
	review.UpdatedAt = now
	out := cloneReview(review)
	return &out, nil
}

// ArchiveReview hides a review from default views. One-way.
func (r *Registry) ArchiveReview(businessID, reviewer string, now time.Time) (*Review, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	review, ok := r.reviews[businessID][reviewer]
	if !ok {
		return nil, fmt.Errorf("%w: review", ledger.ErrNotFound)
	}
	if err := oneWay(review.Archived, "archived"); err != nil {
		return nil, err
	}
	review.Archived = true
	review.UpdatedAt = now
	out := cloneReview(review)
	return &out, nil
}

// VerifyBusiness marks a business as verified. One-way.
func (r *Registry) VerifyBusiness(businessID string) (*Business, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	b, ok := r.businesses[businessID]
	if !ok {
		return nil, fmt.Errorf("%w: business", ledger.ErrNotFound)
	}
	if b.Verified {
		return nil, fmt.Errorf("%w: business already verified", ledger.ErrConflict)
	}
	b.Verified = true
	out := *b
	return &out, nil
}

// BanUser blocks an account from every mutating review operation.
func (r *Registry) BanUser(account string) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()

	if account == "" {
		return fmt.Errorf("%w: account is required", ledger.ErrValidation)
	}
	if _, ok := r.banned[account]; ok {
		return fmt.Errorf("%w: account already banned", ledger.ErrConflict)
	}
	r.banned[account] = struct{}{}
	return nil
}

func (r *Registry) UnbanUser(account string) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()

	if _, ok := r.banned[account]; !ok {
		return fmt.Errorf("%w: account is not banned", ledger.ErrNotFound)
	}
	delete(r.banned, account)
	return nil
}

func (r *Registry) IsBanned(account string) bool {
	_, ok := r.banned[account]
	return ok
}
