package registry_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"repute/internal/gamify"
	"repute/internal/ledger"
	"repute/internal/profile"
	"repute/internal/registry"
	"repute/internal/reputation"
	"repute/internal/rewards"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type stubPoints struct {
	reviewRatings []int
	reviewPhotos  []int
	upvotes       int
	photoCounts   []int
	err           error
}

func (s *stubPoints) AwardReviewPoints(_ string, rating, photoCount int, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.reviewRatings = append(s.reviewRatings, rating)
	s.reviewPhotos = append(s.reviewPhotos, photoCount)
	return nil
}

func (s *stubPoints) AwardUpvotePoints(_ string, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.upvotes++
	return nil
}

func (s *stubPoints) AwardPhotoPoints(_ string, photoCount int, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.photoCounts = append(s.photoCounts, photoCount)
	return nil
}

type stubRepute struct {
	reviews int
	votes   []bool
	err     error
}

func (s *stubRepute) RecordReview(_ string, _, _ int, _ bool, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.reviews++
	return nil
}

func (s *stubRepute) RecordVote(_ string, upvote bool, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.votes = append(s.votes, upvote)
	return nil
}

type stubProfiles struct {
	age         time.Duration
	ageErr      error
	reviewDelta int
	upvoteDelta int
}

func (s *stubProfiles) AccountAge(_ string, _ time.Time) (time.Duration, error) {
	if s.ageErr != nil {
		return 0, s.ageErr
	}
	return s.age, nil
}

func (s *stubProfiles) UpdateStats(_ string, reviewDelta, upvoteDelta int) error {
	s.reviewDelta += reviewDelta
	s.upvoteDelta += upvoteDelta
	return nil
}

type fixture struct {
	registry *registry.Registry
	points   *stubPoints
	repute   *stubRepute
	profiles *stubProfiles
}

func newFixture() *fixture {
	points := &stubPoints{}
	repute := &stubRepute{}
	profiles := &stubProfiles{age: 48 * time.Hour}
	return &fixture{
		registry: registry.New(points, repute, profiles, zap.NewNop().Sugar()),
		points:   points,
		repute:   repute,
		profiles: profiles,
	}
}

func (f *fixture) addBusiness(t *testing.T, owner, name string) string {
	t.Helper()
	b, err := f.registry.RegisterBusiness(owner, name, "restaurant", "downtown", "", base)
	require.NoError(t, err)
	return b.ID
}

func TestRegisterBusiness(t *testing.T) {
	t.Parallel()

	f := newFixture()
	b, err := f.registry.RegisterBusiness("olive", "Pizza Palace", "restaurant", "downtown", "wood-fired pies", base)
	require.NoError(t, err)
	assert.Len(t, b.ID, 16)
	assert.Equal(t, "olive", b.Owner)

	// Same name, location and timestamp derive the same id.
	_, err = f.registry.RegisterBusiness("other", "Pizza Palace", "restaurant", "downtown", "", base)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	_, err = f.registry.RegisterBusiness("olive", " ", "restaurant", "", "", base)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestAddReview(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")

	review, err := f.registry.AddReview(id, "alice", 5, "Great food", []string{"tasty"}, []string{"img-1"}, base)
	require.NoError(t, err)
	assert.Equal(t, 1, review.Version)

	b, err := f.registry.GetBusiness(id)
	require.NoError(t, err)
	assert.Equal(t, 1, b.ReviewCount)
	assert.Equal(t, int64(5), b.RatingSum)

	avg, err := f.registry.AverageRating(id)
	require.NoError(t, err)
	assert.Equal(t, int64(500), avg)

	// Every downstream boundary was notified exactly once, and the review
	// notification carried the photo count.
	assert.Equal(t, []int{5}, f.points.reviewRatings)
	assert.Equal(t, []int{1}, f.points.reviewPhotos)
	assert.Equal(t, []int{1}, f.points.photoCounts)
	assert.Equal(t, 1, f.repute.reviews)
	assert.Equal(t, 1, f.profiles.reviewDelta)
}

func TestAddReviewValidation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")

	tests := []struct {
		name    string
		rating  int
		comment string
		tags    []string
		images  []string
		wantErr error
	}{
		{name: "rating too low", rating: 0, wantErr: ledger.ErrValidation},
		{name: "rating too high", rating: 6, wantErr: ledger.ErrValidation},
		{name: "comment too long", rating: 3, comment: strings.Repeat("x", 1001), wantErr: ledger.ErrValidation},
		{name: "too many tags", rating: 3, tags: []string{"a", "b", "c", "d", "e", "f"}, wantErr: ledger.ErrValidation},
		{name: "empty tag", rating: 3, tags: []string{""}, wantErr: ledger.ErrValidation},
		{name: "too many images", rating: 3, images: []string{"1", "2", "3", "4", "5", "6"}, wantErr: ledger.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.registry.AddReview(id, "alice", tt.rating, tt.comment, tt.tags, tt.images, base)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := f.registry.AddReview("missing", "alice", 3, "", nil, nil, base)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestOneReviewPerReviewerAndBusiness(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")

	_, err := f.registry.AddReview(id, "alice", 5, "", nil, nil, base)
	require.NoError(t, err)

	// Never twice for the same pair, even past the cooldown.
	_, err = f.registry.AddReview(id, "alice", 3, "", nil, nil, base.Add(48*time.Hour))
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestReviewCooldownAcrossBusinesses(t *testing.T) {
	t.Parallel()

	f := newFixture()
	first := f.addBusiness(t, "olive", "Pizza Palace")
	second := f.addBusiness(t, "olive", "Burger Barn")

	_, err := f.registry.AddReview(first, "alice", 5, "", nil, nil, base)
	require.NoError(t, err)

	_, err = f.registry.AddReview(second, "alice", 4, "", nil, nil, base.Add(time.Hour))
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.registry.AddReview(second, "alice", 4, "", nil, nil, base.Add(25*time.Hour))
	assert.NoError(t, err)
}

func TestAddReviewRequiresAccountAge(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")
	f.profiles.age = time.Hour

	_, err := f.registry.AddReview(id, "alice", 5, "", nil, nil, base)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	// No profile at all is rejected too.
	f.profiles.ageErr = ledger.ErrNotFound
	_, err = f.registry.AddReview(id, "alice", 5, "", nil, nil, base)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestNotificationFailureDoesNotRollBack(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")
	f.points.err = errors.New("gamification down")
	f.repute.err = errors.New("reputation down")

	_, err := f.registry.AddReview(id, "alice", 5, "", nil, nil, base)
	require.NoError(t, err)

	review, err := f.registry.GetReview(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)
}

func TestUpdateReview(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")
	_, err := f.registry.AddReview(id, "alice", 5, "great", nil, nil, base)
	require.NoError(t, err)

	review, err := f.registry.UpdateReview(id, "alice", 2, "went downhill", nil, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, review.Rating)
	assert.Equal(t, 2, review.Version)

	b, err := f.registry.GetBusiness(id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.RatingSum)
	assert.Equal(t, 1, b.ReviewCount)

	_, err = f.registry.UpdateReview(id, "bob", 3, "", nil, base)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = f.registry.ArchiveReview(id, "alice", base)
	require.NoError(t, err)
	_, err = f.registry.UpdateReview(id, "alice", 4, "", nil, base)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestVoteReview(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")
	_, err := f.registry.AddReview(id, "alice", 5, "", nil, nil, base)
	require.NoError(t, err)

	// New vote moves one counter by one.
	review, err := f.registry.VoteReview(id, "alice", "bob", true, base)
	require.NoError(t, err)
	assert.Equal(t, 1, review.Upvotes)
	assert.Equal(t, 0, review.Downvotes)

	// Repeating the same vote is a no-op.
	review, err = f.registry.VoteReview(id, "alice", "bob", true, base)
	require.NoError(t, err)
	assert.Equal(t, 1, review.Upvotes)

	// Flipping moves both counters by one each.
	review, err = f.registry.VoteReview(id, "alice", "bob", false, base)
	require.NoError(t, err)
	assert.Equal(t, 0, review.Upvotes)
	assert.Equal(t, 1, review.Downvotes)

	vote, err := f.registry.GetVote(id, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, vote.Upvote)

	// The profile upvote counter followed the flip back to zero.
	assert.Equal(t, 0, f.profiles.upvoteDelta)
	assert.Equal(t, []bool{true, false}, f.repute.votes)
	assert.Equal(t, 1, f.points.upvotes)

	_, err = f.registry.VoteReview(id, "alice", "alice", true, base)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestAddOwnerResponse(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")
	_, err := f.registry.AddReview(id, "alice", 5, "", nil, nil, base)
	require.NoError(t, err)

	_, err = f.registry.AddOwnerResponse(id, "alice", "bob", "thanks!", base)
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	review, err := f.registry.AddOwnerResponse(id, "alice", "olive", "thanks!", base)
	require.NoError(t, err)
	assert.Equal(t, "thanks!", review.OwnerResponse)

	// Responding again silently overwrites.
	review, err = f.registry.AddOwnerResponse(id, "alice", "olive", "come again", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "come again", review.OwnerResponse)

	_, err = f.registry.AddOwnerResponse(id, "alice", "olive", " ", base)
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestReviewsHideArchived(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")
	_, err := f.registry.AddReview(id, "alice", 5, "", nil, nil, base)
	require.NoError(t, err)
	_, err = f.registry.AddReview(id, "bob", 4, "", nil, nil, base)
	require.NoError(t, err)
	_, err = f.registry.ArchiveReview(id, "alice", base)
	require.NoError(t, err)

	visible, err := f.registry.Reviews(id, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "bob", visible[0].Reviewer)

	all, err := f.registry.Reviews(id, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	avg, err := f.registry.AverageRating(id)
	require.NoError(t, err)
	assert.Equal(t, int64(450), avg)
}

func TestModerationIsOneWay(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")
	_, err := f.registry.AddReview(id, "alice", 5, "", nil, nil, base)
	require.NoError(t, err)

	_, err = f.registry.FlagReview(id, "alice", base)
	require.NoError(t, err)
	_, err = f.registry.FlagReview(id, "alice", base)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	_, err = f.registry.ArchiveReview(id, "alice", base)
	require.NoError(t, err)
	_, err = f.registry.ArchiveReview(id, "alice", base)
	assert.ErrorIs(t, err, ledger.ErrConflict)

	_, err = f.registry.VerifyBusiness(id)
	require.NoError(t, err)
	_, err = f.registry.VerifyBusiness(id)
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestBanBlocksMutations(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")

	require.NoError(t, f.registry.BanUser("mallory"))
	assert.True(t, f.registry.IsBanned("mallory"))
	assert.ErrorIs(t, f.registry.BanUser("mallory"), ledger.ErrConflict)

	_, err := f.registry.AddReview(id, "mallory", 1, "", nil, nil, base)
	assert.ErrorIs(t, err, ledger.ErrForbidden)
	_, err = f.registry.VoteReview(id, "alice", "mallory", true, base)
	assert.ErrorIs(t, err, ledger.ErrForbidden)
	_, err = f.registry.RegisterBusiness("mallory", "Scam Shack", "retail", "", "", base)
	assert.ErrorIs(t, err, ledger.ErrForbidden)

	require.NoError(t, f.registry.UnbanUser("mallory"))
	assert.ErrorIs(t, f.registry.UnbanUser("mallory"), ledger.ErrNotFound)
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	f := newFixture()
	id := f.addBusiness(t, "olive", "Pizza Palace")
	_, err := f.registry.AddReview(id, "alice", 5, "great", []string{"tasty"}, nil, base)
	require.NoError(t, err)
	_, err = f.registry.VoteReview(id, "alice", "bob", true, base)
	require.NoError(t, err)
	require.NoError(t, f.registry.BanUser("mallory"))

	data, err := f.registry.Snapshot()
	require.NoError(t, err)

	restored := newFixture()
	require.NoError(t, restored.registry.Restore(data))

	review, err := restored.registry.GetReview(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, review.Upvotes)
	assert.Equal(t, []string{"tasty"}, review.Tags)
	assert.True(t, restored.registry.IsBanned("mallory"))

	// The cooldown survives the round trip.
	other := restored.addBusiness(t, "olive", "Burger Barn")
	_, err = restored.registry.AddReview(other, "alice", 4, "", nil, nil, base.Add(time.Hour))
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

// Adapters over the real engines, mirroring how the API wires them.
type gamifyPoints struct{ engine *gamify.Engine }

func (g gamifyPoints) AwardReviewPoints(account string, rating, photoCount int, now time.Time) error {
	_, err := g.engine.AwardReviewPoints(account, rating, photoCount, now)
	return err
}

func (g gamifyPoints) AwardUpvotePoints(account string, now time.Time) error {
	_, err := g.engine.AwardUpvotePoints(account, now)
	return err
}

func (g gamifyPoints) AwardPhotoPoints(account string, photoCount int, now time.Time) error {
	_, err := g.engine.AwardPhotoPoints(account, photoCount, now)
	return err
}

type reputeSink struct{ engine *reputation.Engine }

func (s reputeSink) RecordReview(account string, rating, commentLength int, hasPhotos bool, now time.Time) error {
	_, err := s.engine.UpdateForReview(account, rating, commentLength, hasPhotos, now)
	return err
}

func (s reputeSink) RecordVote(reviewer string, upvote bool, now time.Time) error {
	_, err := s.engine.UpdateForVote(reviewer, upvote, now)
	return err
}

// TestFullReviewFlow runs one review through the real engine stack and checks
// that points, reputation, profile counters and token rewards all land.
func TestFullReviewFlow(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop().Sugar()
	rewardLedger := rewards.NewLedger(base)
	gamifyEngine := gamify.NewEngine(rewardLedger, logger)
	reputationEngine := reputation.NewEngine()
	profiles := profile.NewRegistry()
	r := registry.New(gamifyPoints{gamifyEngine}, reputeSink{reputationEngine}, profiles, logger)

	_, err := profiles.Create("alice", "alice_99", "", "", base.Add(-72*time.Hour))
	require.NoError(t, err)

	b, err := r.RegisterBusiness("olive", "Pizza Palace", "restaurant", "downtown", "", base)
	require.NoError(t, err)

	_, err = r.AddReview(b.ID, "alice", 5, "Great food", []string{"tasty"}, []string{"img-1"}, base)
	require.NoError(t, err)

	// 100 base + 5*20 star points, plus 25 for the photo.
	stats, err := gamifyEngine.Stats("alice")
	require.NoError(t, err)
	assert.Equal(t, int64(225), stats.TotalPoints)
	assert.Equal(t, 1, stats.CurrentStreak)

	score, err := reputationEngine.Get("alice", base)
	require.NoError(t, err)
	assert.Equal(t, int64(8), score.Quality)

	p, err := profiles.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, p.ReviewCount)

	// The review points flowed on into a claimable token reward, photo bonus
	// included: (50 base + 200/10 quality + 10*1 photo) * 4 multiplier.
	assert.Equal(t, uint64(320), rewardLedger.ClaimableOf("alice"))
}
