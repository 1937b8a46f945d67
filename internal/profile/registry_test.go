package profile_test

import (
	"strings"
	"testing"
	"time"

	"repute/internal/ledger"
	"repute/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCreateProfile(t *testing.T) {
	t.Parallel()

	r := profile.NewRegistry()
	p, err := r.Create("alice", "alice_99", "likes pizza", "avatars/alice.png", base)
	require.NoError(t, err)
	assert.Equal(t, "alice_99", p.Username)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, base, p.CreatedAt)

	_, err = r.Create("alice", "other_name", "", "", base)
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestUsernameValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		username string
		wantErr  error
	}{
		{name: "too short", username: "ab", wantErr: ledger.ErrValidation},
		{name: "too long", username: strings.Repeat("a", 21), wantErr: ledger.ErrValidation},
		{name: "bad characters", username: "has spaces", wantErr: ledger.ErrValidation},
		{name: "reserved", username: "admin", wantErr: ledger.ErrValidation},
		{name: "reserved mixed case", username: "Moderator", wantErr: ledger.ErrValidation},
		{name: "valid", username: "Valid_Name_123"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := profile.NewRegistry()
			_, err := r.Create("acct", tt.username, "", "", base)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUsernameUniquenessIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	r := profile.NewRegistry()
	_, err := r.Create("alice", "PizzaFan", "", "", base)
	require.NoError(t, err)

	_, err = r.Create("bob", "pizzafan", "", "", base)
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestChangeUsernameCooldown(t *testing.T) {
	t.Parallel()

	r := profile.NewRegistry()
	_, err := r.Create("alice", "first_name", "", "", base)
	require.NoError(t, err)

	_, err = r.ChangeUsername("alice", "second_name", base.Add(29*24*time.Hour))
	assert.ErrorIs(t, err, ledger.ErrValidation)

	p, err := r.ChangeUsername("alice", "second_name", base.Add(31*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "second_name", p.Username)

	// The old name is released for others.
	_, err = r.Create("bob", "first_name", "", "", base.Add(31*24*time.Hour))
	assert.NoError(t, err)
}

func TestAccountAge(t *testing.T) {
	t.Parallel()

	r := profile.NewRegistry()
	_, err := r.Create("alice", "alice_99", "", "", base)
	require.NoError(t, err)

	age, err := r.AccountAge("alice", base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, age)

	_, err = r.AccountAge("ghost", base)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUpdateStatsLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		reviews   int
		upvotes   int
		wantLevel int
	}{
		{name: "fresh account", reviews: 0, upvotes: 0, wantLevel: 1},
		{name: "just below level 2", reviews: 4, upvotes: 4, wantLevel: 1},
		{name: "level 2", reviews: 5, upvotes: 0, wantLevel: 2},
		{name: "level 3", reviews: 15, upvotes: 0, wantLevel: 3},
		{name: "level 4", reviews: 40, upvotes: 0, wantLevel: 4},
		{name: "level 5", reviews: 100, upvotes: 0, wantLevel: 5},
		{name: "upvotes count too", reviews: 0, upvotes: 25, wantLevel: 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := profile.NewRegistry()
			_, err := r.Create("acct", "some_user", "", "", base)
			require.NoError(t, err)
			require.NoError(t, r.UpdateStats("acct", tt.reviews, tt.upvotes))

			p, err := r.Get("acct")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, p.Level)
		})
	}
}

func TestUpdateStatsFloorsAtZero(t *testing.T) {
	t.Parallel()

	r := profile.NewRegistry()
	_, err := r.Create("acct", "some_user", "", "", base)
	require.NoError(t, err)

	require.NoError(t, r.UpdateStats("acct", -5, -5))
	p, err := r.Get("acct")
	require.NoError(t, err)
	assert.Equal(t, 0, p.ReviewCount)
	assert.Equal(t, 0, p.UpvoteCount)
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	r := profile.NewRegistry()
	_, err := r.Create("alice", "alice_99", "bio", "", base)
	require.NoError(t, err)
	require.NoError(t, r.UpdateStats("alice", 10, 3))

	data, err := r.Snapshot()
	require.NoError(t, err)

	restored := profile.NewRegistry()
	require.NoError(t, restored.Restore(data))

	p, err := restored.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, 10, p.ReviewCount)
	assert.Equal(t, 2, p.Level)

	// Username index is rebuilt from the snapshot.
	_, err = restored.Create("bob", "Alice_99", "", "", base)
	assert.ErrorIs(t, err, ledger.ErrConflict)
}
