package profile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"repute/internal/ledger"
)

const (
	MinUsernameLen   = 3
	MaxUsernameLen   = 20
	MaxBioLen        = 500
	MaxAvatarRefLen  = 200
	UsernameCooldown = 30 * 24 * time.Hour
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

var reservedUsernames = map[string]struct{}{
	"admin":     {},
	"root":      {},
	"system":    {},
	"moderator": {},
	"support":   {},
	"repute":    {},
}

// Registry is the profile component: one profile per account, unique
// usernames, and the activity counters that feed the simple profile level.
type Registry struct {
	profiles  map[string]*Profile
	usernames map[string]string // lowercased username -> account
	busy      bool
}

func NewRegistry() *Registry {
	return &Registry{
		profiles:  make(map[string]*Profile),
		usernames: make(map[string]string),
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

func validateUsername(username string) error {
	if len(username) < MinUsernameLen || len(username) > MaxUsernameLen {
		return fmt.Errorf("%w: username must be %d-%d characters", ledger.ErrValidation, MinUsernameLen, MaxUsernameLen)
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username may only contain letters, digits and underscores", ledger.ErrValidation)
	}
	if _, ok := reservedUsernames[strings.ToLower(username)]; ok {
		return fmt.Errorf("%w: username is reserved", ledger.ErrValidation)
	}
	return nil
}

func (r *Registry) Create(account, username, bio, avatarRef string, now time.Time) (*Profile, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	if account == "" {
		return nil, fmt.Errorf("%w: account is required", ledger.ErrValidation)
	}
	if _, ok := r.profiles[account]; ok {
		return nil, fmt.Errorf("%w: account already has a profile", ledger.ErrConflict)
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if _, taken := r.usernames[strings.ToLower(username)]; taken {
		return nil, fmt.Errorf("%w: username already taken", ledger.ErrConflict)
	}
	if len(bio) > MaxBioLen {
		return nil, fmt.Errorf("%w: bio exceeds %d characters", ledger.ErrValidation, MaxBioLen)
	}
	if len(avatarRef) > MaxAvatarRefLen {
		return nil, fmt.Errorf("%w: avatar reference exceeds %d characters", ledger.ErrValidation, MaxAvatarRefLen)
	}

	p := &Profile{
		Account:           account,
		Username:          username,
		Bio:               bio,
		AvatarRef:         avatarRef,
		Level:             1,
		CreatedAt:         now,
		UsernameChangedAt: now,
	}
	r.profiles[account] = p
	r.usernames[strings.ToLower(username)] = account
	return p, nil
}

func (r *Registry) ChangeUsername(account, username string, now time.Time) (*Profile, error) {
	if err := r.enter(); err != nil {
		return nil, err
	}
	defer r.leave()

	p, ok := r.profiles[account]
	if !ok {
		return nil, fmt.Errorf("%w: profile", ledger.ErrNotFound)
	}
	if now.Sub(p.UsernameChangedAt) < UsernameCooldown {
		return nil, fmt.Errorf("%w: username was changed less than %s ago", ledger.ErrValidation, UsernameCooldown)
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	lower := strings.ToLower(username)
	if owner, taken := r.usernames[lower]; taken && owner != account {
		return nil, fmt.Errorf("%w: username already taken", ledger.ErrConflict)
	}

	delete(r.usernames, strings.ToLower(p.Username))
	p.Username = username
	p.UsernameChangedAt = now
	r.usernames[lower] = account
	return p, nil
}

func (r *Registry) Get(account string) (*Profile, error) {
	p, ok := r.profiles[account]
	if !ok {
		return nil, fmt.Errorf("%w: profile", ledger.ErrNotFound)
	}
	out := *p
	return &out, nil
}

// AccountAge reports how long ago the account's profile was created. Accounts
// without a profile have no age and fail the review registry's age check.
func (r *Registry) AccountAge(account string, now time.Time) (time.Duration, error) {
	p, ok := r.profiles[account]
	if !ok {
		return 0, fmt.Errorf("%w: profile", ledger.ErrNotFound)
	}
	return now.Sub(p.CreatedAt), nil
}

// UpdateStats is the narrow increment surface the review registry calls. The
// profile level is a step function of cumulative activity, never decreasing
// for positive deltas.
func (r *Registry) UpdateStats(account string, reviewDelta, upvoteDelta int) error {
	if err := r.enter(); err != nil {
		return err
	}
	defer r.leave()

	p, ok := r.profiles[account]
	if !ok {
		return fmt.Errorf("%w: profile", ledger.ErrNotFound)
	}
	p.ReviewCount += reviewDelta
	if p.ReviewCount < 0 {
		p.ReviewCount = 0
	}
	p.UpvoteCount += upvoteDelta
	if p.UpvoteCount < 0 {
		p.UpvoteCount = 0
	}
	p.Level = statsLevel(p.ReviewCount, p.UpvoteCount)
	return nil
}

func statsLevel(reviews, upvotes int) int {
	score := reviews*10 + upvotes*2
	switch {
	case score < 50:
		return 1
	case score < 150:
		return 2
	case score < 400:
		return 3
	case score < 1000:
		return 4
	default:
		return 5
	}
}

type snapshot struct {
	Profiles []*Profile `json:"profiles"`
}

func (r *Registry) Snapshot() ([]byte, error) {
	snap := snapshot{}
	for _, p := range r.profiles {
		snap.Profiles = append(snap.Profiles, p)
	}
	return json.Marshal(snap)
}

func (r *Registry) Restore(data []byte) error {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	r.profiles = make(map[string]*Profile)
	r.usernames = make(map[string]string)
	for _, p := range snap.Profiles {
		r.profiles[p.Account] = p
		r.usernames[strings.ToLower(p.Username)] = p.Account
	}
	return nil
}
