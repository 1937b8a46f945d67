package profile

import "time"

type Profile struct {
	Account           string    `json:"account"`
	Username          string    `json:"username"`
	Bio               string    `json:"bio"`
	AvatarRef         string    `json:"avatar_ref,omitempty"`
	ReviewCount       int       `json:"review_count"`
	UpvoteCount       int       `json:"upvote_count"`
	Level             int       `json:"level"`
	CreatedAt         time.Time `json:"created_at"`
	UsernameChangedAt time.Time `json:"username_changed_at"`
}
