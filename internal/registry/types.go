package registry

import "time"

type Business struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Owner       string    `json:"owner"`
	Verified    bool      `json:"verified"`
	ReviewCount int       `json:"review_count"`
	RatingSum   int64     `json:"rating_sum"`
	CreatedAt   time.Time `json:"created_at"`
}

type Review struct {
	BusinessID    string    `json:"business_id"`
	Reviewer      string    `json:"reviewer"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	Tags          []string  `json:"tags,omitempty"`
	ImageRefs     []string  `json:"image_refs,omitempty"`
	Upvotes       int       `json:"upvotes"`
	Downvotes     int       `json:"downvotes"`
	Flagged       bool      `json:"flagged"`
	Archived      bool      `json:"archived"`
	Version       int       `json:"version"`
	OwnerResponse string    `json:"owner_response,omitempty"`
	RespondedAt   time.Time `json:"responded_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Vote records one voter's current polarity on one review. Polarity can flip,
// but a voter never holds more than one vote per review.
type Vote struct {
	BusinessID string    `json:"business_id"`
	Reviewer   string    `json:"reviewer"`
	Voter      string    `json:"voter"`
	Upvote     bool      `json:"upvote"`
	CastAt     time.Time `json:"cast_at"`
}
