package domain

import "time"

type Place struct {
	ID             string
	Name           string
	Address        string
	Phone          string
	Website        string
	Rating         float64
	TotalReviews   int
	BusinessStatus string
	OpeningHours   *OpeningHours
	PhotoURL       string
	Reviews        []Review
}

type OpeningHours struct {
	OpenNow     bool
	WeekdayText []string
}

// SearchPage is one page of text-search results. NextPageToken is the
// directory's opaque cursor; empty means last page.
type SearchPage struct {
	Places        []Place
	NextPageToken string
}

// Claim binds a place to the user who claimed it.
type Claim struct {
	UserID    string
	PlaceID   string
	Name      string
	Address   string
	CreatedAt time.Time
}
