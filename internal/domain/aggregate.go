package domain

// RatingBucket is one bar of the star histogram.
type RatingBucket struct {
	Stars      int `json:"stars"`
	Percentage int `json:"percentage"`
}

type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// LocationAggregate is the derived view over one place's review set.
// Percentages are rounded per bucket independently, so each group sums to
// 100 only within rounding tolerance; an empty review set yields all zeros.
type LocationAggregate struct {
	PlaceID         string             `json:"placeId"`
	RatingBreakdown []RatingBucket     `json:"ratingBreakdown"`
	Sentiment       SentimentBreakdown `json:"sentiment"`
	Narrative       string             `json:"narrative"`
}
