package app

import (
	"math"

	"github.com/chrisjannenga/review-insights/internal/domain"
)

// FallbackNarrative is returned when the summary call fails or there is
// nothing to summarize; the numeric breakdown is still computed.
const FallbackNarrative = "Sentiment analysis based on review content."

// Aggregate reduces a classified review set into the star histogram and
// sentiment percentages. Each bucket is rounded independently, so a group
// sums to 100 only within rounding tolerance. Empty input yields all zeros.
// Math is order-independent; callers keep the source order for display.
func Aggregate(placeID string, reviews []domain.Review) domain.LocationAggregate {
	agg := domain.LocationAggregate{PlaceID: placeID}

	total := len(reviews)
	var starCounts [6]int // index by star value 1..5
	var pos, neu, neg int
	for _, r := range reviews {
		if r.Rating >= 1 && r.Rating <= 5 {
			starCounts[r.Rating]++
		}
		switch r.Sentiment {
		case domain.SentimentPositive:
			pos++
		case domain.SentimentNegative:
			neg++
		default:
			// unclassified counts as neutral
			neu++
		}
	}

	for stars := 5; stars >= 1; stars-- {
		agg.RatingBreakdown = append(agg.RatingBreakdown, domain.RatingBucket{
			Stars:      stars,
			Percentage: pct(starCounts[stars], total),
		})
	}
	agg.Sentiment = domain.SentimentBreakdown{
		Positive: pct(pos, total),
		Neutral:  pct(neu, total),
		Negative: pct(neg, total),
	}
	return agg
}

func pct(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}
