package app_test

import (
	"testing"

	"github.com/chrisjannenga/review-insights/internal/app"
	"github.com/chrisjannenga/review-insights/internal/domain"
)

func reviewsWithRatings(ratings ...int) []domain.Review {
	out := make([]domain.Review, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, domain.Review{Rating: r, Sentiment: domain.SentimentNeutral})
	}
	return out
}

func bucketFor(t *testing.T, agg domain.LocationAggregate, stars int) int {
	t.Helper()
	for _, b := range agg.RatingBreakdown {
		if b.Stars == stars {
			return b.Percentage
		}
	}
	t.Fatalf("no bucket for %d stars", stars)
	return 0
}

func TestAggregate_StarHistogram(t *testing.T) {
	agg := app.Aggregate("p1", reviewsWithRatings(5, 5, 4, 3, 5, 2, 1, 5, 4, 5))

	want := map[int]int{5: 50, 4: 20, 3: 10, 2: 10, 1: 10}
	for stars, pct := range want {
		if got := bucketFor(t, agg, stars); got != pct {
			t.Fatalf("%d stars: got %d%%, want %d%%", stars, got, pct)
		}
	}
}

func TestAggregate_SentimentPercentages(t *testing.T) {
	reviews := []domain.Review{
		{Rating: 5, Sentiment: domain.SentimentPositive},
		{Rating: 4, Sentiment: domain.SentimentPositive},
		{Rating: 3, Sentiment: domain.SentimentNeutral},
		{Rating: 1, Sentiment: domain.SentimentNegative},
	}
	agg := app.Aggregate("p1", reviews)

	if agg.Sentiment.Positive != 50 || agg.Sentiment.Neutral != 25 || agg.Sentiment.Negative != 25 {
		t.Fatalf("unexpected sentiment: %+v", agg.Sentiment)
	}
}

func TestAggregate_UnclassifiedCountsAsNeutral(t *testing.T) {
	withLabel := app.Aggregate("p1", []domain.Review{
		{Rating: 3, Sentiment: domain.SentimentNeutral},
		{Rating: 5, Sentiment: domain.SentimentPositive},
	})
	unlabeled := app.Aggregate("p1", []domain.Review{
		{Rating: 3}, // zero-value sentiment, never classified
		{Rating: 5, Sentiment: domain.SentimentPositive},
	})
	if withLabel.Sentiment != unlabeled.Sentiment {
		t.Fatalf("explicit neutral %+v != unclassified %+v", withLabel.Sentiment, unlabeled.Sentiment)
	}
}

func TestAggregate_Empty(t *testing.T) {
	agg := app.Aggregate("p1", nil)
	for _, b := range agg.RatingBreakdown {
		if b.Percentage != 0 {
			t.Fatalf("expected 0%% for %d stars, got %d", b.Stars, b.Percentage)
		}
	}
	if agg.Sentiment != (domain.SentimentBreakdown{}) {
		t.Fatalf("expected zero sentiment, got %+v", agg.Sentiment)
	}
}

// Independent rounding means a group may not sum to exactly 100, but it must
// stay within 1 for any non-empty set.
func TestAggregate_SumWithinTolerance(t *testing.T) {
	sets := [][]int{
		{5, 4, 3},
		{5, 5, 4, 3, 5, 2, 1, 5, 4, 5},
		{1, 1, 2},
		{3, 3, 3, 4, 4, 5, 5},
	}
	for _, ratings := range sets {
		agg := app.Aggregate("p1", reviewsWithRatings(ratings...))
		sum := 0
		for _, b := range agg.RatingBreakdown {
			if b.Percentage < 0 || b.Percentage > 100 {
				t.Fatalf("percentage out of range: %+v", b)
			}
			sum += b.Percentage
		}
		if sum < 99 || sum > 101 {
			t.Fatalf("ratings %v: histogram sums to %d", ratings, sum)
		}
	}
}
