package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/chrisjannenga/review-insights/internal/adapters/observability"
	"github.com/chrisjannenga/review-insights/internal/domain"
)

// PlaceDetails is the cached unit: one place plus its derived aggregate.
type PlaceDetails struct {
	Place     domain.Place
	Aggregate domain.LocationAggregate
}

// AnalysisService runs the review-sentiment pipeline: fetch reviews from the
// directory, classify each one, reduce to percentages, and summarize.
type AnalysisService struct {
	places          domain.PlacesClient
	clf             domain.Classifier
	cache           domain.Cache
	cacheTTL        time.Duration
	workers         int64
	classifyTimeout time.Duration
	group           singleflight.Group
}

func NewAnalysisService(p domain.PlacesClient, c domain.Classifier, cache domain.Cache, ttl time.Duration, workers int, classifyTimeout time.Duration) *AnalysisService {
	if workers <= 0 {
		workers = 4
	}
	if classifyTimeout <= 0 {
		classifyTimeout = 10 * time.Second
	}
	return &AnalysisService{
		places:          p,
		clf:             c,
		cache:           cache,
		cacheTTL:        ttl,
		workers:         int64(workers),
		classifyTimeout: classifyTimeout,
	}
}

// PlaceDetails returns one place with classified reviews and its aggregate.
// Cache-aside per place id; concurrent callers for the same id share one
// in-flight computation.
func (s *AnalysisService) PlaceDetails(ctx context.Context, placeID string) (PlaceDetails, error) {
	if placeID == "" {
		return PlaceDetails{}, fmt.Errorf("place id is required")
	}
	key := "details:" + placeID
	var cached PlaceDetails
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(placeID, func() (any, error) {
		place, err := s.places.GetDetails(ctx, placeID)
		if err != nil {
			return PlaceDetails{}, err
		}
		agg := s.analyze(ctx, &place)
		out := PlaceDetails{Place: place, Aggregate: agg}
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
		return out, nil
	})
	if err != nil {
		return PlaceDetails{}, err
	}
	return v.(PlaceDetails), nil
}

// Refresh drops the cached entry for the place and recomputes it, so a
// scheduled recompute never serves an entry older than its own run.
func (s *AnalysisService) Refresh(ctx context.Context, placeID string) (PlaceDetails, error) {
	if placeID == "" {
		return PlaceDetails{}, fmt.Errorf("place id is required")
	}
	if err := s.cache.Del(ctx, "details:"+placeID); err != nil {
		log.Warn().Err(err).Str("place", placeID).Msg("cache invalidation failed")
	}
	return s.PlaceDetails(ctx, placeID)
}

// Search returns a page of places with every embedded review classified.
func (s *AnalysisService) Search(ctx context.Context, query, pageToken string) (domain.SearchPage, error) {
	if query == "" && pageToken == "" {
		return domain.SearchPage{}, fmt.Errorf("query is required")
	}
	page, err := s.places.SearchText(ctx, query, pageToken)
	if err != nil {
		return domain.SearchPage{}, err
	}
	for i := range page.Places {
		s.classifyAll(ctx, page.Places[i].Reviews)
	}
	return page, nil
}

// AnalyzeReviews is the narrative-only path behind POST /v1/analyze-sentiment.
func (s *AnalysisService) AnalyzeReviews(ctx context.Context, locationName string, reviews []string) (string, error) {
	if len(reviews) == 0 {
		return "", fmt.Errorf("reviews are required")
	}
	return s.clf.Summarize(ctx, locationName, reviews)
}

// analyze classifies the place's reviews and reduces them. The narrative call
// only needs raw text, so it runs concurrently with classification; its
// failure degrades to the fallback string while percentages still come back.
func (s *AnalysisService) analyze(ctx context.Context, place *domain.Place) domain.LocationAggregate {
	narrative := FallbackNarrative

	var g errgroup.Group
	g.Go(func() error {
		s.classifyAll(ctx, place.Reviews)
		return nil
	})
	if len(place.Reviews) > 0 {
		texts := make([]string, 0, len(place.Reviews))
		for _, r := range place.Reviews {
			texts = append(texts, r.Text)
		}
		g.Go(func() error {
			n, err := s.clf.Summarize(ctx, place.Name, texts)
			if err != nil {
				log.Warn().Err(err).Str("place", place.ID).Msg("narrative summary failed")
				return nil
			}
			narrative = n
			return nil
		})
	}
	_ = g.Wait()

	agg := Aggregate(place.ID, place.Reviews)
	agg.Narrative = narrative
	return agg
}

// classifyAll fans out one classification call per review, bounded by the
// worker semaphore and a per-call timeout, and blocks until all settle.
// A failed call leaves the review neutral and unscored.
func (s *AnalysisService) classifyAll(ctx context.Context, reviews []domain.Review) {
	sem := semaphore.NewWeighted(s.workers)
	var g errgroup.Group
	for i := range reviews {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // context canceled; remaining reviews stay neutral
		}
		i := i
		g.Go(func() error {
			defer sem.Release(1)

			cctx, cancel := context.WithTimeout(ctx, s.classifyTimeout)
			defer cancel()

			cls, err := s.clf.Classify(cctx, reviews[i].Text)
			if err != nil {
				observability.ObserveClassification("fallback")
				log.Debug().Err(err).Str("review", reviews[i].ID).Msg("classification fell back to neutral")
				reviews[i].Sentiment = domain.SentimentNeutral
				reviews[i].Score = nil
				return nil
			}
			observability.ObserveClassification("classified")
			reviews[i].Sentiment = cls.Label
			score := cls.Score
			reviews[i].Score = &score
			return nil
		})
	}
	_ = g.Wait()
}
