package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	server "github.com/chrisjannenga/review-insights/internal/adapters/http_server"
	"github.com/chrisjannenga/review-insights/internal/app"
	"github.com/chrisjannenga/review-insights/internal/domain"
)

// ---- fakes ----

type fakePlaces struct {
	place domain.Place
	page  domain.SearchPage
	err   error
}

func (f *fakePlaces) SearchText(ctx context.Context, query, pageToken string) (domain.SearchPage, error) {
	return f.page, f.err
}
func (f *fakePlaces) GetDetails(ctx context.Context, placeID string) (domain.Place, error) {
	return f.place, f.err
}
func (f *fakePlaces) PhotoURL(ctx context.Context, photoName string) (string, error) {
	return "", nil
}

type fakeClassifier struct{}

func (fakeClassifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if text == "terrible" {
		return domain.Classification{Score: -0.8, Label: domain.SentimentNegative}, nil
	}
	return domain.Classification{Score: 0.7, Label: domain.SentimentPositive}, nil
}
func (fakeClassifier) Summarize(ctx context.Context, locationName string, reviews []string) (string, error) {
	return "People like " + locationName + ".", nil
}

type fakeCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.m[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error { return nil }

type fakeClaimRepo struct {
	mu     sync.Mutex
	claims map[string]domain.Claim
}

func (f *fakeClaimRepo) ToggleClaim(ctx context.Context, c domain.Claim) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claims == nil {
		f.claims = map[string]domain.Claim{}
	}
	k := c.UserID + "|" + c.PlaceID
	if _, ok := f.claims[k]; ok {
		delete(f.claims, k)
		return false, nil
	}
	c.CreatedAt = time.Now()
	f.claims[k] = c
	return true, nil
}
func (f *fakeClaimRepo) IsClaimed(ctx context.Context, userID, placeID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.claims[userID+"|"+placeID]
	return ok, nil
}
func (f *fakeClaimRepo) ListClaims(ctx context.Context, userID string) ([]domain.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Claim
	for _, c := range f.claims {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}
func (f *fakeClaimRepo) ListClaimedPlaceIDs(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeClaimRepo) UpsertReviews(ctx context.Context, placeID string, rs []domain.Review) error {
	return nil
}

func testRouter(places domain.PlacesClient) http.Handler {
	analysis := app.NewAnalysisService(places, fakeClassifier{}, &fakeCache{}, time.Minute, 2, time.Second)
	claims := app.NewClaimService(&fakeClaimRepo{}, analysis)
	srv := server.New()
	srv.MountHandlers(&server.Handlers{A: analysis, C: claims})
	return srv.Mux()
}

func detailedPlace() domain.Place {
	return domain.Place{
		ID:      "p1",
		Name:    "Joe's Diner",
		Address: "1 Main St",
		Rating:  4.2,
		Reviews: []domain.Review{
			{ID: "r1", Rating: 5, Text: "loved it"},
			{ID: "r2", Rating: 4, Text: "pretty good"},
			{ID: "r3", Rating: 1, Text: "terrible"},
		},
	}
}

// ---- tests ----

func TestPlaceDetails_OK(t *testing.T) {
	h := testRouter(&fakePlaces{place: detailedPlace()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/places/p1/details", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	var body struct {
		ID        string `json:"id"`
		Sentiment struct {
			Positive int    `json:"positive"`
			Neutral  int    `json:"neutral"`
			Negative int    `json:"negative"`
			Analysis string `json:"analysis"`
		} `json:"sentiment"`
		RatingBreakdown []struct {
			Stars      int `json:"stars"`
			Percentage int `json:"percentage"`
		} `json:"rating_breakdown"`
		Reviews []struct {
			Sentiment string `json:"sentiment"`
		} `json:"reviews"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "p1" {
		t.Fatalf("unexpected id %q", body.ID)
	}
	if body.Sentiment.Positive != 67 || body.Sentiment.Negative != 33 {
		t.Fatalf("unexpected sentiment: %+v", body.Sentiment)
	}
	if body.Sentiment.Analysis != "People like Joe's Diner." {
		t.Fatalf("unexpected analysis: %q", body.Sentiment.Analysis)
	}
	if len(body.RatingBreakdown) != 5 {
		t.Fatalf("expected 5 rating buckets, got %d", len(body.RatingBreakdown))
	}
	if body.Reviews[2].Sentiment != "negative" {
		t.Fatalf("expected classified review sentiment, got %q", body.Reviews[2].Sentiment)
	}
}

func TestPlaceDetails_ETagShortCircuit(t *testing.T) {
	h := testRouter(&fakePlaces{place: detailedPlace()})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/places/p1/details", nil))
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/places/p1/details", nil)
	req.Header.Set("If-None-Match", etag)
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rr2.Code)
	}
}

func TestPlaceDetails_UpstreamStatusMirrored(t *testing.T) {
	h := testRouter(&fakePlaces{err: &domain.UpstreamError{Status: 503, Body: "try later"}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/places/p1/details", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected mirrored 503, got %d", rr.Code)
	}
}

func TestPlaceDetails_NotFound(t *testing.T) {
	h := testRouter(&fakePlaces{err: domain.ErrNotFound})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/places/missing/details", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestSearchPlaces_RequiresQuery(t *testing.T) {
	h := testRouter(&fakePlaces{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/places", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAnalyzeSentiment(t *testing.T) {
	h := testRouter(&fakePlaces{})

	body, _ := json.Marshal(map[string]any{
		"reviews":      []string{"good", "bad"},
		"locationName": "Joe's Diner",
	})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/v1/analyze-sentiment", bytes.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["analysis"] != "People like Joe's Diner." {
		t.Fatalf("unexpected analysis: %q", resp["analysis"])
	}
}

func TestAnalyzeSentiment_EmptyReviews(t *testing.T) {
	h := testRouter(&fakePlaces{})

	body, _ := json.Marshal(map[string]any{"reviews": []string{}, "locationName": "x"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/v1/analyze-sentiment", bytes.NewReader(body)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestClaim_RequiresIdentity(t *testing.T) {
	h := testRouter(&fakePlaces{place: detailedPlace()})

	body, _ := json.Marshal(map[string]string{"name": "Joe's Diner", "address": "1 Main St"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/v1/places/p1/claim", bytes.NewReader(body)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestClaim_ToggleFlow(t *testing.T) {
	h := testRouter(&fakePlaces{place: detailedPlace()})

	claim := func() bool {
		body, _ := json.Marshal(map[string]string{"name": "Joe's Diner", "address": "1 Main St"})
		req := httptest.NewRequest("POST", "/v1/places/p1/claim", bytes.NewReader(body))
		req.Header.Set("X-User-ID", "u1")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("claim status %d body %s", rr.Code, rr.Body.String())
		}
		var resp map[string]bool
		_ = json.Unmarshal(rr.Body.Bytes(), &resp)
		return resp["claimed"]
	}

	if !claim() {
		t.Fatalf("first toggle should claim")
	}

	req := httptest.NewRequest("GET", "/v1/places/p1/claim", nil)
	req.Header.Set("X-User-ID", "u1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var status map[string]bool
	_ = json.Unmarshal(rr.Body.Bytes(), &status)
	if !status["claimed"] {
		t.Fatalf("expected claimed status")
	}

	if claim() {
		t.Fatalf("second toggle should unclaim")
	}
}
