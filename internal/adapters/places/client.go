package places

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/chrisjannenga/review-insights/internal/adapters/observability"
	"github.com/chrisjannenga/review-insights/internal/domain"
)

const (
	searchFieldMask = "places.id,places.displayName,places.formattedAddress,places.rating," +
		"places.userRatingCount,places.internationalPhoneNumber,places.websiteUri," +
		"places.regularOpeningHours,places.businessStatus,places.reviews.name," +
		"places.reviews.text,places.reviews.rating,places.reviews.relativePublishTimeDescription," +
		"places.reviews.authorAttribution"

	detailsFieldMask = "id,displayName,formattedAddress,rating,userRatingCount," +
		"internationalPhoneNumber,websiteUri,regularOpeningHours,businessStatus," +
		"reviews.name,reviews.text,reviews.rating,reviews.relativePublishTimeDescription," +
		"reviews.authorAttribution,photos.name"
)

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if base == "" {
		base = "https://places.googleapis.com/v1"
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Public API ----

func (c *Client) SearchText(ctx context.Context, query, pageToken string) (domain.SearchPage, error) {
	body := map[string]any{
		"textQuery":      query,
		"languageCode":   "en",
		"maxResultCount": 20,
	}
	if pageToken != "" {
		body["pageToken"] = pageToken
	}
	var out struct {
		Places        []placePayload `json:"places"`
		NextPageToken string         `json:"nextPageToken"`
	}
	err := c.do(ctx, http.MethodPost, c.base+"/places:searchText", searchFieldMask, body, &out)
	if err != nil {
		return domain.SearchPage{}, err
	}
	page := domain.SearchPage{NextPageToken: out.NextPageToken}
	for _, p := range out.Places {
		page.Places = append(page.Places, p.toDomain())
	}
	return page, nil
}

func (c *Client) GetDetails(ctx context.Context, placeID string) (domain.Place, error) {
	if placeID == "" {
		return domain.Place{}, fmt.Errorf("place id is required")
	}
	var out placePayload
	if err := c.do(ctx, http.MethodGet, c.base+"/places/"+placeID, detailsFieldMask, nil, &out); err != nil {
		return domain.Place{}, err
	}
	p := out.toDomain()

	// Best-effort photo lookup; a missing photo never fails the details call.
	if len(out.Photos) > 0 && out.Photos[0].Name != "" {
		if u, err := c.PhotoURL(ctx, out.Photos[0].Name); err == nil {
			p.PhotoURL = u
		}
	}
	return p, nil
}

func (c *Client) PhotoURL(ctx context.Context, photoName string) (string, error) {
	u := fmt.Sprintf("%s/%s/media?maxHeightPx=400&maxWidthPx=400&skipHttpRedirect=true", c.base, photoName)
	var out struct {
		PhotoURI string `json:"photoUri"`
	}
	if err := c.do(ctx, http.MethodGet, u, "", nil, &out); err != nil {
		return "", err
	}
	return out.PhotoURI, nil
}

// ---- Wire shapes ----

type placePayload struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress         string  `json:"formattedAddress"`
	Rating                   float64 `json:"rating"`
	UserRatingCount          int     `json:"userRatingCount"`
	InternationalPhoneNumber string  `json:"internationalPhoneNumber"`
	WebsiteURI               string  `json:"websiteUri"`
	RegularOpeningHours      *struct {
		Periods []struct {
			Open bool `json:"open"`
		} `json:"periods"`
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours"`
	BusinessStatus string `json:"businessStatus"`
	Photos         []struct {
		Name string `json:"name"`
	} `json:"photos"`
	Reviews []reviewPayload `json:"reviews"`
}

type reviewPayload struct {
	Name                           string     `json:"name"`
	Rating                         float64    `json:"rating"`
	Text                           reviewText `json:"text"`
	RelativePublishTimeDescription string     `json:"relativePublishTimeDescription"`
	AuthorAttribution              struct {
		DisplayName string `json:"displayName"`
		PhotoURI    string `json:"photoUri"`
	} `json:"authorAttribution"`
}

// reviewText absorbs both shapes the directory emits for a review's text:
// a plain JSON string, or an object {"text": "..."}. Anything else decodes
// to the empty string.
type reviewText struct {
	Value string
}

func (t *reviewText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		t.Value = s
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		t.Value = obj.Text
		return nil
	}
	t.Value = ""
	return nil
}

func (p placePayload) toDomain() domain.Place {
	out := domain.Place{
		ID:             p.ID,
		Name:           p.DisplayName.Text,
		Address:        p.FormattedAddress,
		Phone:          p.InternationalPhoneNumber,
		Website:        p.WebsiteURI,
		Rating:         p.Rating,
		TotalReviews:   p.UserRatingCount,
		BusinessStatus: p.BusinessStatus,
	}
	if p.RegularOpeningHours != nil {
		oh := &domain.OpeningHours{WeekdayText: p.RegularOpeningHours.WeekdayDescriptions}
		for _, period := range p.RegularOpeningHours.Periods {
			if period.Open {
				oh.OpenNow = true
				break
			}
		}
		out.OpeningHours = oh
	}
	for _, r := range p.Reviews {
		out.Reviews = append(out.Reviews, domain.Review{
			ID:          r.Name,
			Author:      r.AuthorAttribution.DisplayName,
			AuthorPhoto: r.AuthorAttribution.PhotoURI,
			Rating:      int(r.Rating),
			Text:        r.Text.Value,
			TimeLabel:   r.RelativePublishTimeDescription,
			Sentiment:   domain.SentimentNeutral, // until classified
		})
	}
	return out
}

// ---- Internals ----

// do performs a request with client-side rate limiting, retries, and JSON
// decode into out. Retries on 429 and transient 5xx, honoring Retry-After
// when provided.
func (c *Client) do(ctx context.Context, method, url, fieldMask string, body, out any) error {
	// client-side rate limiting
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	start := time.Now()
	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		var rd io.Reader
		if payload != nil {
			rd = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return err
		}
		req.Header.Set("X-Goog-Api-Key", c.key)
		if fieldMask != "" {
			req.Header.Set("X-Goog-FieldMask", fieldMask)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "review-insights/1.0")

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			observability.ObserveExternal("places", method, resp.StatusCode, time.Since(start))
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			observability.ObserveExternal("places", method, resp.StatusCode, time.Since(start))
			return domain.ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			observability.ObserveExternal("places", method, resp.StatusCode, time.Since(start))
			return domain.ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			observability.ObserveExternal("places", method, resp.StatusCode, time.Since(start))
			return domain.ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &domain.UpstreamError{Status: resp.StatusCode}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.ObserveExternal("places", method, resp.StatusCode, time.Since(start))
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			observability.ObserveExternal("places", method, resp.StatusCode, time.Since(start))
			return &domain.UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}
