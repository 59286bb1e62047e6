// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/chrisjannenga/review-insights/internal/app"
	"github.com/chrisjannenga/review-insights/internal/domain"
)

type Handlers struct {
	A *app.AnalysisService
	C *app.ClaimService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/places", h.searchPlaces)
	s.mux.Get("/v1/places/{id}/details", h.placeDetails)
	s.mux.Post("/v1/analyze-sentiment", h.analyzeSentiment)
	s.mux.Post("/v1/places/{id}/claim", h.toggleClaim)
	s.mux.Get("/v1/places/{id}/claim", h.claimStatus)
	s.mux.Get("/v1/claimed", h.listClaimed)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeUpstreamProblem mirrors the directory's status where known, 500 otherwise.
func writeUpstreamProblem(w http.ResponseWriter, err error) {
	var ue *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "place not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "directory rejected the credential")
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "directory rejected the credential")
	case errors.As(err, &ue) && ue.Status >= 400 && ue.Status < 600:
		writeProblem(w, ue.Status, "Upstream Error", ue.Body)
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSONWithETag(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func userID(r *http.Request) string { return r.Header.Get("X-User-ID") }

// ---- response shapes ----

type reviewResponse struct {
	ID        string   `json:"id"`
	Author    string   `json:"author"`
	Rating    int      `json:"rating"`
	Text      string   `json:"text"`
	Time      string   `json:"time"`
	PhotoURL  string   `json:"profilePhotoUrl,omitempty"`
	Sentiment string   `json:"sentiment"`
	Score     *float64 `json:"score,omitempty"`
}

type openingHoursResponse struct {
	OpenNow     bool     `json:"open_now"`
	WeekdayText []string `json:"weekday_text"`
}

type placeResponse struct {
	ID             string                `json:"id"`
	PlaceID        string                `json:"placeId"`
	Name           string                `json:"name"`
	Address        string                `json:"address"`
	Rating         float64               `json:"rating"`
	TotalReviews   int                   `json:"totalReviews"`
	Phone          string                `json:"phoneNumber,omitempty"`
	Website        string                `json:"website,omitempty"`
	BusinessStatus string                `json:"businessStatus,omitempty"`
	OpeningHours   *openingHoursResponse `json:"openingHours,omitempty"`
	Reviews        []reviewResponse      `json:"reviews"`
}

type sentimentResponse struct {
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
	Analysis string `json:"analysis"`
}

type detailsResponse struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Rating          float64               `json:"rating"`
	TotalRatings    int                   `json:"user_ratings_total"`
	Address         string                `json:"formatted_address"`
	Phone           string                `json:"formatted_phone_number,omitempty"`
	BusinessStatus  string                `json:"business_status"`
	PhotoURL        string                `json:"photo_url,omitempty"`
	OpeningHours    *openingHoursResponse `json:"opening_hours,omitempty"`
	Reviews         []reviewResponse      `json:"reviews"`
	RatingBreakdown []domain.RatingBucket `json:"rating_breakdown"`
	Sentiment       sentimentResponse     `json:"sentiment"`
}

func toReviewResponses(rs []domain.Review) []reviewResponse {
	out := make([]reviewResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, reviewResponse{
			ID:        r.ID,
			Author:    r.Author,
			Rating:    r.Rating,
			Text:      r.Text,
			Time:      r.TimeLabel,
			PhotoURL:  r.AuthorPhoto,
			Sentiment: string(r.Sentiment),
			Score:     r.Score,
		})
	}
	return out
}

func toOpeningHours(oh *domain.OpeningHours) *openingHoursResponse {
	if oh == nil {
		return nil
	}
	return &openingHoursResponse{OpenNow: oh.OpenNow, WeekdayText: oh.WeekdayText}
}

// ---- handlers ----

func (h *Handlers) searchPlaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	pageToken := r.URL.Query().Get("pageToken")
	if q == "" && pageToken == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Query", "q or pageToken is required")
		return
	}

	page, err := h.A.Search(r.Context(), q, pageToken)
	if err != nil {
		writeUpstreamProblem(w, err)
		return
	}

	resp := struct {
		Places        []placeResponse `json:"places"`
		NextPageToken string          `json:"nextPageToken,omitempty"`
	}{NextPageToken: page.NextPageToken, Places: make([]placeResponse, 0, len(page.Places))}
	for _, p := range page.Places {
		resp.Places = append(resp.Places, placeResponse{
			ID:             p.ID,
			PlaceID:        p.ID,
			Name:           p.Name,
			Address:        p.Address,
			Rating:         p.Rating,
			TotalReviews:   p.TotalReviews,
			Phone:          p.Phone,
			Website:        p.Website,
			BusinessStatus: p.BusinessStatus,
			OpeningHours:   toOpeningHours(p.OpeningHours),
			Reviews:        toReviewResponses(p.Reviews),
		})
	}
	writeJSONWithETag(w, r, resp)
}

func (h *Handlers) placeDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "place id is required")
		return
	}

	d, err := h.A.PlaceDetails(r.Context(), id)
	if err != nil {
		writeUpstreamProblem(w, err)
		return
	}

	resp := detailsResponse{
		ID:              d.Place.ID,
		Name:            d.Place.Name,
		Rating:          d.Place.Rating,
		TotalRatings:    d.Place.TotalReviews,
		Address:         d.Place.Address,
		Phone:           d.Place.Phone,
		BusinessStatus:  d.Place.BusinessStatus,
		PhotoURL:        d.Place.PhotoURL,
		OpeningHours:    toOpeningHours(d.Place.OpeningHours),
		Reviews:         toReviewResponses(d.Place.Reviews),
		RatingBreakdown: d.Aggregate.RatingBreakdown,
		Sentiment: sentimentResponse{
			Positive: d.Aggregate.Sentiment.Positive,
			Neutral:  d.Aggregate.Sentiment.Neutral,
			Negative: d.Aggregate.Sentiment.Negative,
			Analysis: d.Aggregate.Narrative,
		},
	}
	writeJSONWithETag(w, r, resp)
}

func (h *Handlers) analyzeSentiment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reviews      []string `json:"reviews"`
		LocationName string   `json:"locationName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if len(req.Reviews) == 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "reviews are required")
		return
	}

	analysis, err := h.A.AnalyzeReviews(r.Context(), req.LocationName, req.Reviews)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Analysis Failed", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"analysis": analysis}); err != nil {
		log.Error().Err(err).Msg("failed to write analyze-sentiment body")
	}
}

func (h *Handlers) toggleClaim(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "X-User-ID is required")
		return
	}
	id := chi.URLParam(r, "id")

	var req struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if req.Name == "" || req.Address == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "name and address are required")
		return
	}

	claimed, err := h.C.Toggle(r.Context(), uid, id, req.Name, req.Address)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Claim Failed", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"claimed": claimed})
}

func (h *Handlers) claimStatus(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "X-User-ID is required")
		return
	}
	claimed, err := h.C.IsClaimed(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Lookup Failed", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"claimed": claimed})
}

func (h *Handlers) listClaimed(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "X-User-ID is required")
		return
	}
	claims, err := h.C.List(r.Context(), uid)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Lookup Failed", "")
		return
	}

	type claimResponse struct {
		PlaceID   string `json:"placeId"`
		Name      string `json:"name"`
		Address   string `json:"address"`
		CreatedAt string `json:"createdAt"`
	}
	out := make([]claimResponse, 0, len(claims))
	for _, c := range claims {
		out = append(out, claimResponse{
			PlaceID:   c.PlaceID,
			Name:      c.Name,
			Address:   c.Address,
			CreatedAt: c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSONWithETag(w, r, out)
}
