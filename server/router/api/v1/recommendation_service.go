package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/moodplace/moodplace/recommend"
	"github.com/moodplace/moodplace/store"
)

type recommendationRequest struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	EmotionTags []string `json:"emotion_tags"`
	UserID      *int32   `json:"user_id"`
	Category    string   `json:"category"`
	TopK        int      `json:"top_k"`
}

type placePayload struct {
	ID         int32    `json:"id"`
	ExternalID string   `json:"external_id,omitempty"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Location   string   `json:"location,omitempty"`
	PhotoRef   string   `json:"photo_ref,omitempty"`
	Rating     float64  `json:"rating,omitempty"`
	PlaceTypes []string `json:"place_types,omitempty"`
	Emotions   []string `json:"emotions,omitempty"`
}

type recommendationPayload struct {
	Place   placePayload `json:"place"`
	Score   float32      `json:"score"`
	Summary string       `json:"summary"`
	Source  string       `json:"source"`
}

func toPlacePayload(p *store.Place) placePayload {
	return placePayload{
		ID:         p.ID,
		ExternalID: p.ExternalID,
		Name:       p.Name,
		Address:    p.Address,
		Location:   p.LocationName,
		PhotoRef:   p.PhotoRef,
		Rating:     p.Rating,
		PlaceTypes: p.PlaceTypes,
		Emotions:   p.Emotions,
	}
}

// CreateRecommendations runs one ranking call and returns the ordered list.
func (s *APIV1Service) CreateRecommendations(c echo.Context) error {
	var req recommendationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "malformed request body"})
	}

	results, err := s.Ranker.Recommend(c.Request().Context(), &recommend.Request{
		Name:        req.Name,
		Address:     req.Address,
		EmotionTags: req.EmotionTags,
		UserID:      req.UserID,
		Category:    req.Category,
		TopK:        req.TopK,
	})
	if err != nil {
		slog.Warn("recommendation failed", "id", c.Get("request_id"), "error", err)
		return errorResponse(c, err)
	}

	payload := make([]recommendationPayload, 0, len(results))
	for _, rec := range results {
		payload = append(payload, recommendationPayload{
			Place:   toPlacePayload(rec.Place),
			Score:   rec.Score,
			Summary: rec.Summary,
			Source:  rec.Source,
		})
	}
	return c.JSON(http.StatusCreated, map[string]any{"recommendations": payload})
}

func (s *APIV1Service) GetPlace(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid place id"})
	}

	place, err := s.Store.GetPlace(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	if place == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "place not found"})
	}
	return c.JSON(http.StatusOK, toPlacePayload(place))
}

// GetSimilarPlaces recommends places similar to an existing one.
func (s *APIV1Service) GetSimilarPlaces(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid place id"})
	}

	var userID *int32
	if raw := c.QueryParam("user_id"); raw != "" {
		uid, err := parseID(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid user id"})
		}
		userID = &uid
	}
	topK, _ := strconv.Atoi(c.QueryParam("top_k"))

	results, err := s.Ranker.SimilarPlaces(c.Request().Context(), id, userID, topK)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"places": scoredPayload(results)})
}

// GetTrending lists the most saved places.
func (s *APIV1Service) GetTrending(c echo.Context) error {
	topK, _ := strconv.Atoi(c.QueryParam("top_k"))

	results, err := s.Ranker.Trending(c.Request().Context(), topK)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"places": scoredPayload(results)})
}

// GetFeed returns the personalized feed for a user, falling back to
// trending when the user has no history.
func (s *APIV1Service) GetFeed(c echo.Context) error {
	userID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid user id"})
	}
	topK, _ := strconv.Atoi(c.QueryParam("top_k"))

	results, err := s.Ranker.PersonalizedFeed(c.Request().Context(), userID, topK)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"places": scoredPayload(results)})
}

type savedPlaceRequest struct {
	UserID     int32 `json:"user_id"`
	PlaceID    int32 `json:"place_id"`
	RecChannel int32 `json:"rec_channel"`
}

// CreateSavedPlace records that a user saved a place; the summary snapshot
// is captured server-side.
func (s *APIV1Service) CreateSavedPlace(c echo.Context) error {
	var req savedPlaceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "malformed request body"})
	}
	if req.UserID == 0 || req.PlaceID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "user_id and place_id are required"})
	}

	ctx := c.Request().Context()
	place, err := s.Store.GetPlace(ctx, req.PlaceID)
	if err != nil {
		return errorResponse(c, err)
	}
	if place == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "place not found"})
	}

	channel := req.RecChannel
	if channel == 0 {
		channel = store.RecChannelHybrid
	}
	saved, err := s.Store.CreateSavedPlace(ctx, &store.SavedPlace{
		UserID:     req.UserID,
		PlaceID:    req.PlaceID,
		RecChannel: channel,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"id":               saved.ID,
		"user_id":          saved.UserID,
		"place_id":         saved.PlaceID,
		"rec_channel":      saved.RecChannel,
		"summary_snapshot": saved.SummarySnapshot,
	})
}

func scoredPayload(results []recommend.ScoredPlace) []recommendationPayload {
	payload := make([]recommendationPayload, 0, len(results))
	for _, item := range results {
		payload = append(payload, recommendationPayload{
			Place: toPlacePayload(item.Place),
			Score: item.Score,
		})
	}
	return payload
}

func parseID(raw string) (int32, error) {
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(id), nil
}
