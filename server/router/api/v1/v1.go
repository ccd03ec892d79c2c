package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/moodplace/moodplace/internal/profile"
	"github.com/moodplace/moodplace/recommend"
	"github.com/moodplace/moodplace/store"
)

// APIV1Service wires the ranking core and the store into HTTP handlers.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store
	Ranker  *recommend.Ranker
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, ranker *recommend.Ranker) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Store:   store,
		Ranker:  ranker,
	}
}

func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/recommendations", s.CreateRecommendations)
	g.GET("/recommendations/trending", s.GetTrending)
	g.GET("/places/:id", s.GetPlace)
	g.GET("/places/:id/similar", s.GetSimilarPlaces)
	g.POST("/saved-places", s.CreateSavedPlace)
	g.GET("/users/:id/feed", s.GetFeed)
}

// errorStatus maps the domain error taxonomy to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case recommend.IsValidation(err):
		return http.StatusBadRequest
	case recommend.IsNotFound(err):
		return http.StatusNotFound
	case recommend.IsProviderError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c echo.Context, err error) error {
	return c.JSON(errorStatus(err), map[string]string{"message": err.Error()})
}
