package places

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/moodplace/moodplace/recommend"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// timeout is the timeout for one provider request.
var timeout = 10 * time.Second

// Client talks to the Google Places web service. It implements both
// recommend.PlaceSearcher and recommend.DetailFetcher.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a places client. An empty API key is allowed; every
// call will then fail, which the ranking core treats as a provider outage.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID string `json:"place_id"`
		Name    string `json:"name"`
		Address string `json:"formatted_address"`
		Photos  []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
	} `json:"results"`
}

type detailsResponse struct {
	Status string `json:"status"`
	Result struct {
		Name    string   `json:"name"`
		Address string   `json:"formatted_address"`
		Rating  float64  `json:"rating"`
		Types   []string `json:"types"`
		Reviews []struct {
			Text string `json:"text"`
		} `json:"reviews"`
		Photos []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
	} `json:"result"`
}

// Search runs a text search combining the address, the emotion tags and the
// first allowed type. The provider handles relevance; we only shape the
// query.
func (c *Client) Search(ctx context.Context, address string, emotions, allowedTypes []string) ([]recommend.CandidateStub, error) {
	query := address
	if len(emotions) > 0 {
		query += " " + strings.Join(emotions, " ")
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("key", c.apiKey)
	params.Set("language", "ko")
	if len(allowedTypes) > 0 {
		params.Set("type", allowedTypes[0])
	}

	var payload searchResponse
	if err := c.get(ctx, "/textsearch/json", params, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" && payload.Status != "ZERO_RESULTS" {
		return nil, errors.Errorf("place search failed with status %s", payload.Status)
	}

	stubs := make([]recommend.CandidateStub, 0, len(payload.Results))
	for _, result := range payload.Results {
		stub := recommend.CandidateStub{
			ID:      result.PlaceID,
			Name:    result.Name,
			Address: result.Address,
		}
		if len(result.Photos) > 0 {
			stub.PhotoRef = result.Photos[0].PhotoReference
		}
		stubs = append(stubs, stub)
	}
	return stubs, nil
}

// Fetch loads the detail record for one place.
func (c *Client) Fetch(ctx context.Context, id, name string) (*recommend.PlaceDetails, error) {
	params := url.Values{}
	params.Set("place_id", id)
	params.Set("key", c.apiKey)
	params.Set("language", "ko")
	params.Set("fields", "name,formatted_address,rating,types,reviews,photos")

	var payload detailsResponse
	if err := c.get(ctx, "/details/json", params, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" {
		return nil, errors.Errorf("place details failed for %q with status %s", name, payload.Status)
	}

	details := &recommend.PlaceDetails{
		Name:    payload.Result.Name,
		Address: payload.Result.Address,
		Rating:  payload.Result.Rating,
		Types:   payload.Result.Types,
	}
	for _, review := range payload.Result.Reviews {
		details.Reviews = append(details.Reviews, review.Text)
	}
	for _, photo := range payload.Result.Photos {
		details.Photos = append(details.Photos, photo.PhotoReference)
	}
	return details, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to construct places request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to call places API")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read places response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("places API returned status code %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to unmarshal places response")
	}
	return nil
}
