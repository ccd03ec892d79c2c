package v1

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodplace/moodplace/recommend"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "validation maps to 400",
			err:  &recommend.ValidationError{Field: "address", Msg: "must not be empty"},
			want: http.StatusBadRequest,
		},
		{
			name: "not found maps to 404",
			err:  &recommend.NotFoundError{Resource: "place", ID: 7},
			want: http.StatusNotFound,
		},
		{
			name: "provider failure maps to 502",
			err:  recommend.NewProviderError("places", errors.New("down")),
			want: http.StatusBadGateway,
		},
		{
			name: "wrapped provider failure maps to 502",
			err:  errors.Wrap(recommend.NewProviderError("embedding", errors.New("down")), "ranking"),
			want: http.StatusBadGateway,
		},
		{
			name: "unknown maps to 500",
			err:  errors.New("boom"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int32(42), id)

	_, err = parseID("not-a-number")
	assert.Error(t, err)

	_, err = parseID("")
	assert.Error(t, err)
}
