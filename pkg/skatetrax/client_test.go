package skatetrax

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRinks = `[
	{"rink_id": "0b1e9d2c-0000-4000-8000-000000000001",
	 "rink_name": "Steriti Memorial Rink",
	 "rink_address": "561 Commercial St",
	 "rink_city": "Boston",
	 "rink_state": "MA"},
	{"rink_id": "0b1e9d2c-0000-4000-8000-000000000002",
	 "rink_name": "Placeholder Rink",
	 "rink_address": "",
	 "rink_city": "-",
	 "rink_state": "-"},
	{"rink_id": "0b1e9d2c-0000-4000-8000-000000000003",
	 "rink_name": "Matthews Arena",
	 "rink_address": "238 St Botolph St",
	 "rink_city": "Boston",
	 "rink_state": "MA"}
]`

func TestFetchRinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sampleRinks)
	}))
	defer srv.Close()

	c := NewClient(WithAPIURL(srv.URL))

	rinks, err := c.FetchRinks(context.Background())
	require.NoError(t, err)
	require.Len(t, rinks, 2, "placeholder-city row should be dropped")

	assert.Equal(t, "0b1e9d2c-0000-4000-8000-000000000001", rinks[0].ID)
	assert.Equal(t, "Steriti Memorial Rink", rinks[0].Name)
	assert.Equal(t, "561 Commercial St", rinks[0].Address)
	assert.Equal(t, "Boston", rinks[0].City)
	assert.Equal(t, "MA", rinks[0].State)
	assert.Equal(t, "Matthews Arena", rinks[1].Name)
}

func TestFetchRinks_ServerErrorDegradesToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(WithAPIURL(srv.URL))

	rinks, err := c.FetchRinks(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, rinks)
}

func TestFetchRinks_UnreachableDegradesToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(WithAPIURL(srv.URL))

	rinks, err := c.FetchRinks(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, rinks)
}

func TestFetchRinks_BadJSONDegradesToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	c := NewClient(WithAPIURL(srv.URL))

	rinks, err := c.FetchRinks(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, rinks)
}

func TestFetchRinks_NoURLConfigured(t *testing.T) {
	c := NewClient(WithAPIURL(""))

	rinks, err := c.FetchRinks(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, rinks)
}
