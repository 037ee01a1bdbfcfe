package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/fetcher"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

func newLiveHeatsTestClient(srv *httptest.Server) *LiveHeatsClient {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})
	c := NewLiveHeatsClient(f, srv.URL+"/api/graphql")
	c.retry.MaxAttempts = 1
	return c
}

func TestDivisionAthletes_DeduplicatesAcrossHeats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "77", req.Variables["id"])
		assert.Contains(t, req.Query, "eventDivision")

		fmt.Fprint(w, `{"data":{"eventDivision":{"heats":[
			{"competitors":[
				{"athlete":{"id":"lh-1","name":"Maciek Warchol","dob":"1994-05-02","nationality":"PL"}},
				{"athlete":{"id":"lh-2","name":"Camille Pare","dob":"","nationality":"FR"}}
			]},
			{"competitors":[
				{"athlete":{"id":"lh-1","name":"Maciek Warchol","dob":"1994-05-02","nationality":"PL"}}
			]}
		]}}}`)
	}))
	defer srv.Close()

	c := newLiveHeatsTestClient(srv)
	records, err := c.DivisionAthletes(context.Background(), "77")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, model.SourceLiveHeats, records[0].Source)
	assert.Equal(t, "lh-1", records[0].SourceID)
	assert.Equal(t, 1994, records[0].YearOfBirth)
	assert.Equal(t, "PL", records[0].Nationality)

	assert.Equal(t, "lh-2", records[1].SourceID)
	assert.Zero(t, records[1].YearOfBirth)
}

func TestDivisionAthletes_GraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"division not visible"}]}`)
	}))
	defer srv.Close()

	c := newLiveHeatsTestClient(srv)
	_, err := c.DivisionAthletes(context.Background(), "77")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division not visible")
}

func TestDivisionAthletes_MissingDivision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"eventDivision":null}}`)
	}))
	defer srv.Close()

	c := newLiveHeatsTestClient(srv)
	records, err := c.DivisionAthletes(context.Background(), "77")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDivisionRankings_FurthestRoundWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"eventDivision":{
			"division":{"id":"9","name":"Wave Men"},
			"heats":[
				{"round":"Semifinal","roundPosition":1,"result":[
					{"athleteId":"lh-3","place":3},
					{"athleteId":"lh-4","place":4}
				]},
				{"round":"Final","roundPosition":2,"result":[
					{"athleteId":"lh-1","place":1},
					{"athleteId":"lh-2","place":2},
					{"athleteId":"lh-3","place":3}
				]}
			]
		}}}`)
	}))
	defer srv.Close()

	c := newLiveHeatsTestClient(srv)
	rows, err := c.DivisionRankings(context.Background(), "ev-5", "77")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Finalists rank by final placement, semifinalists follow.
	assert.Equal(t, "lh-1", rows[0].SourceAthleteID)
	assert.Equal(t, 1, rows[0].Placement)
	assert.Equal(t, "lh-2", rows[1].SourceAthleteID)
	assert.Equal(t, 2, rows[1].Placement)
	assert.Equal(t, "lh-3", rows[2].SourceAthleteID)
	assert.Equal(t, 3, rows[2].Placement)
	assert.Equal(t, "lh-4", rows[3].SourceAthleteID)
	assert.Equal(t, 4, rows[3].Placement)

	for _, row := range rows {
		assert.Equal(t, model.SourceLiveHeats, row.Source)
		assert.Equal(t, "ev-5", row.EventID)
		assert.Equal(t, "Wave Men", row.Division)
	}
}

func TestDivisionRankings_TiesShareRank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"eventDivision":{
			"division":{"id":"9","name":"Wave Women"},
			"heats":[
				{"round":"Semifinal 1","roundPosition":1,"result":[
					{"athleteId":"lh-a","place":3}
				]},
				{"round":"Semifinal 2","roundPosition":1,"result":[
					{"athleteId":"lh-b","place":3}
				]},
				{"round":"Final","roundPosition":2,"result":[
					{"athleteId":"lh-c","place":1},
					{"athleteId":"lh-d","place":null}
				]}
			]
		}}}`)
	}))
	defer srv.Close()

	c := newLiveHeatsTestClient(srv)
	rows, err := c.DivisionRankings(context.Background(), "ev-5", "77")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "lh-c", rows[0].SourceAthleteID)
	assert.Equal(t, 1, rows[0].Placement)
	// A null place sorts to the back of its round but still beats earlier rounds.
	assert.Equal(t, "lh-d", rows[1].SourceAthleteID)
	assert.Equal(t, 2, rows[1].Placement)
	// Both semifinal losers carry (round 1, place 3) and share a rank.
	assert.Equal(t, "lh-a", rows[2].SourceAthleteID)
	assert.Equal(t, 3, rows[2].Placement)
	assert.Equal(t, "lh-b", rows[3].SourceAthleteID)
	assert.Equal(t, 3, rows[3].Placement)
}
