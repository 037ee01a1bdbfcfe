package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	srv := httptest.NewServer(NewServer(st).Routes())
	t.Cleanup(srv.Close)
	return srv, st
}

func seedAthlete(t *testing.T, st store.Store) int64 {
	t.Helper()
	ctx := context.Background()
	a, err := st.CreateAthlete(ctx, model.UnifiedAthlete{
		PrimaryName:   "Maciek Warchol",
		Nationality:   "POL",
		YearOfBirth:   1994,
		PWASailNumber: "POL-111",
		MatchStage:    model.StageExact,
		MatchScore:    100,
	})
	require.NoError(t, err)
	require.NoError(t, st.InsertLink(ctx, model.SourceIdentityLink{
		AthleteID: a.ID, Source: model.SourcePWA, SourceID: "791",
	}))
	require.NoError(t, st.InsertLink(ctx, model.SourceIdentityLink{
		AthleteID: a.ID, Source: model.SourceLiveHeats, SourceID: "lh-1",
	}))
	return a.ID
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]string
	code := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestGetAthlete(t *testing.T) {
	srv, st := newTestServer(t)
	id := seedAthlete(t, st)

	var athlete model.UnifiedAthlete
	code := getJSON(t, fmt.Sprintf("%s/api/athletes/%d", srv.URL, id), &athlete)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Maciek Warchol", athlete.PrimaryName)
	assert.Equal(t, "POL-111", athlete.PWASailNumber)
}

func TestGetAthlete_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/athletes/999", nil))
}

func TestGetAthlete_BadID(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/athletes/abc", nil))
}

func TestListAthletes_NameFilter(t *testing.T) {
	srv, st := newTestServer(t)
	seedAthlete(t, st)
	_, err := st.CreateAthlete(context.Background(), model.UnifiedAthlete{PrimaryName: "Camille Pare"})
	require.NoError(t, err)

	var athletes []model.UnifiedAthlete
	code := getJSON(t, srv.URL+"/api/athletes?name=warchol", &athletes)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, athletes, 1)
	assert.Equal(t, "Maciek Warchol", athletes[0].PrimaryName)
}

func TestListAthletes_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/athletes")
	require.NoError(t, err)
	defer resp.Body.Close()
	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, "[]", string(raw))
}

func TestResolve(t *testing.T) {
	srv, st := newTestServer(t)
	id := seedAthlete(t, st)

	var athlete model.UnifiedAthlete
	code := getJSON(t, srv.URL+"/api/resolve?source=PWA&source_id=791", &athlete)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, athlete.ID)
}

func TestResolve_MissingParams(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/resolve?source=PWA", nil))
}

func TestResolve_UnknownSourceID(t *testing.T) {
	srv, st := newTestServer(t)
	seedAthlete(t, st)
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/resolve?source=PWA&source_id=000", nil))
}

func TestAthleteResults(t *testing.T) {
	srv, st := newTestServer(t)
	id := seedAthlete(t, st)

	require.NoError(t, st.ReplaceResults(context.Background(), []model.ResultRow{
		{Source: model.SourcePWA, EventID: "ev-1", Division: "Wave Men", Placement: 1, SourceAthleteID: "791"},
		{Source: model.SourcePWA, EventID: "ev-1", Division: "Wave Men", Placement: 2, SourceAthleteID: "55"},
	}))

	var results []model.ResultRow
	code := getJSON(t, fmt.Sprintf("%s/api/athletes/%d/results", srv.URL, id), &results)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Placement)
}

func TestAthleteResults_UnknownAthlete(t *testing.T) {
	srv, _ := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/athletes/999/results", nil))
}

func TestEventResults_DivisionFilter(t *testing.T) {
	srv, st := newTestServer(t)
	require.NoError(t, st.ReplaceResults(context.Background(), []model.ResultRow{
		{Source: model.SourcePWA, EventID: "ev-1", Division: "Wave Men", Placement: 1, SourceAthleteID: "791"},
		{Source: model.SourceLiveHeats, EventID: "ev-1", Division: "Wave Women", Placement: 1, SourceAthleteID: "lh-2"},
		{Source: model.SourcePWA, EventID: "ev-2", Division: "Wave Men", Placement: 1, SourceAthleteID: "791"},
	}))

	var results []model.ResultRow
	code := getJSON(t, srv.URL+"/api/events/ev-1/results?division=Wave+Men", &results)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, results, 1)
	assert.Equal(t, "791", results[0].SourceAthleteID)
}
