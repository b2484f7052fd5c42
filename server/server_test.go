package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientflow-sim/patientflow/server"
	"github.com/patientflow-sim/patientflow/sim"
	"github.com/patientflow-sim/patientflow/store"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

// tinyProfiles is one small hospital that runs in milliseconds.
const tinyProfiles = `
hospitals:
  - name: Tiny
    scenario:
      run_length_minutes: 720
      arrivals:
        mean_interarrival_minutes: 30
      capacities:
        triage_nurses: 1
        ed_beds: 6
        cdu_beds: 4
        physicians: 1
        scanners: 1
        radiologists: 2
        porters: 1
        inpatient_beds: 20
        discharge_staff: 2
    enhanced:
      cdu_routing: true
      ai_imaging: true
`

func newServer(t *testing.T) (*httptest.Server, store.Repository) {
	t.Helper()
	profiles, err := sim.ParseProfiles([]byte(tinyProfiles))
	require.NoError(t, err)
	repo := store.NewMemoryRepository()
	ts := httptest.NewServer(server.NewRouter(server.Options{Repo: repo, Profiles: profiles, Parallelism: 2}))
	t.Cleanup(ts.Close)
	return ts, repo
}

func doReq(t *testing.T, method, url string, body any) (int, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			rdr = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	ts, _ := newServer(t)
	st, body := doReq(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, st)
	assert.Equal(t, "ok", string(body))
}

func TestListHospitals(t *testing.T) {
	ts, _ := newServer(t)
	st, body := doReq(t, http.MethodGet, ts.URL+"/hospitals", nil)
	require.Equal(t, http.StatusOK, st)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Tiny", got[0]["name"])
	assert.Equal(t, 0.5, got[0]["run_days"])
}

func TestComparisons_CreateGetList(t *testing.T) {
	ts, repo := newServer(t)

	// GIVEN a comparison request
	st, body := doReq(t, http.MethodPost, ts.URL+"/comparisons", map[string]any{
		"replications": 2, "seed": 5, "hospitals": []string{"Tiny"},
	})

	// THEN it ran, was stored and is returned with its ID
	require.Equal(t, http.StatusCreated, st, string(body))
	var created store.Record
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)
	require.NotNil(t, created.Comparison)
	require.Len(t, created.Comparison.Hospitals, 1)
	h := created.Comparison.Hospitals[0]
	assert.Equal(t, "Tiny", h.Hospital)
	assert.Equal(t, 2, h.Baseline.Runs)
	assert.Equal(t, 2, h.Enhanced.Runs)
	assert.Len(t, h.Deltas, len(sim.MetricDefs))

	stored, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Request.Seed)

	// WHEN fetched by ID
	st, body = doReq(t, http.MethodGet, ts.URL+"/comparisons/"+created.ID, nil)
	require.Equal(t, http.StatusOK, st)
	var fetched store.Record
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	// WHEN listed
	st, body = doReq(t, http.MethodGet, ts.URL+"/comparisons?limit=5", nil)
	require.Equal(t, http.StatusOK, st)
	var list []store.Record
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestComparisons_Errors(t *testing.T) {
	ts, _ := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown id", http.MethodGet, "/comparisons/does-not-exist", nil, http.StatusNotFound},
		{"malformed body", http.MethodPost, "/comparisons", "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/comparisons", `{"dayz": 3}`, http.StatusBadRequest},
		{"negative days", http.MethodPost, "/comparisons", map[string]any{"days": -1}, http.StatusBadRequest},
		{"too many replications", http.MethodPost, "/comparisons", map[string]any{"replications": 1000}, http.StatusBadRequest},
		{"unknown hospital", http.MethodPost, "/comparisons", map[string]any{"hospitals": []string{"Nowhere"}}, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/comparisons?limit=x", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, body := doReq(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.want, st, string(body))
			var msg map[string]string
			require.NoError(t, json.Unmarshal(body, &msg))
			assert.NotEmpty(t, msg["error"])
		})
	}
}

func TestComparisons_EmptyList(t *testing.T) {
	ts, _ := newServer(t)
	st, body := doReq(t, http.MethodGet, ts.URL+"/comparisons", nil)
	require.Equal(t, http.StatusOK, st)
	assert.JSONEq(t, "[]", string(body))
}
