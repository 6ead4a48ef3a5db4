package wandb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	path string
	auth string
	body map[string]any
}

func newFakeBackend(t *testing.T) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest

	mux := http.NewServeMux()
	record := func(r *http.Request) recordedRequest {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		return recordedRequest{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: body}
	}
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, record(r))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"upsertBucket":{"bucket":{
			"id":"UnVuOnYxOmFiYzEyMw==","name":"abc123","displayName":"d8-w384-h3-seed10",
			"project":{"name":"speedy-lang","entity":{"name":"speedy-team"}}}}}}`)
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, record(r))
		io.WriteString(w, `{"exitcode":null}`)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, &requests
}

func TestNewClient(t *testing.T) {
	t.Run("requires an api key", func(t *testing.T) {
		_, err := NewClient(Config{})
		assert.ErrorContains(t, err, "api key")
	})

	t.Run("accepts a key", func(t *testing.T) {
		c, err := NewClient(Config{APIKey: "secret"})
		require.NoError(t, err)
		defer c.Close()
	})
}

func TestCreateRun(t *testing.T) {
	ts, requests := newFakeBackend(t)
	c, err := NewClient(Config{BaseURL: ts.URL, APIKey: "secret", Entity: "speedy-team"})
	require.NoError(t, err)
	defer c.Close()

	run, err := c.CreateRun(context.Background(), "speedy-lang", "d8-w384-h3-seed10", map[string]any{
		"depth": 8,
		"width": 384,
	})
	require.NoError(t, err)
	assert.Equal(t, "abc123", run.Name)
	assert.Equal(t, "speedy-team", run.Entity)
	assert.Equal(t, "speedy-lang", run.Project)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "/graphql", req.path)

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("api:secret"))
	assert.Equal(t, wantAuth, req.auth)

	vars, ok := req.body["variables"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "speedy-lang", vars["project"])

	// Config values travel wrapped in the {"value": ...} envelope.
	var config map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(vars["config"].(string)), &config))
	assert.EqualValues(t, 8, config["depth"]["value"])
}

func TestFileStream(t *testing.T) {
	ts, requests := newFakeBackend(t)
	c, err := NewClient(Config{BaseURL: ts.URL, APIKey: "secret"})
	require.NoError(t, err)
	defer c.Close()

	run := &Run{Name: "abc123", Entity: "speedy-team", Project: "speedy-lang"}

	t.Run("history lines advance the offset", func(t *testing.T) {
		err := c.LogHistory(context.Background(), run, []map[string]any{
			{"_step": 0, "val_loss": 3.5},
			{"_step": 1, "val_loss": 3.0},
		})
		require.NoError(t, err)
		err = c.LogHistory(context.Background(), run, []map[string]any{
			{"_step": 2, "val_loss": 2.8},
		})
		require.NoError(t, err)

		require.Len(t, *requests, 2)
		first := (*requests)[0]
		assert.Equal(t, "/files/speedy-team/speedy-lang/abc123/file_stream", first.path)

		files := first.body["files"].(map[string]any)
		chunk := files["wandb-history.jsonl"].(map[string]any)
		assert.EqualValues(t, 0, chunk["offset"])
		assert.Len(t, chunk["content"], 2)

		second := (*requests)[1]
		files = second.body["files"].(map[string]any)
		chunk = files["wandb-history.jsonl"].(map[string]any)
		assert.EqualValues(t, 2, chunk["offset"])
	})

	t.Run("summary and finish", func(t *testing.T) {
		require.NoError(t, c.UpdateSummary(context.Background(), run, map[string]any{"val_loss": 3.0}))
		require.NoError(t, c.Finish(context.Background(), run, 0))

		n := len(*requests)
		require.GreaterOrEqual(t, n, 2)
		finish := (*requests)[n-1]
		assert.Equal(t, true, finish.body["complete"])
		assert.EqualValues(t, 0, finish.body["exitcode"])

		summary := (*requests)[n-2]
		files := summary.body["files"].(map[string]any)
		_, ok := files["wandb-summary.json"]
		assert.True(t, ok)
	})
}
