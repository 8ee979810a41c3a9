package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyulibraries/ultraviolet-cli/internal/api"
	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
)

// newTestClient points a zero-pacing client at the test server's /records API.
func newTestClient(srv *httptest.Server) *api.Client {
	return api.NewClient(srv.URL+"/records", "test-token", 0, false)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, newTestClient(srv).Ping(context.Background()))
}

func TestPingUnreachableIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	err := newTestClient(srv).Ping(context.Background())
	require.Error(t, err)
	assert.True(t, uverrors.IsKind(err, uverrors.KindConnectivity))
	assert.Contains(t, err.Error(), "Is the application running?")
}

func TestPingServerErrorIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newTestClient(srv).Ping(context.Background())
	require.Error(t, err)
	assert.True(t, uverrors.IsKind(err, uverrors.KindConnectivity))
}

func TestCreateDraft(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/records", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var metadata map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&metadata))
		assert.Equal(t, "A Romans story", metadata["title"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "abc12-xyz34",
			"links": map[string]string{
				"self":    srv.URL + "/records/abc12-xyz34/draft",
				"publish": srv.URL + "/records/abc12-xyz34/draft/actions/publish",
			},
		})
	}))
	defer srv.Close()

	draft, err := newTestClient(srv).CreateDraft(context.Background(), json.RawMessage(`{"title": "A Romans story"}`))
	require.NoError(t, err)
	assert.Equal(t, "abc12-xyz34", draft.ID)
	assert.Contains(t, draft.Links.Publish, "/actions/publish")
}

func TestCreateDraftValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "Metadata validation failed."})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreateDraft(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, uverrors.IsKind(err, uverrors.KindValidation))
	assert.Contains(t, err.Error(), "Metadata validation failed.")
}

func TestDeleteDraftNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/records/gone1-abc23/draft", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestClient(srv).DeleteDraft(context.Background(), "gone1-abc23")
	require.Error(t, err)
	assert.True(t, uverrors.IsKind(err, uverrors.KindNotFound))
}

func TestCreateCommunityConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/communities", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).CreateCommunity(context.Background(), json.RawMessage(`{"slug": "dup"}`))
	require.Error(t, err)
	assert.True(t, uverrors.IsKind(err, uverrors.KindConflict))
}

func TestResolveUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "email:owner@nyu.edu", r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{
				"hits":  []map[string]string{{"id": "3", "email": "owner@nyu.edu"}},
				"total": 1,
			},
		})
	}))
	defer srv.Close()

	identity, err := newTestClient(srv).ResolveUser(context.Background(), "owner@nyu.edu")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{ID: "3", Email: "owner@nyu.edu"}, identity)
}

func TestResolveUserEmptyHitsIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"hits": map[string]interface{}{"hits": []interface{}{}, "total": 0},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ResolveUser(context.Background(), "ghost@nyu.edu")
	require.Error(t, err)
	assert.True(t, uverrors.IsKind(err, uverrors.KindNotFound))
}

func TestListDraftFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/records/abc12-xyz34/draft/files", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"entries": []map[string]string{{"key": "photo.tif"}, {"key": "notes.txt"}},
		})
	}))
	defer srv.Close()

	names, err := newTestClient(srv).ListDraftFiles(context.Background(), "abc12-xyz34")
	require.NoError(t, err)
	assert.Equal(t, []string{"photo.tif", "notes.txt"}, names)
}

func TestRegisterDraftFile(t *testing.T) {
	var body []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/records/abc12-xyz34/draft/files", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv).RegisterDraftFile(context.Background(), "abc12-xyz34", "photo.tif"))
	assert.Equal(t, []map[string]string{{"key": "photo.tif"}}, body)
}

func TestVocabularyRoutes(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := newTestClient(srv)
	ctx := context.Background()

	require.NoError(t, client.CreateVocabularyEntry(ctx, "lng", json.RawMessage(`{"id": "dan"}`)))
	require.NoError(t, client.CreateVocabularyRecord(ctx, "subjects", json.RawMessage(`{"id": "x"}`)))
	require.NoError(t, client.RefreshVocabularyIndex(ctx, "lng"))

	assert.Equal(t, []string{
		"/vocabularies/lng",
		"/subjects",
		"/vocabularies/lng/_refresh",
	}, paths)
}

func TestStatusMessageFallsBackToBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("stack trace here"))
	}))
	defer srv.Close()

	err := newTestClient(srv).DeleteDraft(context.Background(), "abc12-xyz34")
	require.Error(t, err)
	assert.True(t, uverrors.IsKind(err, uverrors.KindGeneric))
	assert.Contains(t, err.Error(), "stack trace here")
}
