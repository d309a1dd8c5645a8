package entity_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datamesh-labs/catalogd/domain/services"
	"github.com/datamesh-labs/catalogd/domain/users"
	"github.com/datamesh-labs/catalogd/internal/config"
	"github.com/datamesh-labs/catalogd/internal/server"
	"github.com/datamesh-labs/catalogd/internal/testutil"
)

type api struct {
	c    *testutil.Catalog
	echo http.Handler
}

func newAPI(t *testing.T, suffix string) *api {
	c := testutil.NewCatalog(t, suffix)

	cfg := &config.Config{
		Catalog: config.CatalogConfig{DefaultPageSize: 10, MaxPageSize: 1000},
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	e := server.NewEcho(cfg, log)

	services.RegisterRoutes(e, c.Services, cfg)
	users.RegisterRoutes(e, c.Users, c.Teams, cfg)

	return &api{c: c, echo: e}
}

func (a *api) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func TestServiceAPILifecycle(t *testing.T) {
	a := newAPI(t, "api_lifecycle")

	rec := a.do(t, http.MethodPost, "/api/v1/services/database",
		`{"name": "warehouse", "serviceType": "postgres"}`,
		map[string]string{"X-Catalog-User": "alice"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "warehouse", created["name"])
	assert.Equal(t, "alice", created["updatedBy"])
	assert.Equal(t, 0.1, created["version"])
	id := created["id"].(string)

	rec = a.do(t, http.MethodGet, "/api/v1/services/database/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/services/database/name/warehouse", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Upsert of an existing FQN answers 200, a new one 201.
	rec = a.do(t, http.MethodPut, "/api/v1/services/database",
		`{"name": "warehouse", "serviceType": "postgres", "description": "main"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPut, "/api/v1/services/database",
		`{"name": "legacy", "serviceType": "mysql"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodDelete, "/api/v1/services/database/"+id+"?hardDelete=true", "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/services/database/"+id, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServiceAPIConditionalWrite(t *testing.T) {
	a := newAPI(t, "api_ifmatch")

	rec := a.do(t, http.MethodPost, "/api/v1/services/database",
		`{"name": "warehouse", "serviceType": "postgres"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Stale If-Match is refused.
	rec = a.do(t, http.MethodPut, "/api/v1/services/database",
		`{"name": "warehouse", "serviceType": "postgres", "description": "x"}`,
		map[string]string{"If-Match": "0.7"})
	require.Equal(t, http.StatusConflict, rec.Code)

	// Matching If-Match goes through.
	rec = a.do(t, http.MethodPut, "/api/v1/services/database",
		`{"name": "warehouse", "serviceType": "postgres", "description": "x"}`,
		map[string]string{"If-Match": "0.1"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServiceAPIValidation(t *testing.T) {
	a := newAPI(t, "api_validation")

	// Missing serviceType.
	rec := a.do(t, http.MethodPost, "/api/v1/services/database", `{"name": "warehouse"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Both cursors at once.
	rec = a.do(t, http.MethodGet, "/api/v1/services/database?after=YQ&before=Yg", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad include value.
	rec = a.do(t, http.MethodGet, "/api/v1/services/database?include=bogus", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad id.
	rec = a.do(t, http.MethodGet, "/api/v1/services/database/not-a-uuid", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFollowerAPI(t *testing.T) {
	a := newAPI(t, "api_followers")

	rec := a.do(t, http.MethodPost, "/api/v1/users", `{"name": "alice"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var alice map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alice))
	userID := alice["id"].(string)

	rec = a.do(t, http.MethodPost, "/api/v1/services/database",
		`{"name": "warehouse", "serviceType": "postgres"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var svc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &svc))
	svcID := svc["id"].(string)

	followURL := "/api/v1/services/database/" + svcID + "/followers/" + userID
	rec = a.do(t, http.MethodPut, followURL, "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Following again is idempotent and reports 200.
	rec = a.do(t, http.MethodPut, followURL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/services/database/"+svcID+"?fields=followers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got["followers"], 1)

	rec = a.do(t, http.MethodDelete, followURL, "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodDelete, followURL, "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVersionAPI(t *testing.T) {
	a := newAPI(t, "api_versions")

	rec := a.do(t, http.MethodPost, "/api/v1/services/database",
		`{"name": "warehouse", "serviceType": "postgres"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var svc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &svc))
	id := svc["id"].(string)

	rec = a.do(t, http.MethodPut, "/api/v1/services/database",
		`{"name": "warehouse", "serviceType": "postgres", "description": "main"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/services/database/"+id+"/versions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, "databaseService", history["entityType"])
	assert.Len(t, history["versions"], 2)

	rec = a.do(t, http.MethodGet, "/api/v1/services/database/"+id+"/versions/0.1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, 0.1, snapshot["version"])
	assert.Nil(t, snapshot["description"])

	rec = a.do(t, http.MethodGet, "/api/v1/services/database/"+id+"/versions/3.9", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
