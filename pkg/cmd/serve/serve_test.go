package serve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
)

type stubReportStore struct {
	assignments  []entity.HostAssignment
	environments []entity.Environment
	observations map[entity.EnvironmentID][]entity.Observation
	err          error
}

func (s *stubReportStore) ListHostAssignments(ctx context.Context) ([]entity.HostAssignment, error) {
	return s.assignments, s.err
}

func (s *stubReportStore) ListEnvironments(ctx context.Context, activeOnly bool) ([]entity.Environment, error) {
	if !activeOnly {
		return s.environments, s.err
	}
	out := []entity.Environment{}
	for _, e := range s.environments {
		if e.Status == entity.Active {
			out = append(out, e)
		}
	}
	return out, s.err
}

func (s *stubReportStore) ListObservations(ctx context.Context, env entity.EnvironmentID) ([]entity.Observation, error) {
	obs, ok := s.observations[env]
	if !ok {
		obs = []entity.Observation{}
	}
	return obs, s.err
}

var at = time.Unix(1700000000, 0).UTC()

func fixture() *stubReportStore {
	return &stubReportStore{
		assignments: []entity.HostAssignment{
			{EnvironmentID: "p1:master", HostID: 0, UpdatedAt: at},
			{EnvironmentID: "p2:master", HostID: 0, UpdatedAt: at},
			{EnvironmentID: "p3:master", HostID: 1, UpdatedAt: at},
		},
		environments: []entity.Environment{
			{ProjectID: "p1", EnvironmentID: "master", Status: entity.Active, UpdatedAt: at},
			{ProjectID: "p2", EnvironmentID: "master", Status: entity.Active, UpdatedAt: at},
			{ProjectID: "p3", EnvironmentID: "master", Status: entity.Active, UpdatedAt: at},
			{ProjectID: "p4", EnvironmentID: "old", Status: entity.Inactive, UpdatedAt: at},
		},
		observations: map[entity.EnvironmentID][]entity.Observation{
			"p1:master": {{
				CheckID:       "c1",
				EnvironmentID: "p1:master",
				Signature:     entity.HostSignature{BootTime: time.Unix(100, 0).UTC(), CPUs: 8, IP: "10.0.0.1"},
				CheckedAt:     at,
			}},
		},
	}
}

func get(t *testing.T, store ReportStore, path string) (int, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	NewRouter(store).ServeHTTP(rec, req)
	body := rec.Body.String()
	require.True(t, gjson.Valid(body), body)
	return rec.Code, body
}

func TestListHosts(t *testing.T) {
	code, body := get(t, fixture(), "/api/hosts")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(2), gjson.Get(body, "hosts.#").Int())
	assert.Equal(t, `["p1:master","p2:master"]`, gjson.Get(body, "hosts.0.environments").Raw)
	assert.Equal(t, int64(1), gjson.Get(body, "hosts.1.id").Int())
}

func TestGetHost(t *testing.T) {
	code, body := get(t, fixture(), "/api/hosts/1")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "p3:master", gjson.Get(body, "environments.0").String())

	code, _ = get(t, fixture(), "/api/hosts/7")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get(t, fixture(), "/api/hosts/abc")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListEnvironments(t *testing.T) {
	code, body := get(t, fixture(), "/api/environments")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(4), gjson.Get(body, "environments.#").Int())
	assert.Equal(t, "p1:master", gjson.Get(body, "environments.0.id").String())
	assert.Equal(t, int64(0), gjson.Get(body, "environments.0.hostId").Int())
	assert.Equal(t, gjson.Null, gjson.Get(body, "environments.3.hostId").Type)

	_, body = get(t, fixture(), "/api/environments?active=true")
	assert.Equal(t, int64(3), gjson.Get(body, "environments.#").Int())
}

func TestGetCotenants(t *testing.T) {
	code, body := get(t, fixture(), "/api/environments/p2:master/cotenants")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "p2:master", gjson.Get(body, "environment").String())
	assert.Equal(t, int64(0), gjson.Get(body, "hostId").Int())
	assert.Equal(t, `["p1:master"]`, gjson.Get(body, "cotenants").Raw)

	code, _ = get(t, fixture(), "/api/environments/p4:old/cotenants")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get(t, fixture(), "/api/environments/nocolon/cotenants")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListSignatures(t *testing.T) {
	code, body := get(t, fixture(), "/api/environments/p1:master/signatures")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "10.0.0.1", gjson.Get(body, "observations.0.signature.ip").String())
	assert.Equal(t, int64(8), gjson.Get(body, "observations.0.signature.cpus").Int())

	_, body = get(t, fixture(), "/api/environments/p3:master/signatures")
	assert.Equal(t, int64(0), gjson.Get(body, "observations.#").Int())
}

func TestStoreFailure(t *testing.T) {
	code, body := get(t, &stubReportStore{err: errors.New("disk full")}, "/api/hosts")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.NotContains(t, body, "disk full")
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
