package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fieldops-map-backend/config"
	"fieldops-map-backend/internal/db"
	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/model"
	"fieldops-map-backend/internal/normalize"
	"fieldops-map-backend/internal/snapshot"
	"fieldops-map-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// countingSource serves a fixed snapshot or error and counts fetches.
type countingSource struct {
	snap  model.RawSnapshot
	err   error
	calls atomic.Int32
}

func (s *countingSource) Fetch(context.Context) (model.RawSnapshot, error) {
	s.calls.Add(1)
	return s.snap, s.err
}

func testSnapshot() model.RawSnapshot {
	return model.RawSnapshot{
		WorkOrders: []model.RawRecord{
			{ID: "rec1", Fields: map[string]any{"WO_ID": "1001", "Step": "DONE", "Priority": "Urgent", "Technician Name": []any{"Ali Hamid"}, "Latitude": 48.85, "Longitude": 2.35}},
			{ID: "rec2", Fields: map[string]any{"WO_ID": "1002", "Step": "NEW", "Priority": "Low", "Latitude": "", "Longitude": 2.35}},
			{ID: "rec3", Fields: map[string]any{"WO_ID": "1003", "Step": "SCHEDULED", "Priority": "High", "Technician Name": []any{"Samba TA"}, "Latitude": 43.29, "Longitude": 5.37}},
		},
		Technicians: []model.RawRecord{
			{ID: "tec1", Fields: map[string]any{"Name": "Ali Hamid", "Email": "ali@example.com", "Latitude": 45.76, "Longitude": 4.83}},
			{ID: "tec2", Fields: map[string]any{"Name": "Nowhere"}},
		},
	}
}

type testEnv struct {
	router *gin.Engine
	source *countingSource
	db     *gorm.DB
	store  store.Store
}

func newTestEnv(t *testing.T, src *countingSource, pushKey string) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, gormDB.AutoMigrate(db.Models...))

	st := store.NewGormStore(gormDB)
	engine := &filter.Engine{Now: func() time.Time { return time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC) }, Location: time.UTC}
	router := NewRouter(config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60}, Deps{
		Store:      st,
		Live:       src,
		Snapshots:  snapshot.New(src, time.Minute),
		Normalizer: normalize.New(time.UTC, zerolog.Nop()),
		Filter:     engine,
		Dashboard:  config.DashboardConfig{TechnicianOptions: []string{"Zoe Roster"}},
		Webpush:    &webpush.Options{VAPIDPublicKey: pushKey},
	})
	return &testEnv{router: router, source: src, db: gormDB, store: st}
}

func (e *testEnv) do(method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestGetAirtable(t *testing.T) {
	env := newTestEnv(t, &countingSource{snap: testSnapshot()}, "")

	w := env.do(http.MethodGet, "/api/airtable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[model.RawSnapshot](t, w)
	assert.Len(t, got.WorkOrders, 3)
	assert.Len(t, got.Technicians, 2)

	env.do(http.MethodGet, "/api/airtable", nil)
	assert.Equal(t, int32(2), env.source.calls.Load(), "always live")
}

func TestGetAirtable_Failure(t *testing.T) {
	env := newTestEnv(t, &countingSource{err: errors.New("401 unauthorized")}, "")

	w := env.do(http.MethodGet, "/api/airtable", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch data from Airtable"}`, w.Body.String())
}

func TestGetLocations(t *testing.T) {
	env := newTestEnv(t, &countingSource{snap: testSnapshot()}, "")

	w := env.do(http.MethodGet, "/api/locations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[struct {
		WorkOrders []struct {
			ID       string   `json:"id"`
			Latitude *float64 `json:"latitude"`
		} `json:"workOrders"`
		Unmappable []struct {
			ID       string   `json:"id"`
			Latitude *float64 `json:"latitude"`
		} `json:"unmappable"`
		Counts LocationCounts `json:"counts"`
	}](t, w)
	assert.Equal(t, LocationCounts{Total: 3, Mappable: 2, Unmappable: 1, Technicians: 1}, got.Counts)
	require.Len(t, got.Unmappable, 1)
	assert.Equal(t, "rec2", got.Unmappable[0].ID)
	assert.Nil(t, got.Unmappable[0].Latitude, "NaN is encoded as null")
}

func TestGetFilters(t *testing.T) {
	env := newTestEnv(t, &countingSource{snap: testSnapshot()}, "")

	w := env.do(http.MethodGet, "/api/filters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[FiltersResponse](t, w)

	assert.Len(t, got.Steps, 6)
	assert.Len(t, got.Priorities, 8)
	for _, s := range got.Steps {
		assert.NotEmpty(t, s.Color)
	}
	var names []string
	for _, o := range got.Technicians {
		names = append(names, o.Value)
	}
	assert.Equal(t, []string{"Ali Hamid", "Samba TA", "Unassigned", "Zoe Roster"}, names)
	require.GreaterOrEqual(t, len(got.Days), 4)
	assert.Equal(t, "All", got.Days[0].Value)
	assert.Equal(t, "Today", got.Days[3].Label)
	assert.Equal(t, "2024-11-05", got.Days[3].Value)
}

func TestGetFilters_WithoutUpstream(t *testing.T) {
	env := newTestEnv(t, &countingSource{err: errors.New("down")}, "")

	w := env.do(http.MethodGet, "/api/filters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[FiltersResponse](t, w)
	require.Len(t, got.Technicians, 1)
	assert.Equal(t, "Zoe Roster", got.Technicians[0].Value)
}

func TestGetMap(t *testing.T) {
	env := newTestEnv(t, &countingSource{snap: testSnapshot()}, "")

	w := env.do(http.MethodGet, "/api/map?steps=SCHEDULED&showTechnicians=true&open=rec3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[struct {
		View struct {
			Summary string `json:"summary"`
		} `json:"view"`
		Scene struct {
			Markers []struct {
				Spec struct {
					Kind     string `json:"kind"`
					EntityID string `json:"entityId"`
				} `json:"spec"`
			} `json:"markers"`
			Info []struct {
				Content string `json:"content"`
			} `json:"info"`
		} `json:"scene"`
	}](t, w)

	assert.Equal(t, "Showing 1 of 2 work orders on map", got.View.Summary)
	require.Len(t, got.Scene.Markers, 2)
	require.Len(t, got.Scene.Info, 1)
	assert.Contains(t, got.Scene.Info[0].Content, "1003")
}

func TestGetMap_Errors(t *testing.T) {
	env := newTestEnv(t, &countingSource{snap: testSnapshot()}, "")

	w := env.do(http.MethodGet, "/api/map?autoFit=sometimes", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/map?steps=DONE&open=rec3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "filtered out markers cannot be opened")

	down := newTestEnv(t, &countingSource{err: errors.New("upstream down")}, "")
	w = down.do(http.MethodGet, "/api/map", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream down")
}

func TestGetTechnicianTrack(t *testing.T) {
	env := newTestEnv(t, &countingSource{}, "")
	ctx := context.Background()
	t0 := time.Date(2024, 11, 5, 8, 0, 0, 0, time.UTC)

	_, err := env.store.SyncTechnicians(ctx, t0, []model.TechnicianLocation{{ID: "tec1", Name: "Ali", Latitude: 1, Longitude: 1}})
	require.NoError(t, err)
	_, err = env.store.SyncTechnicians(ctx, t0.Add(time.Hour), []model.TechnicianLocation{{ID: "tec1", Name: "Ali", Latitude: 2, Longitude: 2}})
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/api/technicians/tec1/track?since=2024-11-05T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		TechnicianID string                  `json:"technicianId"`
		Track        []model.TechnicianTrack `json:"track"`
	}](t, w)
	assert.Equal(t, "tec1", got.TechnicianID)
	require.NotEmpty(t, got.Track)
	assert.Equal(t, 1.0, got.Track[0].Latitude)

	w = env.do(http.MethodGet, "/api/technicians/tec1/track?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRuns(t *testing.T) {
	env := newTestEnv(t, &countingSource{}, "")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		at := time.Date(2024, 11, 5, 8, i, 0, 0, time.UTC)
		require.NoError(t, env.store.RecordRun(ctx, &model.PollRun{StartedAt: at, FinishedAt: at, WorkOrders: i}))
	}

	w := env.do(http.MethodGet, "/api/runs?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode[[]model.PollRun](t, w)
	require.Len(t, runs, 2)
	assert.Equal(t, 2, runs[0].WorkOrders, "newest first")

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/runs?limit=-1", nil).Code)
}

func TestSubscriptions(t *testing.T) {
	env := newTestEnv(t, &countingSource{}, "")
	endpoint := "https://push.example.com/abc"

	w := env.do(http.MethodPut, "/api/subscriptions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	w = env.do(http.MethodPut, "/api/subscriptions", gin.H{
		"endpoint": endpoint, "p256dh": "key", "auth": "secret",
		"subscribed_technicians": []string{"Samba TA", "Ali Hamid", "Ali Hamid", " "},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_technicians":["Ali Hamid","Samba TA"]}`, w.Body.String())

	w = env.do(http.MethodPut, "/api/subscriptions", gin.H{
		"endpoint": endpoint, "p256dh": "key2", "auth": "secret",
		"subscribed_technicians": []string{"Samba TA"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	assert.JSONEq(t, `{"subscribed_technicians":["Samba TA"]}`, w.Body.String())

	var sub model.PushSubscription
	require.NoError(t, env.db.First(&sub, "endpoint = ?", endpoint).Error)
	assert.Equal(t, "key2", sub.P256DH)

	w = env.do(http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var links int64
	env.db.Model(&model.SubscribedTechnician{}).Count(&links)
	assert.Zero(t, links)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/subscriptions", nil).Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	env := newTestEnv(t, &countingSource{}, "")
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/api/vapid_public_key", nil).Code)

	env = newTestEnv(t, &countingSource{}, "BPUB")
	w := env.do(http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"BPUB","ttl_seconds":0}`, w.Body.String())

	env.router = NewRouter(config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 60}, Deps{
		Store:      env.store,
		Live:       env.source,
		Snapshots:  snapshot.New(env.source, time.Minute),
		Normalizer: normalize.New(time.UTC, zerolog.Nop()),
		Filter:     filter.NewEngine(time.UTC),
		Webpush:    &webpush.Options{VAPIDPublicKey: "BPUB", TTL: 3600},
	})
	w = env.do(http.MethodGet, "/api/vapid_public_key", nil)
	assert.JSONEq(t, `{"public_key":"BPUB","ttl_seconds":3600}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, &countingSource{}, "")
	w := env.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
