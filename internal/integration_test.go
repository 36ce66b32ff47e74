package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldops-map-backend/config"
	"fieldops-map-backend/internal/airtable"
	"fieldops-map-backend/internal/api"
	"fieldops-map-backend/internal/db"
	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/model"
	"fieldops-map-backend/internal/normalize"
	"fieldops-map-backend/internal/poller"
	"fieldops-map-backend/internal/snapshot"
	"fieldops-map-backend/internal/store"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingPublisher) Publish(_ context.Context, key string, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := r.keys
	r.keys = nil
	return keys
}

type page struct {
	Records []model.RawRecord `json:"records"`
	Offset  string            `json:"offset,omitempty"`
}

func record(id string, fields map[string]any) model.RawRecord {
	return model.RawRecord{ID: id, Fields: fields}
}

// TestPollAndServe drives three poll rounds against a fake Airtable base and
// checks what the database and the HTTP API expose after each.
func TestPollAndServe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Round 0: rec2 unassigned, technician at Lyon.
	// Round 1: rec2 assigned to Samba TA, technician moved to Paris.
	// Round 2: upstream failure.
	var round atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		r2 := round.Load()
		if r2 == 2 {
			http.Error(w, `{"error":"SERVER_ERROR"}`, http.StatusInternalServerError)
			return
		}

		var p page
		switch r.URL.Path {
		case "/app1/Work%20Orders", "/app1/Work Orders":
			if r.URL.Query().Get("offset") == "" {
				p = page{Records: []model.RawRecord{record("rec1", map[string]any{
					"WO_ID": "1001", "Step": "IN PROGRESS", "Priority": "Urgent",
					"Technician Name": []any{"Ali Hamid"}, "Latitude": 48.85, "Longitude": 2.35,
				})}, Offset: "next"}
				break
			}
			tech := []any{}
			if r2 == 1 {
				tech = []any{"Samba TA"}
			}
			p = page{Records: []model.RawRecord{
				record("rec2", map[string]any{"WO_ID": "1002", "Step": "NEW", "Priority": "Low", "Technician Name": tech, "Latitude": 43.29, "Longitude": 5.37}),
				record("rec3", map[string]any{"WO_ID": "1003", "Step": "NEW", "Latitude": "N/A"}),
			}}
		case "/app1/Technicians":
			lat, lng := 45.76, 4.83
			if r2 == 1 {
				lat, lng = 48.86, 2.34
			}
			p = page{Records: []model.RawRecord{record("tec1", map[string]any{"Name": "Ali Hamid", "Latitude": lat, "Longitude": lng})}}
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
	}))
	defer server.Close()

	cfg := &config.Config{
		Server: config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 1},
		Airtable: config.AirtableConfig{
			BaseURL:        server.URL,
			BaseID:         "app1",
			APIKey:         "secret",
			WorkOrders:     config.TableRef{Table: "Work Orders"},
			Technicians:    config.TableRef{Table: "Technicians"},
			TimeoutSeconds: 5,
		},
		Poller:     config.PollerConfig{Enabled: true, Interval: time.Hour, SnapshotTTL: time.Hour},
		Database:   config.DatabaseConfig{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "fieldmap.db")},
		WorkerPool: config.WorkerPoolConfig{Size: 1},
	}

	gormDB, err := db.Init(&cfg.Database)
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	defer sqlDB.Close()

	st := store.NewGormStore(gormDB)
	client := airtable.NewClient(cfg.Airtable)
	snapshots := snapshot.New(client, cfg.Poller.SnapshotTTL)
	normalizer := normalize.New(time.UTC, zerolog.Nop())
	pub := &recordingPublisher{}
	svc := poller.NewService(cfg, st, client, snapshots, normalizer, pub)

	router := api.NewRouter(cfg.Server, api.Deps{
		Store:      st,
		Live:       client,
		Snapshots:  snapshots,
		Normalizer: normalizer,
		Filter:     filter.NewEngine(time.UTC),
	})
	get := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w
	}
	ctx := context.Background()

	// --- Round 0 ---
	run := svc.PollOnce(ctx)
	require.Empty(t, run.Error)
	assert.Equal(t, 3, run.WorkOrders, "both pages are read")
	assert.Equal(t, 2, run.Mappable)
	assert.Equal(t, 1, run.Unmappable)
	assert.Equal(t, []string{"poll.completed"}, pub.take(), "first round only seeds")

	var assignments []model.WorkOrderAssignment
	require.NoError(t, gormDB.Order("record_id").Find(&assignments).Error)
	require.Len(t, assignments, 3)
	assert.Equal(t, model.Unassigned, assignments[1].Technician)

	w := get("/api/map?showTechnicians=true")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Showing 2 of 2 work orders on map")

	// --- Round 1 ---
	round.Store(1)
	run = svc.PollOnce(ctx)
	require.Empty(t, run.Error)
	assert.Equal(t, []string{"technician.moved", "workorder.assigned.samba_ta", "poll.completed"}, pub.take())

	var archived []model.TechnicianTrack
	require.NoError(t, gormDB.Find(&archived).Error)
	require.Len(t, archived, 1)
	assert.Equal(t, 45.76, archived[0].Latitude)

	w = get("/api/technicians/tec1/track?since=2000-01-01T00:00:00Z")
	require.Equal(t, http.StatusOK, w.Code)
	var track struct {
		Track []model.TechnicianTrack `json:"track"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &track))
	require.Len(t, track.Track, 2, "archived segment plus current position")
	assert.Equal(t, 48.86, track.Track[1].Latitude)

	w = get("/api/map?technicians=Samba%20TA")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Showing 1 of 2 work orders on map")

	// --- Round 2 ---
	round.Store(2)
	run = svc.PollOnce(ctx)
	assert.Contains(t, run.Error, "500")
	assert.Equal(t, []string{"poll.failed"}, pub.take())

	_, cached := snapshots.Get()
	assert.False(t, cached, "failed poll clears the snapshot")

	w = get("/api/map?autoFit=false")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	w = get("/api/airtable")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = get("/api/runs")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []model.PollRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 3)
	assert.NotEmpty(t, runs[0].Error)
}
