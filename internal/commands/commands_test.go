package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"fieldops-map-backend/config"
	"fieldops-map-backend/internal/model"
)

type staticSource struct {
	snap model.RawSnapshot
}

func (s staticSource) Fetch(context.Context) (model.RawSnapshot, error) { return s.snap, nil }

func testConfig() *config.Config {
	autoFit := true
	return &config.Config{
		Airtable: config.AirtableConfig{
			BaseURL:     config.DefaultAirtableBase,
			APIKey:      "key",
			BaseID:      "app1",
			WorkOrders:  config.TableRef{Table: "WO"},
			Technicians: config.TableRef{Table: "Techs"},
		},
		Database:  config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"},
		Dashboard: config.DashboardConfig{Timezone: "UTC", Display: config.DisplayDefault{AutoFit: &autoFit}},
		Log:       config.LogConfig{Level: "info"},
	}
}

func newTestApp(flags *Flags, out *bytes.Buffer, render *RenderCmd) *cli.Command {
	app := &cli.Command{Name: "fieldmapd", Writer: out, ErrWriter: out}
	app = render.Register(app)
	app = NewConfigCmd(flags).Register(app)
	return app
}

func TestRenderCmd(t *testing.T) {
	flags := &Flags{Config: testConfig()}
	var out bytes.Buffer
	render := NewRenderCmd(flags)
	render.source = staticSource{snap: model.RawSnapshot{
		WorkOrders: []model.RawRecord{
			{ID: "rec1", Fields: map[string]any{"WO_ID": "1", "Step": "DONE", "Latitude": 48.85, "Longitude": 2.35}},
			{ID: "rec2", Fields: map[string]any{"WO_ID": "2", "Step": "NEW", "Latitude": 43.29, "Longitude": 5.37}},
		},
		Technicians: []model.RawRecord{
			{ID: "tec1", Fields: map[string]any{"Name": "Ali", "Latitude": 45.76, "Longitude": 4.83}},
		},
	}}

	err := newTestApp(flags, &out, render).Run(context.Background(),
		[]string{"fieldmapd", "render", "--steps", "DONE", "--show-technicians", "--show-labels", "--open", "rec1"})
	require.NoError(t, err)

	var got struct {
		View struct {
			Summary string `json:"summary"`
			Display struct {
				ShowLabels      bool `json:"showLabels"`
				ShowTechnicians bool `json:"showTechnicians"`
				AutoFit         bool `json:"autoFit"`
			} `json:"display"`
		} `json:"view"`
		Scene struct {
			Markers []json.RawMessage `json:"markers"`
			Info    []json.RawMessage `json:"info"`
		} `json:"scene"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got), out.String())
	assert.Equal(t, "Showing 1 of 2 work orders on map", got.View.Summary)
	assert.True(t, got.View.Display.ShowLabels)
	assert.True(t, got.View.Display.ShowTechnicians)
	assert.True(t, got.View.Display.AutoFit, "configured default is kept")
	assert.Len(t, got.Scene.Markers, 2)
	assert.Len(t, got.Scene.Info, 1)
}

func TestConfigValidateCmd(t *testing.T) {
	flags := &Flags{Config: testConfig(), ConfigPath: "fieldmap.yaml"}
	var out bytes.Buffer

	err := newTestApp(flags, &out, NewRenderCmd(flags)).Run(context.Background(), []string{"fieldmapd", "config", "validate"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "configuration fieldmap.yaml is valid")
}

func TestConfigValidateCmd_Invalid(t *testing.T) {
	cfg := testConfig()
	cfg.Airtable.APIKey = ""
	flags := &Flags{Config: cfg}

	app := newTestApp(flags, &bytes.Buffer{}, NewRenderCmd(flags))
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}
	err := app.Run(context.Background(), []string{"fieldmapd", "config", "validate"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "airtable.api_key")
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/fieldmap.yaml")
	assert.Equal(t, "/etc/fieldmap.yaml", DefaultConfigPath())

	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "./config/config.yaml", DefaultConfigPath())
}
