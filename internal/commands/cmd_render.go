package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"fieldops-map-backend/internal/airtable"
	"fieldops-map-backend/internal/dashboard"
	"fieldops-map-backend/internal/filter"
	"fieldops-map-backend/internal/logging"
	"fieldops-map-backend/internal/normalize"
	"fieldops-map-backend/internal/render"
)

type RenderCmd struct {
	flags *Flags

	open string

	// source overrides the live Airtable client in tests.
	source dashboard.Source
}

func NewRenderCmd(flags *Flags) *RenderCmd {
	return &RenderCmd{flags: flags}
}

func (cmd *RenderCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "render",
		Usage:     "Fetch the tables once and print the map scene as JSON",
		UsageText: "fieldmapd render [--steps DONE --steps NEW] [--show-technicians] [--open recID]",
		Description: `Runs one dashboard session against a headless map: fetch, filter, place
markers and fit the viewport. Display toggles default to the configured values.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "steps", Usage: "steps to show (repeatable, All for every step)"},
			&cli.StringSliceFlag{Name: "priorities", Usage: "priorities to show (repeatable)"},
			&cli.StringSliceFlag{Name: "technicians", Usage: "technician names to show (repeatable)"},
			&cli.StringSliceFlag{Name: "days", Usage: "day rules: All, na, not_today or YYYY-MM-DD (repeatable)"},
			&cli.BoolFlag{Name: "show-labels", Usage: "label markers with the work-order id"},
			&cli.BoolFlag{Name: "show-unselected", Usage: "draw filtered-out work orders dimmed"},
			&cli.BoolFlag{Name: "show-technicians", Usage: "draw technician markers"},
			&cli.BoolFlag{Name: "auto-fit", Usage: "fit the viewport over the markers"},
			&cli.StringFlag{Name: "open", Usage: "record id whose info panel is opened", Destination: &cmd.open},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *RenderCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	loc, err := cfg.Dashboard.Location()
	if err != nil {
		return err
	}

	src := cmd.source
	if src == nil {
		src = airtable.NewClient(cfg.Airtable)
	}
	r := &render.Renderer{
		Source:     src,
		Normalizer: normalize.New(loc, logging.Component("normalize")),
		Filter:     filter.NewEngine(loc),
		Logger:     logging.Component("render"),
	}

	req := render.Request{
		Filters: map[dashboard.Dimension][]string{},
		Display: render.DisplayFrom(cfg.Dashboard.Display),
		Open:    cmd.open,
	}
	for flag, dim := range map[string]dashboard.Dimension{
		"steps":       dashboard.DimSteps,
		"priorities":  dashboard.DimPriorities,
		"technicians": dashboard.DimTechnicians,
		"days":        dashboard.DimDays,
	} {
		if c.IsSet(flag) {
			req.Filters[dim] = render.SplitList(c.StringSlice(flag))
		}
	}
	for flag, dst := range map[string]*bool{
		"show-labels":      &req.Display.ShowLabels,
		"show-unselected":  &req.Display.ShowUnselected,
		"show-technicians": &req.Display.ShowTechnicians,
		"auto-fit":         &req.Display.AutoFit,
	} {
		if c.IsSet(flag) {
			*dst = c.Bool(flag)
		}
	}

	res, err := r.Render(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if res.View.Error != "" {
		return cli.Exit(fmt.Sprintf("render: %s", res.View.Error), 1)
	}
	return nil
}
