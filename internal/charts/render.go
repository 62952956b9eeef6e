package charts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tht-tools/team-balancer/internal/models"
)

// Renderer turns recompute output into the two dashboard chart grids,
// delivered as base64 PNG data URLs.
type Renderer struct {
	games []models.Game
	diff  []models.Game
	teams []models.TeamInfo
}

// New creates a renderer for the enabled games and the fixed team order.
func New(games []models.Game, teams []models.TeamInfo) *Renderer {
	enabled := make([]models.Game, 0, len(games))
	diff := make([]models.Game, 0, len(games))
	for _, g := range games {
		if !g.Enabled {
			continue
		}
		enabled = append(enabled, g)
		if !g.IsOverall() {
			diff = append(diff, g)
		}
	}
	return &Renderer{games: enabled, diff: diff, teams: teams}
}

const (
	miniWidth  = vg.Length(190)
	miniHeight = vg.Length(110)
	diffWidth  = vg.Length(300)
	diffHeight = vg.Length(190)
)

// PerGameGrid renders one mini bar chart per enabled game, four bars in team
// colors, composited into a three-column grid.
func (r *Renderer) PerGameGrid(averages map[string][]float64) (string, error) {
	tiles := make([]image.Image, 0, len(r.games))

	for _, game := range r.games {
		vals := averages[game.Key]
		if vals == nil {
			vals = make([]float64, len(r.teams))
		}

		p := plot.New()
		p.Title.Text = game.Name
		p.Title.TextStyle.Font.Size = vg.Points(9)
		p.HideX()

		for i, ti := range r.teams {
			if i >= len(vals) {
				break
			}
			bar, err := plotter.NewBarChart(plotter.Values{vals[i]}, vg.Points(14))
			if err != nil {
				return "", fmt.Errorf("failed to build bar for %s: %w", game.Key, err)
			}
			bar.Color = color.RGBA{R: ti.R, G: ti.G, B: ti.B, A: 255}
			bar.LineStyle.Width = 0
			bar.XMin = float64(i)
			p.Add(bar)
		}

		tile, err := renderTile(p, miniWidth, miniHeight)
		if err != nil {
			return "", fmt.Errorf("failed to render %s tile: %w", game.Key, err)
		}
		tiles = append(tiles, tile)
	}

	return compose(tiles, 3)
}

// DifferentialGrid renders one chart per team (2x2): a bar per non-Overall
// game showing the team's total against the field average, with a zero
// reference line.
func (r *Renderer) DifferentialGrid(diffs [][]float64) (string, error) {
	labels := make([]string, len(r.diff))
	for i, g := range r.diff {
		labels[i] = g.ShortLabel
	}

	tiles := make([]image.Image, 0, len(r.teams))

	for ti, team := range r.teams {
		var vals plotter.Values
		if ti < len(diffs) {
			vals = plotter.Values(diffs[ti])
		}
		// Pad so the labels always line up even on a partial result.
		for len(vals) < len(labels) {
			vals = append(vals, 0)
		}

		p := plot.New()
		p.Title.Text = team.Name
		p.Title.TextStyle.Font.Size = vg.Points(9)
		p.NominalX(labels...)
		p.X.Tick.Label.Font.Size = vg.Points(6)
		p.Y.Tick.Label.Font.Size = vg.Points(6)

		bars, err := plotter.NewBarChart(vals, vg.Points(10))
		if err != nil {
			return "", fmt.Errorf("failed to build bars for team %s: %w", team.Name, err)
		}
		bars.Color = color.RGBA{R: team.R, G: team.G, B: team.B, A: 255}
		bars.LineStyle.Width = 0
		p.Add(bars)

		zero, err := plotter.NewLine(plotter.XYs{
			{X: -0.5, Y: 0},
			{X: float64(len(labels)) - 0.5, Y: 0},
		})
		if err != nil {
			return "", fmt.Errorf("failed to build zero line: %w", err)
		}
		zero.Color = color.RGBA{R: 68, G: 68, B: 68, A: 255}
		zero.Width = vg.Points(0.5)
		p.Add(zero)

		tile, err := renderTile(p, diffWidth, diffHeight)
		if err != nil {
			return "", fmt.Errorf("failed to render team %s tile: %w", team.Name, err)
		}
		tiles = append(tiles, tile)
	}

	return compose(tiles, 2)
}

// renderTile draws a plot to a PNG and decodes it back for compositing.
func renderTile(p *plot.Plot, w, h vg.Length) (image.Image, error) {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}

	return png.Decode(&buf)
}

// compose pastes equally sized tiles into a white grid with the given column
// count and returns the encoded data URL.
func compose(tiles []image.Image, cols int) (string, error) {
	if len(tiles) == 0 {
		return "", fmt.Errorf("no chart tiles to compose")
	}

	cellW := tiles[0].Bounds().Dx()
	cellH := tiles[0].Bounds().Dy()
	rows := (len(tiles) + cols - 1) / cols

	canvas := image.NewRGBA(image.Rect(0, 0, cellW*cols, cellH*rows))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, tile := range tiles {
		x := (i % cols) * cellW
		y := (i / cols) * cellH
		rect := image.Rect(x, y, x+cellW, y+cellH)
		draw.Draw(canvas, rect, tile, tile.Bounds().Min, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return "", fmt.Errorf("failed to encode chart grid: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
