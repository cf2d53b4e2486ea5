// Package visualizer renders workflow nets and fitness reports as
// standalone HTML pages with go-echarts.
package visualizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/conformance/core/logger"
	"github.com/kilianp07/conformance/core/model"
	"github.com/kilianp07/conformance/core/petrinet"
)

const (
	colPitch = 160
	rowPitch = 70
)

// HTMLRenderer writes one page per net into a directory.
type HTMLRenderer struct {
	dir string
	log logger.Logger
}

// NewHTMLRenderer returns a renderer rooted at dir.
func NewHTMLRenderer(dir string, log logger.Logger) *HTMLRenderer {
	return &HTMLRenderer{dir: dir, log: log}
}

// Render writes the net of key and returns the file path.
func (r *HTMLRenderer) Render(ctx context.Context, key model.GroupKey, net *petrinet.Net) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := WriteNet(&buf, key.String(), net); err != nil {
		return "", err
	}
	path := filepath.Join(r.dir, fileName(key.String())+".html")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	r.log.Debugf("net of %s rendered to %s", key, path)
	return path, nil
}

// WriteNet renders net as a layered graph: one column per day, places as
// circles, visible transitions as squares, barriers as thin bars.
func WriteNet(w io.Writer, title string, net *petrinet.Net) error {
	nodes, links := graphOf(net)
	g := charts.NewGraph()
	g.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d places, %d transitions, %d arcs", len(net.Places), len(net.Transitions), net.ArcCount()),
		}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1400px", Height: "800px"}),
	)
	g.AddSeries(net.Name, nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:     "none",
			EdgeSymbol: []string{"none", "arrow"},
		}),
	)
	if err := g.Render(w); err != nil {
		return fmt.Errorf("failed to render net: %w", err)
	}
	return nil
}

func placeID(p int, net *petrinet.Net) string      { return "p:" + net.Places[p].Name }
func transitionID(t int, net *petrinet.Net) string { return "t:" + net.Transitions[t].Name }

func graphOf(net *petrinet.Net) ([]opts.GraphNode, []opts.GraphLink) {
	// Columns alternate places and transitions: layer d puts its input
	// places at 3d, transitions at 3d+1, output places at 3d+2 and the
	// barrier at 3d+3, which is also where the next layer starts.
	rows := map[int]int{}
	slot := func(col int) float32 {
		r := rows[col]
		rows[col]++
		return float32(r * rowPitch)
	}
	nodes := make([]opts.GraphNode, 0, len(net.Places)+len(net.Transitions))
	for t, tr := range net.Transitions {
		col := 3*tr.Day + 1
		node := opts.GraphNode{Name: transitionID(t, net), Symbol: "rect", SymbolSize: []int{24, 24}, ItemStyle: &opts.ItemStyle{Color: "#5470c6"}}
		if tr.Silent {
			col = 3*tr.Day + 3
			node.SymbolSize = []int{6, 36}
			node.ItemStyle = &opts.ItemStyle{Color: "#333333"}
		}
		node.X, node.Y = float32(col*colPitch), slot(col)
		nodes = append(nodes, node)
	}
	for p, pl := range net.Places {
		col := 3 * pl.Day
		if producesOnly(net, p) {
			col = 3*pl.Day + 2
		}
		color := "#ffffff"
		switch {
		case net.Initial[p] > 0:
			color = "#91cc75"
		case net.Final[p] > 0:
			color = "#ee6666"
		}
		nodes = append(nodes, opts.GraphNode{
			Name:       placeID(p, net),
			Symbol:     "circle",
			SymbolSize: 20,
			ItemStyle:  &opts.ItemStyle{Color: color, BorderColor: "#333333"},
			X:          float32(col * colPitch),
			Y:          slot(col),
		})
	}
	var links []opts.GraphLink
	for t, tr := range net.Transitions {
		for _, p := range tr.In {
			links = append(links, opts.GraphLink{Source: placeID(p, net), Target: transitionID(t, net)})
		}
		for _, p := range tr.Out {
			links = append(links, opts.GraphLink{Source: transitionID(t, net), Target: placeID(p, net)})
		}
	}
	return nodes, links
}

// producesOnly reports whether p is an operation output place, i.e. it is
// fed by a visible transition of its own layer.
func producesOnly(net *petrinet.Net, p int) bool {
	for _, t := range net.Producers(p) {
		if !net.Transitions[t].Silent && net.Transitions[t].Day == net.Places[p].Day {
			return true
		}
	}
	return false
}

func fileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}
