// Package viz renders a Monitor or SafetyAutomaton's reachable state graph
// to SVG, the reduced analogue of original_source/src/DotInterface.hpp's
// Graphviz DOT export: not a full DOT emitter, just a graph renderer built
// the way dshills-dungo's pkg/export renders a dungeon's room graph with
// github.com/ajstarks/svgo — a circular layout, colored nodes, and straight
// edges.
package viz

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	svg "github.com/ajstarks/svgo"

	"github.com/kmallik/agnes-go/monitor"
	"github.com/kmallik/agnes-go/safetyautomaton"
)

// Options configures SVG rendering. Width, Height, NodeRadius and Margin
// fall back to DefaultOptions' values when zero.
type Options struct {
	Width      int
	Height     int
	NodeRadius int
	Margin     int
	// Clusters, if non-nil, groups node indices into named clusters drawn
	// as concentric rings rather than a single circle — the analogue of
	// DotInterface's state_clusters grouping.
	Clusters map[string][]uint32
}

// DefaultOptions returns sensible rendering defaults.
func DefaultOptions() Options {
	return Options{Width: 900, Height: 900, NodeRadius: 16, Margin: 60}
}

func (o *Options) fillDefaults() {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.NodeRadius <= 0 {
		o.NodeRadius = d.NodeRadius
	}
	if o.Margin <= 0 {
		o.Margin = d.Margin
	}
}

type position struct{ X, Y float64 }

// layout assigns each state in states a position: with no clusters, a
// single circle; with clusters, one concentric ring per cluster (plus a
// final ring for anything unclustered), mirroring DotInterface's
// state_clusters grouping.
func layout(states []uint32, opts Options) map[uint32]position {
	pos := make(map[uint32]position, len(states))
	cx := float64(opts.Width) / 2
	cy := float64(opts.Height) / 2
	maxRadius := math.Min(float64(opts.Width), float64(opts.Height))/2 - float64(opts.Margin)

	if len(opts.Clusters) == 0 {
		placeOnRing(states, cx, cy, maxRadius, pos)
		return pos
	}

	names := make([]string, 0, len(opts.Clusters))
	inCluster := make(map[uint32]bool)
	for name := range opts.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)

	rings := len(names) + 1
	for i, name := range names {
		ringRadius := maxRadius * float64(i+1) / float64(rings)
		members := opts.Clusters[name]
		for _, s := range members {
			inCluster[s] = true
		}
		placeOnRing(members, cx, cy, ringRadius, pos)
	}

	var rest []uint32
	for _, s := range states {
		if !inCluster[s] {
			rest = append(rest, s)
		}
	}
	placeOnRing(rest, cx, cy, maxRadius, pos)
	return pos
}

func placeOnRing(states []uint32, cx, cy, radius float64, pos map[uint32]position) {
	if len(states) == 0 {
		return
	}
	step := 2 * math.Pi / float64(len(states))
	sorted := append([]uint32(nil), states...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, s := range sorted {
		angle := float64(i) * step
		pos[s] = position{X: cx + radius*math.Cos(angle), Y: cy + radius*math.Sin(angle)}
	}
}

func render(states []uint32, edges [][2]uint32, labels map[uint32]string, colors map[uint32]string, opts Options) []byte {
	opts.fillDefaults()
	pos := layout(states, opts)

	buf := new(bytes.Buffer)
	canvas := svg.New(buf)
	canvas.Start(opts.Width, opts.Height)
	canvas.Rect(0, 0, opts.Width, opts.Height, "fill:#ffffff")

	for _, e := range edges {
		from, okF := pos[e[0]]
		to, okT := pos[e[1]]
		if !okF || !okT {
			continue
		}
		canvas.Line(int(from.X), int(from.Y), int(to.X), int(to.Y), "stroke:#999999;stroke-width:1")
	}

	for _, s := range states {
		p, ok := pos[s]
		if !ok {
			continue
		}
		color := colors[s]
		if color == "" {
			color = "#4d7cfe"
		}
		canvas.Circle(int(p.X), int(p.Y), opts.NodeRadius, fmt.Sprintf("fill:%s;stroke:#222222", color))
		label := labels[s]
		if label == "" {
			label = fmt.Sprintf("%d", s)
		}
		canvas.Text(int(p.X), int(p.Y)+4, label, "text-anchor:middle;font-size:11px;fill:#ffffff")
	}

	canvas.End()
	return buf.Bytes()
}

// Monitor renders a Monitor's state graph, restricted to the states
// reachable from its initial states. RejectA and RejectG are colored
// distinctly from live states.
func Monitor(m *monitor.Monitor, opts Options) []byte {
	reach := m.ReachableSetFromInit()
	states := reach.Slice()
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	colors := map[uint32]string{
		monitor.RejectA: "#e6a817",
		monitor.RejectG: "#c0392b",
	}
	labels := map[uint32]string{
		monitor.RejectA: "rejA",
		monitor.RejectG: "rejG",
	}

	var edges [][2]uint32
	for _, s := range states {
		for j := uint32(0); j < m.NumControl(); j++ {
			for k := uint32(0); k < m.NumDist(); k++ {
				for t := range m.Post(s, j, k) {
					if reach.Has(t) {
						edges = append(edges, [2]uint32{s, t})
					}
				}
			}
		}
	}
	return render(states, edges, labels, colors, opts)
}

// Automaton renders a SafetyAutomaton's state graph, restricted to states
// reachable from init. The reject state is colored distinctly.
func Automaton(a *safetyautomaton.Automaton, opts Options) []byte {
	seen := a.Init().Clone()
	queue := a.Init().Slice()
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for j := uint32(0); j < a.NumInputs(); j++ {
			for t := range a.Post(s, j) {
				if !seen.Has(t) {
					seen.Add(t)
					queue = append(queue, t)
				}
			}
		}
	}
	states := seen.Slice()
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })

	colors := map[uint32]string{safetyautomaton.RejectState: "#c0392b"}
	labels := map[uint32]string{safetyautomaton.RejectState: "reject"}

	var edges [][2]uint32
	for _, s := range states {
		for j := uint32(0); j < a.NumInputs(); j++ {
			for t := range a.Post(s, j) {
				if seen.Has(t) {
					edges = append(edges, [2]uint32{s, t})
				}
			}
		}
	}
	return render(states, edges, labels, colors, opts)
}
