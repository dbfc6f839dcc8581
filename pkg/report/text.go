package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/srodi/memon/pkg/tree"
	"github.com/srodi/memon/pkg/types"
)

const separatorWidth = 60

// Renderer writes a cycle's result in some output format.
type Renderer interface {
	Render(w io.Writer, rep Report) error
	RenderNoMatch(w io.Writer, term string) error
}

// Options controls the text layout.
type Options struct {
	Verbose   bool // command lines, subtree totals and the top memory table
	Color     bool
	NameWidth int // names longer than this are elided; <= 0 uses the default
}

// TextRenderer draws process trees for a terminal.
type TextRenderer struct {
	opts      Options
	accent    *color.Color
	highlight *color.Color
	alert     *color.Color
}

// NewTextRenderer builds a renderer. Color is applied only when opts.Color is set,
// regardless of what fatih/color detects about stdout.
func NewTextRenderer(opts Options) *TextRenderer {
	if opts.NameWidth <= 0 {
		opts.NameWidth = types.DefaultNameWidth
	}
	r := &TextRenderer{
		opts:      opts,
		accent:    color.New(color.FgCyan),
		highlight: color.New(color.FgBlack, color.BgWhite),
		alert:     color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{r.accent, r.highlight, r.alert} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// Render writes the header, every tree with its summary line and, in verbose
// mode, the ranked processes.
func (r *TextRenderer) Render(w io.Writer, rep Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Searching: %s\n", r.accent.Sprint(rep.Term))
	fmt.Fprintf(bw, "Found %d procs\n", rep.Matched)
	fmt.Fprintf(bw, "Found %d trees\n", len(rep.Forest))

	rows := Rows(rep.Forest)
	current := -1
	width := 0
	for i, row := range rows {
		if row.Tree != current {
			if current >= 0 {
				r.writeSummary(bw, rep.Forest[current])
				r.writeSeparator(bw)
			}
			current = row.Tree
			width = pidWidth(rep.Forest[current])
		}
		r.writeRow(bw, row, width)
		if i == len(rows)-1 {
			r.writeSummary(bw, rep.Forest[current])
		}
	}

	if r.opts.Verbose {
		r.writeTop(bw, rep)
	}
	return bw.Flush()
}

// RenderNoMatch reports that the term selected nothing.
func (r *TextRenderer) RenderNoMatch(w io.Writer, term string) error {
	_, err := fmt.Fprintf(w, "Searching: %s\n%s\n", r.accent.Sprint(term),
		r.alert.Sprintf("No processes found matching '%s'", term))
	return err
}

func (r *TextRenderer) writeRow(w io.Writer, row Row, pidWidth int) {
	n := row.Node
	var b strings.Builder
	b.WriteString(row.Prefix)
	if r.opts.Verbose {
		b.WriteString("🟢")
	}
	fmt.Fprintf(&b, "%*d %s ", pidWidth, n.PID, FitName(n.Name, r.opts.NameWidth))
	mem := FormatBytes(n.RSSBytes)
	if n.Rank != 0 {
		mem = r.highlight.Sprint(mem)
	}
	b.WriteString(mem)
	if r.opts.Verbose {
		if len(n.Children) > 0 {
			fmt.Fprintf(&b, " (tree %s)", FormatBytes(n.SubtreeBytes))
		}
		if len(n.Args) > 0 {
			b.WriteString(" 🔍")
			b.WriteString(strings.Join(n.Args, " "))
		}
	}
	if glyph := RankGlyph(n.Rank); glyph != "" {
		b.WriteString(" ")
		b.WriteString(glyph)
	}
	b.WriteString("\n")
	io.WriteString(w, b.String())
}

func (r *TextRenderer) writeSummary(w io.Writer, root *tree.Node) {
	s := tree.Summarize(root)
	fmt.Fprintf(w, "%d procs | %s avg | %s total\n",
		s.Procs, r.accent.Sprint(FormatBytes(s.AvgBytes)), r.accent.Sprint(FormatBytes(s.TotalBytes)))
}

func (r *TextRenderer) writeSeparator(w io.Writer) {
	if r.opts.Color {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", separatorWidth))
}

// writeTop lists the ranked processes with their share of the matched trees
// and, when known, of physical memory.
func (r *TextRenderer) writeTop(w io.Writer, rep Report) {
	ranked := rep.Forest.Ranked()
	if len(ranked) == 0 {
		return
	}
	total := rep.Forest.TotalBytes()
	fmt.Fprintf(w, "\n[Top %d by memory]\n", len(ranked))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPID\tNAME\tRSS\tTREES(%)\tRAM(%)")
	for _, n := range ranked {
		ram := "-"
		if rep.SystemBytes > 0 {
			ram = fmt.Sprintf("%.1f", Percent(n.RSSBytes, rep.SystemBytes))
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%.1f\t%s\n",
			RankGlyph(n.Rank), n.PID, n.Name, FormatBytes(n.RSSBytes), Percent(n.RSSBytes, total), ram)
	}
	tw.Flush()
}
