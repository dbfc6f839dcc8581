package report

import (
	"strconv"
	"strings"
	"unicode/utf8"

	units "github.com/docker/go-units"

	"github.com/srodi/memon/pkg/tree"
)

var binaryUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes renders a byte count with binary (1024) units and one decimal.
func FormatBytes(b uint64) string {
	if b == 0 {
		return "0B"
	}
	return units.CustomSize("%.1f%s", float64(b), 1024.0, binaryUnits)
}

// FitName pads name to width, or elides it with "..." when it is longer.
func FitName(name string, width int) string {
	if width <= 0 {
		return name
	}
	n := utf8.RuneCountInString(name)
	if n > width {
		if width <= 3 {
			return strings.Repeat(".", 3)
		}
		runes := []rune(name)
		return string(runes[:width-3]) + "..."
	}
	return name + strings.Repeat(" ", width-n)
}

// RankGlyph returns the medal for rank 1..3 and "" otherwise.
func RankGlyph(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

// Percent returns part as a percentage of whole, 0 when whole is unknown.
func Percent(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// pidWidth is the widest PID in the tree, for right alignment.
func pidWidth(root *tree.Node) int {
	width := 1
	root.Walk(func(n *tree.Node, _ int, _ bool) {
		if w := len(strconv.Itoa(n.PID)); w > width {
			width = w
		}
	})
	return width
}
