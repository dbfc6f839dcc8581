package ui

import "strings"

const (
	reset     = "\033[0m"
	bold      = "\033[1m"
	mint      = "\033[38;5;121m"
	seafoam   = "\033[38;5;49m"
	teal      = "\033[38;5;37m"
	cobalt    = "\033[38;5;33m"
	violet    = "\033[38;5;99m"
	memonLeaf = "\033[38;5;78m"
)

var wordmark = [][]string{
	{"███╗   ███╗", "████╗ ████║", "██╔████╔██║", "██║╚██╔╝██║", "██║ ╚═╝ ██║", "╚═╝     ╚═╝"},
	{"███████╗", "██╔════╝", "█████╗  ", "██╔══╝  ", "███████╗", "╚══════╝"},
	{"███╗   ███╗", "████╗ ████║", "██╔████╔██║", "██║╚██╔╝██║", "██║ ╚═╝ ██║", "╚═╝     ╚═╝"},
	{" ██████╗ ", "██╔═══██╗", "██║   ██║", "██║   ██║", "╚██████╔╝", " ╚═════╝ "},
	{"███╗   ██╗", "████╗  ██║", "██╔██╗ ██║", "██║╚██╗██║", "██║ ╚████║", "╚═╝  ╚═══╝"},
}

var gradient = []string{mint, seafoam, teal, cobalt, violet}

// Banner renders a colored memon wordmark.
func Banner() string {
	var b strings.Builder

	rows := make([]string, len(wordmark[0]))
	for i, letter := range wordmark {
		color := gradient[i%len(gradient)]
		for row := 0; row < len(letter); row++ {
			rows[row] += color + letter[row] + "  "
		}
	}
	for _, line := range rows {
		b.WriteString(bold + line + reset + "\n")
	}

	b.WriteString("\n")
	b.WriteString(bold + memonLeaf + "memon" + reset + "  •  process memory trees\n\n")

	return b.String()
}

// PlainBanner is the banner without escape codes, for terminals with color off.
func PlainBanner() string {
	return "memon  •  process memory trees\n\n"
}
