package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/srodi/memon/pkg/tree"
	"github.com/srodi/memon/pkg/types"
)

func chromeForest() tree.Forest {
	records := []types.ProcessRecord{
		{PID: 1, PPID: 0, Name: "chrome", Args: []string{"/opt/chrome/chrome"}, RSSBytes: 1_000_000},
		{PID: 2, PPID: 1, Name: "chrome", Args: []string{"/opt/chrome/chrome", "--type=renderer"}, RSSBytes: 2_000_000},
		{PID: 3, PPID: 1, Name: "chrome", RSSBytes: 500_000},
	}
	return tree.Annotate(tree.Build(records, []int{1}))
}

func nestedForest() tree.Forest {
	records := []types.ProcessRecord{
		{PID: 10, Name: "a", RSSBytes: 1},
		{PID: 11, PPID: 10, Name: "b", RSSBytes: 1},
		{PID: 12, PPID: 11, Name: "c", RSSBytes: 1},
		{PID: 13, PPID: 10, Name: "d", RSSBytes: 1},
		{PID: 14, PPID: 13, Name: "e", RSSBytes: 1},
		{PID: 100, Name: "f", RSSBytes: 1},
	}
	return tree.Annotate(tree.Build(records, []int{10, 100}))
}

func TestRowsPreserveOrderAndDrawGuides(t *testing.T) {
	rows := Rows(nestedForest())
	type line struct {
		PID    int
		Tree   int
		Depth  int
		Prefix string
	}
	var got []line
	for _, r := range rows {
		got = append(got, line{r.Node.PID, r.Tree, r.Depth, r.Prefix})
	}
	want := []line{
		{10, 0, 0, ""},
		{11, 0, 1, "├─ "},
		{12, 0, 2, "│  └─ "},
		{13, 0, 1, "└─ "},
		{14, 0, 2, "   └─ "},
		{100, 1, 0, ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}
}

func TestTextRendererPlain(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(Options{})
	if err := r.Render(&buf, Report{Term: "chrome", Matched: 3, Forest: chromeForest()}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	name := FitName("chrome", types.DefaultNameWidth)
	want := strings.Join([]string{
		"Searching: chrome",
		"Found 3 procs",
		"Found 1 trees",
		"1 " + name + " 976.6KB 🥈",
		"├─ 2 " + name + " 1.9MB 🥇",
		"└─ 3 " + name + " 488.3KB 🥉",
		"3 procs | 1.1MB avg | 3.3MB total",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("output (-want +got):\n%s", diff)
	}
}

func TestTextRendererSeparatesTreesWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextRenderer(Options{NameWidth: 4}).Render(&buf, Report{Term: "x", Matched: 2, Forest: nestedForest()}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\n"+strings.Repeat("=", separatorWidth)+"\n") {
		t.Fatalf("expected separator rule between trees:\n%s", out)
	}
	if strings.Count(out, "procs |") != 2 {
		t.Fatalf("expected one summary per tree:\n%s", out)
	}
	if !strings.Contains(out, " 12 c    1.0B") {
		t.Fatalf("expected right-aligned pid and padded name:\n%s", out)
	}
}

func TestTextRendererVerbose(t *testing.T) {
	var buf bytes.Buffer
	rep := Report{Term: "chrome", Matched: 3, Forest: chromeForest(), SystemBytes: 10_000_000}
	if err := NewTextRenderer(Options{Verbose: true, NameWidth: 8}).Render(&buf, rep); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"🟢1 chrome   976.6KB (tree 3.3MB) 🔍/opt/chrome/chrome 🥈",
		"├─ 🟢2 chrome   1.9MB 🔍/opt/chrome/chrome --type=renderer 🥇",
		"[Top 3 by memory]",
		"RANK",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("verbose output missing %q:\n%s", want, out)
		}
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	top := lines[len(lines)-3:]
	for i, pid := range []string{"2", "1", "3"} {
		fields := strings.Fields(top[i])
		if fields[1] != pid {
			t.Fatalf("top row %d: expected pid %s, got %q", i, pid, top[i])
		}
	}
	if !strings.Contains(top[0], "57.1") || !strings.Contains(top[0], "20.0") {
		t.Fatalf("expected tree and RAM percentages in %q", top[0])
	}
}

func TestTextRendererColor(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextRenderer(Options{Color: true}).Render(&buf, Report{Term: "chrome", Matched: 3, Forest: chromeForest()}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected ANSI escapes in colored output: %q", out)
	}
	if strings.Contains(out, strings.Repeat("=", separatorWidth)) {
		t.Fatalf("colored output should not use the plain separator")
	}

	buf.Reset()
	if err := NewTextRenderer(Options{}).Render(&buf, Report{Term: "chrome", Matched: 3, Forest: chromeForest()}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("plain output must not contain escapes: %q", buf.String())
	}
}

func TestTextRendererNoMatch(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextRenderer(Options{}).RenderNoMatch(&buf, "nonexistent"); err != nil {
		t.Fatalf("RenderNoMatch: %v", err)
	}
	want := "Searching: nonexistent\nNo processes found matching 'nonexistent'\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestYAMLRendererKeepsForestShape(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLRenderer{}).Render(&buf, Report{Term: "chrome", Matched: 3, Forest: chromeForest()}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	var doc yamlReport
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, buf.String())
	}
	if doc.Procs != 3 || doc.TotalBytes != 3_500_000 || len(doc.Trees) != 1 {
		t.Fatalf("unexpected document header: %+v", doc)
	}
	root := doc.Trees[0]
	if root.PID != 1 || root.Rank != 2 || root.SubtreeBytes != 3_500_000 {
		t.Fatalf("unexpected root: %+v", root)
	}
	var children []int
	ranks := map[int]int{}
	for _, c := range root.Children {
		children = append(children, c.PID)
		ranks[c.PID] = c.Rank
	}
	if diff := cmp.Diff([]int{2, 3}, children); diff != "" {
		t.Fatalf("children (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[int]int{2: 1, 3: 3}, ranks); diff != "" {
		t.Fatalf("child ranks (-want +got):\n%s", diff)
	}
	if !strings.Contains(buf.String(), "rss: 1.9MB") {
		t.Fatalf("expected human readable size in output:\n%s", buf.String())
	}
}

func TestYAMLRendererNoMatch(t *testing.T) {
	var buf bytes.Buffer
	if err := (YAMLRenderer{}).RenderNoMatch(&buf, "ghost"); err != nil {
		t.Fatalf("RenderNoMatch: %v", err)
	}
	var doc yamlReport
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if doc.Term != "ghost" || doc.Matched != 0 || len(doc.Trees) != 0 {
		t.Fatalf("unexpected no-match document: %+v", doc)
	}
}

var (
	_ Renderer = (*TextRenderer)(nil)
	_ Renderer = YAMLRenderer{}
)
