package report

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/srodi/memon/pkg/tree"
)

type yamlReport struct {
	Term       string     `yaml:"term"`
	Matched    int        `yaml:"matched"`
	Procs      int        `yaml:"procs"`
	TotalBytes uint64     `yaml:"total_bytes"`
	Trees      []yamlNode `yaml:"trees"`
}

type yamlNode struct {
	PID          int        `yaml:"pid"`
	PPID         int        `yaml:"ppid"`
	Name         string     `yaml:"name"`
	Exe          string     `yaml:"exe,omitempty"`
	Args         []string   `yaml:"args,omitempty"`
	RSSBytes     uint64     `yaml:"rss_bytes"`
	RSS          string     `yaml:"rss"`
	SubtreeBytes uint64     `yaml:"subtree_bytes"`
	Rank         int        `yaml:"rank,omitempty"`
	Children     []yamlNode `yaml:"children,omitempty"`
}

// YAMLRenderer emits the annotated forest as a YAML document. Tree order,
// child order and ranks are taken from the forest unchanged.
type YAMLRenderer struct{}

// Render encodes rep.
func (YAMLRenderer) Render(w io.Writer, rep Report) error {
	doc := yamlReport{
		Term:       rep.Term,
		Matched:    rep.Matched,
		Procs:      rep.Forest.Count(),
		TotalBytes: rep.Forest.TotalBytes(),
		Trees:      make([]yamlNode, 0, len(rep.Forest)),
	}
	for _, root := range rep.Forest {
		doc.Trees = append(doc.Trees, toYAML(root))
	}
	return encodeYAML(w, doc)
}

// RenderNoMatch encodes an empty result so consumers always get a document.
func (YAMLRenderer) RenderNoMatch(w io.Writer, term string) error {
	return encodeYAML(w, yamlReport{Term: term, Trees: []yamlNode{}})
}

func toYAML(n *tree.Node) yamlNode {
	out := yamlNode{
		PID:          n.PID,
		PPID:         n.PPID,
		Name:         n.Name,
		Exe:          n.Exe,
		Args:         n.Args,
		RSSBytes:     n.RSSBytes,
		RSS:          FormatBytes(n.RSSBytes),
		SubtreeBytes: n.SubtreeBytes,
		Rank:         n.Rank,
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, toYAML(child))
	}
	return out
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
