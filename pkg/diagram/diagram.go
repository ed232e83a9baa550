// Package diagram generates visual diagrams of a Starterfile's dependency
// graph. Supports Mermaid flowchart and ASCII formats.
package diagram

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/start-out/starter/pkg/graph"
)

// Format represents the output diagram format.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
)

// Generate produces a diagram string from a resolved plan.
func Generate(p *graph.Plan, format Format) (string, error) {
	if p == nil {
		return "", fmt.Errorf("nil plan")
	}
	switch format {
	case FormatMermaid:
		return generateMermaid(p), nil
	case FormatASCII:
		return generateASCII(p), nil
	default:
		return "", fmt.Errorf("unsupported diagram format: %s", format)
	}
}

// --- Mermaid flowchart ---

func generateMermaid(p *graph.Plan) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")

	for _, n := range p.Order {
		shape := fmt.Sprintf("%s[%s]", safeID(n.Name), escMermaid(n.Name))
		if !n.IsTool() {
			shape = fmt.Sprintf("%s[(%s)]", safeID(n.Name), escMermaid(n.Name))
		}
		b.WriteString("    " + shape + "\n")
		for _, dep := range n.Deps() {
			b.WriteString(fmt.Sprintf("    %s --> %s\n", safeID(dep), safeID(n.Name)))
		}
	}

	for i, g := range p.Groups {
		b.WriteString(fmt.Sprintf("    subgraph alt%d [alt: %s]\n", i, escMermaid(g.Primary)))
		for _, m := range g.Members {
			b.WriteString("        " + safeID(m) + "\n")
		}
		b.WriteString("    end\n")
		for j := 0; j < len(g.Members)-1; j++ {
			b.WriteString(fmt.Sprintf("    %s -.->|fallback| %s\n",
				safeID(g.Members[j]), safeID(g.Members[j+1])))
		}
	}

	return b.String()
}

// --- ASCII ---

// generateASCII draws the plan wave by wave: every entity in a wave can run
// once the previous waves finished.
func generateASCII(p *graph.Plan) string {
	var b strings.Builder

	width := 0
	for _, n := range p.Order {
		if w := runewidth.StringWidth(label(p, n)); w > width {
			width = w
		}
	}

	for i, wave := range p.Waves {
		if i > 0 {
			b.WriteString(strings.Repeat(" ", width/2+2) + "│\n")
			b.WriteString(strings.Repeat(" ", width/2+2) + "▼\n")
		}
		b.WriteString(fmt.Sprintf("wave %d\n", i))
		for _, n := range wave {
			text := label(p, n)
			pad := width - runewidth.StringWidth(text)
			b.WriteString(fmt.Sprintf("  ┌─%s─┐\n", strings.Repeat("─", width)))
			b.WriteString(fmt.Sprintf("  │ %s%s │\n", text, strings.Repeat(" ", pad)))
			b.WriteString(fmt.Sprintf("  └─%s─┘\n", strings.Repeat("─", width)))
		}
	}

	return b.String()
}

func label(p *graph.Plan, n *graph.Node) string {
	kind := "tool"
	if !n.IsTool() {
		kind = "module"
	}
	text := fmt.Sprintf("%s (%s)", n.Name, kind)
	if g := p.GroupFor(n.Name); g != nil {
		text += " [alt:" + g.Primary + "]"
	}
	return text
}

func safeID(id string) string {
	r := strings.NewReplacer(" ", "_", "-", "_", ".", "_", "/", "_")
	return "n_" + r.Replace(id)
}

func escMermaid(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
