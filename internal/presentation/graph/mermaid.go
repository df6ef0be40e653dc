package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/fault"
)

// Overlay contains live flag states to visualize on the graph.
type Overlay struct {
	Enabled map[domain.FlagName]bool
}

// GenerateMermaid produces a Mermaid flowchart of the pipeline.
// Fault stages are drawn as a decision on their flag:
// - Decision: {Diamond} labelled with the flag
// - Delay: [[Subroutine]] that rejoins the chain
// - Terminate: [/Parallelogram/] that ends at the response
// Stages that are not fault injectors are plain [Rectangle] nodes.
// With an overlay, enabled flags and the faults they trigger are highlighted.
func GenerateMermaid(p *fault.Pipeline, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    request((\"request\"))\n")
	sb.WriteString("    response((\"response\"))\n")

	stages := p.Stages()
	first := "handler"
	if len(stages) > 0 {
		first = "stage0"
	}
	sb.WriteString(fmt.Sprintf("    request --> %s\n", first))

	var active []string

	for i, stage := range stages {
		id := fmt.Sprintf("stage%d", i)
		next := "handler"
		if i+1 < len(stages) {
			next = fmt.Sprintf("stage%d", i+1)
		}

		inj, ok := stage.(*fault.Injector)
		if !ok {
			sb.WriteString(fmt.Sprintf("    %s[\"stage %d\"]\n", id, i))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", id, next))
			continue
		}

		b := inj.Behavior()
		faultID := sanitizeMermaidID(id + "_" + string(b.Kind()))
		sb.WriteString(fmt.Sprintf("    %s{\"%s?\"}\n", id, escapeLabel(b.Flag())))
		sb.WriteString(fmt.Sprintf("    %s -- off --> %s\n", id, next))
		sb.WriteString(fmt.Sprintf("    %s -- on --> %s\n", id, faultID))

		switch beh := b.(type) {
		case fault.Delay:
			sb.WriteString(fmt.Sprintf("    %s[[\"delay %s\"]]\n", faultID, beh.Duration()))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", faultID, next))
		case fault.Terminate:
			sb.WriteString(fmt.Sprintf("    %s[/\"%d %s\"/]\n", faultID, beh.Status(), escapeLabel(beh.Body())))
			sb.WriteString(fmt.Sprintf("    %s --> response\n", faultID))
		default:
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", faultID, b.Kind()))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", faultID, next))
		}

		if overlay != nil && overlay.Enabled[b.Flag()] {
			active = append(active, id, faultID)
		}
	}

	sb.WriteString("    handler[[\"handler\"]]\n")
	sb.WriteString("    handler --> response\n")

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef active fill:#fee2e2,stroke:#b91c1c,stroke-width:3px,color:#000;\n")
		for _, id := range active {
			sb.WriteString(fmt.Sprintf("    class %s active;\n", id))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
