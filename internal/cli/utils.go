// Package cli provides output formatting for the Nyaya command line and tool surfaces.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/nyaya/internal/models"
	"github.com/hyperjump/nyaya/pkg/utils"
)

// OutputFormat is the format for answer output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the public response shape, for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputMarkdown is used by the MCP tool surface.
	OutputMarkdown OutputFormat = "markdown"
)

const snippetWidth = 200

// WriteAnswer writes resp to w in the given format.
func WriteAnswer(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case OutputMarkdown:
		_, err := io.WriteString(w, FormatMarkdown(resp))
		return err
	default:
		writeAnswerText(w, resp)
		return nil
	}
}

func writeAnswerText(w io.Writer, resp *models.AskResponse) {
	fmt.Fprintf(w, "\n%s\n\n", resp.Answer)
	fmt.Fprintf(w, "Confidence: %.2f\n", resp.Confidence)
	if len(resp.Citations) > 0 {
		fmt.Fprintln(w, "Citations:")
		for _, c := range resp.Citations {
			fmt.Fprintf(w, "  - %s\n", citationLabel(c))
		}
	}
	if resp.Proof != nil && len(resp.Proof.Sources) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "--- Sources ---")
		for _, src := range resp.Proof.Sources {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "%s, section %s | Relevance: %.4f\n", src.Act, src.Section, src.RelevanceScore)
			fmt.Fprintf(w, "\n%s\n\n", utils.Snippet(src.TextSnippet, snippetWidth))
		}
		fmt.Fprintln(w, resp.Proof.Reasoning)
	}
	fmt.Fprintf(w, "\n%s\n", resp.Disclaimer)
}

// FormatMarkdown renders resp as a markdown document.
func FormatMarkdown(resp *models.AskResponse) string {
	var sb strings.Builder
	sb.WriteString(resp.Answer)
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("**Confidence:** %.2f\n\n", resp.Confidence))
	if len(resp.Citations) > 0 {
		sb.WriteString("### Citations\n")
		for _, c := range resp.Citations {
			sb.WriteString(fmt.Sprintf("- %s\n", citationLabel(c)))
		}
		sb.WriteString("\n")
	}
	if resp.Proof != nil && len(resp.Proof.Sources) > 0 {
		sb.WriteString("### Sources\n")
		for i, src := range resp.Proof.Sources {
			sb.WriteString(fmt.Sprintf("%d. **%s, section %s** (relevance %.2f)\n", i+1, src.Act, src.Section, src.RelevanceScore))
			sb.WriteString(fmt.Sprintf("   > %s\n", utils.Snippet(src.TextSnippet, snippetWidth)))
		}
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("_%s_\n\n", resp.Proof.Reasoning))
	}
	sb.WriteString(fmt.Sprintf("_%s_\n", resp.Disclaimer))
	return sb.String()
}

func citationLabel(c models.Citation) string {
	return fmt.Sprintf("%s, section %s (in force from %s)", c.Act, c.Section, c.EffectiveFrom)
}

// WriteStatus writes a status map as aligned "key: value" lines, sorted by key.
func WriteStatus(w io.Writer, status map[string]interface{}) {
	keys := make([]string, 0, len(status))
	width := 0
	for k := range status {
		keys = append(keys, k)
		if len(k) > width {
			width = len(k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%-*s  %v\n", width+1, k+":", status[k])
	}
}
