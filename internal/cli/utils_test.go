package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/nyaya/internal/models"
)

func answered() *models.AskResponse {
	return &models.AskResponse{
		Answer:     "Theft is punishable with imprisonment of up to three years.",
		Citations:  []models.Citation{{Act: "BNS", Section: "303", EffectiveFrom: "2024-07-01"}},
		Confidence: 0.71,
		Disclaimer: models.Disclaimer,
		Proof: &models.Proof{
			Sources: []models.ProofSource{
				{Act: "BNS", Section: "303", TextSnippet: "Whoever commits theft shall be punished", RelevanceScore: 0.6123},
			},
			Reasoning: "Grounded in 1 retrieved passage(s)",
		},
	}
}

func refused() *models.AskResponse {
	return &models.AskResponse{
		Answer:     "No relevant law found.",
		Citations:  []models.Citation{},
		Disclaimer: models.Disclaimer,
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answered(), OutputJSON); err != nil {
		t.Fatalf("WriteAnswer(json): %v", err)
	}
	var decoded models.AskResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Confidence != 0.71 || len(decoded.Citations) != 1 || decoded.Proof == nil {
		t.Errorf("decoded: got %+v", decoded)
	}
}

func TestWriteAnswer_JSON_refusal(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, refused(), OutputJSON); err != nil {
		t.Fatalf("WriteAnswer(json): %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"proof": null`) {
		t.Errorf("refusal should carry a null proof:\n%s", out)
	}
	if !strings.Contains(out, `"citations": []`) {
		t.Errorf("refusal should carry empty citations:\n%s", out)
	}
}

func TestWriteAnswer_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answered(), OutputText); err != nil {
		t.Fatalf("WriteAnswer(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"three years", "Confidence: 0.71", "BNS, section 303 (in force from 2024-07-01)", "Relevance: 0.6123", "Grounded in 1", models.Disclaimer} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteAnswer_text_refusal(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, refused(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "Citations:") || strings.Contains(out, "Sources") {
		t.Errorf("refusal should not list evidence:\n%s", out)
	}
	if !strings.Contains(out, "No relevant law found.") || !strings.Contains(out, models.Disclaimer) {
		t.Errorf("unexpected refusal output:\n%s", out)
	}
}

func TestWriteAnswer_unknownFormatTreatedAsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, answered(), OutputFormat("unknown")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Confidence:") {
		t.Errorf("unknown format should fall back to text; got %q", buf.String())
	}
}

func TestFormatMarkdown(t *testing.T) {
	out := FormatMarkdown(answered())
	for _, sub := range []string{"**Confidence:** 0.71", "### Citations", "1. **BNS, section 303** (relevance 0.61)", "> Whoever commits theft"} {
		if !strings.Contains(out, sub) {
			t.Errorf("markdown missing %q:\n%s", sub, out)
		}
	}
	if strings.Contains(FormatMarkdown(refused()), "### Sources") {
		t.Error("refusal markdown should not have sources")
	}
}

func TestWriteStatus(t *testing.T) {
	var buf bytes.Buffer
	WriteStatus(&buf, map[string]interface{}{"passages": 12, "backend": "local"})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "backend:") || !strings.HasSuffix(lines[0], "local") {
		t.Errorf("first line: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "12") {
		t.Errorf("second line: %q", lines[1])
	}
}
