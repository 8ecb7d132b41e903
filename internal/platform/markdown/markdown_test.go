package markdown

import (
	"strings"
	"testing"
)

func TestNoteRoundTripKeepsBody(t *testing.T) {
	t.Parallel()
	note := Note{Meta: map[string]any{"id": "abc", "dosage_mg": 100}, Body: "# Session\n\ntext\n"}
	rendered, err := note.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	parsed, err := Parse(rendered)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Meta["id"] != "abc" || parsed.Meta["dosage_mg"] != 100 || parsed.Body != note.Body {
		t.Fatalf("unexpected note: %+v", parsed)
	}
}

func TestParseWithoutHeaderAndUnclosedHeader(t *testing.T) {
	t.Parallel()
	note, err := Parse("plain body\n")
	if err != nil || len(note.Meta) != 0 || note.Body != "plain body\n" {
		t.Fatalf("unexpected plain parse: %+v %v", note, err)
	}
	if _, err := Parse("---\nid: x\nno close\n"); err == nil {
		t.Fatalf("expected error for unclosed header")
	}
}

func TestBlockReplaceAndExtract(t *testing.T) {
	t.Parallel()
	block := Block{Owner: "companion", Name: "follow-up"}
	body := block.Replace("intro\n", "first")
	if got, ok := block.Extract(body); !ok || got != "first" {
		t.Fatalf("extract after append = %q %v", got, ok)
	}
	body = block.Replace(body+"\noutro\n", "second")
	if got, _ := block.Extract(body); got != "second" {
		t.Fatalf("extract after replace = %q", got)
	}
	if !strings.HasPrefix(body, "intro\n") || !strings.HasSuffix(body, "outro\n") {
		t.Fatalf("surrounding text changed:\n%s", body)
	}
	if strings.Count(body, ":start -->") != 1 {
		t.Fatalf("block duplicated:\n%s", body)
	}
	if _, ok := (Block{Owner: "companion", Name: "other"}).Extract(body); ok {
		t.Fatalf("unrelated block must not match")
	}
}
