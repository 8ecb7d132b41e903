package markdown

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// Note is a markdown document with an optional yaml header.
type Note struct {
	Meta map[string]any
	Body string
}

// Parse splits content into header and body. Content without a header
// parses into an empty Meta and the whole content as Body.
func Parse(content string) (Note, error) {
	head, rest, ok := strings.Cut(content, fence+"\n")
	if !ok || head != "" {
		return Note{Meta: map[string]any{}, Body: content}, nil
	}
	raw, body, ok := strings.Cut(rest, "\n"+fence+"\n")
	if !ok {
		return Note{}, fmt.Errorf("parse note: header is not closed")
	}
	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(raw), &meta); err != nil {
		return Note{}, fmt.Errorf("parse note header: %w", err)
	}
	return Note{Meta: meta, Body: strings.TrimPrefix(body, "\n")}, nil
}

func (n Note) Render() (string, error) {
	var b strings.Builder
	b.WriteString(fence + "\n")
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(n.Meta); err != nil {
		return "", fmt.Errorf("render note header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("render note header: %w", err)
	}
	b.WriteString(fence + "\n\n")
	b.WriteString(n.Body)
	return b.String(), nil
}
