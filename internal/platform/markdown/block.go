package markdown

import "strings"

// Block is a generated region of a note, delimited by html comments, that
// can be rewritten without touching the surrounding text.
type Block struct {
	Owner string
	Name  string
}

func (b Block) open() string  { return "<!-- " + b.Owner + ":" + b.Name + ":start -->" }
func (b Block) close() string { return "<!-- " + b.Owner + ":" + b.Name + ":end -->" }

func (b Block) span(body string) (int, int, bool) {
	start := strings.Index(body, b.open())
	if start < 0 {
		return 0, 0, false
	}
	end := strings.Index(body[start:], b.close())
	if end < 0 {
		return 0, 0, false
	}
	return start, start + end + len(b.close()), true
}

// Extract returns the generated text currently inside the block.
func (b Block) Extract(body string) (string, bool) {
	start, end, ok := b.span(body)
	if !ok {
		return "", false
	}
	inner := body[start+len(b.open()) : end-len(b.close())]
	return strings.Trim(inner, "\n"), true
}

// Replace swaps the block content for generated, appending the block when
// body does not have one yet.
func (b Block) Replace(body, generated string) string {
	block := b.open() + "\n" + generated + "\n" + b.close()
	if start, end, ok := b.span(body); ok {
		return body[:start] + block + body[end:]
	}
	switch {
	case strings.TrimSpace(body) == "":
		return block + "\n"
	case strings.HasSuffix(body, "\n\n"):
		return body + block + "\n"
	case strings.HasSuffix(body, "\n"):
		return body + "\n" + block + "\n"
	default:
		return body + "\n\n" + block + "\n"
	}
}
