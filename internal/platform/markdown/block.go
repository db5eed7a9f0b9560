package markdown

import "strings"

// Block is a generated region of a note delimited by two HTML comments. Text
// outside the markers belongs to the user and is never rewritten.
type Block struct {
	Name string
}

func (b Block) start() string { return "<!-- habitkit:" + b.Name + ":start -->" }
func (b Block) end() string   { return "<!-- habitkit:" + b.Name + ":end -->" }

// Replace swaps the block's content in body, appending the block when body
// does not contain it yet.
func (b Block) Replace(body, content string) string {
	block := b.start() + "\n" + content + "\n" + b.end()
	if i, j, ok := b.bounds(body); ok {
		return body[:i] + block + body[j:]
	}
	switch {
	case strings.TrimSpace(body) == "":
		return block + "\n"
	case strings.HasSuffix(body, "\n"):
		return body + "\n" + block + "\n"
	default:
		return body + "\n\n" + block + "\n"
	}
}

// Content returns what is currently between the markers.
func (b Block) Content(body string) (string, bool) {
	i, j, ok := b.bounds(body)
	if !ok {
		return "", false
	}
	inner := body[i+len(b.start()) : j-len(b.end())]
	return strings.TrimSuffix(strings.TrimPrefix(inner, "\n"), "\n"), true
}

func (b Block) bounds(body string) (int, int, bool) {
	i := strings.Index(body, b.start())
	if i < 0 {
		return 0, 0, false
	}
	k := strings.Index(body[i:], b.end())
	if k < 0 {
		return 0, 0, false
	}
	return i, i + k + len(b.end()), true
}
