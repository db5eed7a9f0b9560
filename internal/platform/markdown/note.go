// Package markdown reads and writes Markdown notes carrying YAML
// frontmatter and generated blocks.
package markdown

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---"

// Note is a Markdown document split into frontmatter and body.
type Note struct {
	Meta map[string]any
	Body string
}

// Parse splits content into a Note. Content without an opening fence is all
// body.
func Parse(content string) (Note, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, fence+"\n") {
		return Note{Meta: map[string]any{}, Body: content}, nil
	}
	rest := content[len(fence)+1:]
	raw, body, ok := strings.Cut(rest, "\n"+fence+"\n")
	if !ok {
		if !strings.HasSuffix(rest, "\n"+fence) {
			return Note{}, fmt.Errorf("frontmatter is not closed")
		}
		raw, body = strings.TrimSuffix(rest, "\n"+fence), ""
	}
	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(raw), &meta); err != nil {
		return Note{}, fmt.Errorf("decode frontmatter: %w", err)
	}
	return Note{Meta: meta, Body: body}, nil
}

// Render writes the note back out with a blank line after the frontmatter.
func (n Note) Render() (string, error) {
	var b strings.Builder
	if len(n.Meta) > 0 {
		raw, err := yaml.Marshal(n.Meta)
		if err != nil {
			return "", fmt.Errorf("encode frontmatter: %w", err)
		}
		b.WriteString(fence + "\n")
		b.Write(raw)
		b.WriteString(fence + "\n")
		if !strings.HasPrefix(n.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString(n.Body)
	return b.String(), nil
}
