// SPDX-License-Identifier: MPL-2.0

package promptfile

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/invowk/promptscan/pkg/uri"
)

const frontMatterFence = "---"

// ErrMalformedHeader is returned when front matter is present but cannot be
// decoded into a mapping.
var ErrMalformedHeader = errors.New("malformed header")

var (
	fileMarkerPattern = regexp.MustCompile(`#file:([^\s\)\]>]+)`)
	toolMarkerPattern = regexp.MustCompile(`#tool:([\w.\-/]+)`)

	markdown = goldmark.New()
)

// ParseError reports a file that could not be parsed.
type ParseError struct {
	URI uri.URI
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URI, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse parses the content of the file identified by u.
func Parse(u uri.URI, content string) (*ParsedFile, error) {
	pf := &ParsedFile{URI: u}

	bodyOffset := 0
	if raw, end, ok := splitFrontMatter(content); ok {
		header, err := decodeHeader(raw)
		if err != nil {
			return nil, &ParseError{URI: u, Err: err}
		}
		pf.Header = header
		bodyOffset = end
	} else if end < 0 {
		return nil, &ParseError{URI: u, Err: fmt.Errorf("%w: missing closing %q", ErrMalformedHeader, frontMatterFence)}
	}

	pf.Body = parseBody(u, content[bodyOffset:], bodyOffset)
	return pf, nil
}

// splitFrontMatter returns the raw YAML and the offset just past the closing
// fence line. ok is false when there is no front matter; end is then 0, or
// -1 when an opening fence has no matching close.
func splitFrontMatter(content string) (raw string, end int, ok bool) {
	first, rest, found := strings.Cut(content, "\n")
	if !found || strings.TrimRight(first, "\r ") != frontMatterFence {
		return "", 0, false
	}
	offset := len(first) + 1
	for rest != "" {
		line, next, more := strings.Cut(rest, "\n")
		if strings.TrimRight(line, "\r ") == frontMatterFence {
			raw = content[len(first)+1 : offset]
			end = offset + len(line)
			if more {
				end++
			}
			return raw, end, true
		}
		offset += len(line) + 1
		if !more {
			break
		}
		rest = next
	}
	return "", -1, false
}

func decodeHeader(raw string) (*Header, error) {
	var attrs map[string]any
	if err := yaml.Unmarshal([]byte(raw), &attrs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}

	h := &Header{Advanced: make(map[string]OptionValue)}
	for key, value := range attrs {
		switch key {
		case "name":
			h.Name = scalarString(value)
		case "description":
			h.Description = scalarString(value)
		case "applyTo":
			h.ApplyTo = scalarString(value)
		case "model":
			h.Model = scalarString(value)
		case "target":
			h.Target = scalarString(value)
		case "argument-hint":
			h.ArgumentHint = scalarString(value)
		case "tools":
			h.Tools = stringList(value)
		case "handoffs":
			h.HandOffs = handOffs(value)
		default:
			if opt, ok := optionValue(value); ok {
				h.Advanced[key] = opt
			}
		}
	}
	return h, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		if opt, ok := optionValue(v); ok {
			return opt.String()
		}
		return ""
	}
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(scalarString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func handOffs(v any) []HandOff {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []HandOff
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		h := HandOff{
			Agent:  scalarString(m["agent"]),
			Label:  scalarString(m["label"]),
			Prompt: scalarString(m["prompt"]),
		}
		if send, ok := m["send"].(bool); ok {
			h.Send = send
		}
		if h.Agent != "" {
			out = append(out, h)
		}
	}
	return out
}

func optionValue(v any) (OptionValue, bool) {
	switch t := v.(type) {
	case string:
		return StringOption(t), true
	case bool:
		return BoolOption(t), true
	case int:
		return NumberOption(float64(t)), true
	case int64:
		return NumberOption(float64(t)), true
	case uint64:
		return NumberOption(float64(t)), true
	case float64:
		return NumberOption(t), true
	default:
		return nil, false
	}
}

func parseBody(u uri.URI, content string, offset int) *Body {
	b := &Body{Offset: offset, Content: content, base: u}

	for _, m := range fileMarkerPattern.FindAllStringSubmatchIndex(content, -1) {
		b.FileReferences = append(b.FileReferences, Reference{
			Text:   content[m[2]:m[3]],
			Offset: offset + m[0],
			Length: m[1] - m[0],
		})
	}
	b.FileReferences = append(b.FileReferences, markdownLinks(content, offset)...)
	sort.SliceStable(b.FileReferences, func(i, j int) bool {
		return b.FileReferences[i].Offset < b.FileReferences[j].Offset
	})

	for _, m := range toolMarkerPattern.FindAllStringSubmatchIndex(content, -1) {
		b.VariableReferences = append(b.VariableReferences, VariableReference{
			Name:   content[m[2]:m[3]],
			Offset: offset + m[0],
		})
	}
	return b
}

// markdownLinks returns the local link destinations of content. goldmark
// does not record destination positions, so each destination is located by
// searching forward from the link text.
func markdownLinks(content string, offset int) []Reference {
	source := []byte(content)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var refs []Reference
	cursor := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		dest := string(link.Destination)
		if dest == "" || strings.HasPrefix(dest, "#") || schemePattern.MatchString(dest) {
			return ast.WalkSkipChildren, nil
		}
		if start := firstTextStart(link); start > cursor {
			cursor = start
		}
		pos := strings.Index(content[cursor:], "("+dest)
		if pos < 0 {
			refs = append(refs, Reference{Text: dest, Offset: offset + cursor, Length: len(dest)})
			return ast.WalkSkipChildren, nil
		}
		at := cursor + pos + 1
		refs = append(refs, Reference{Text: dest, Offset: offset + at, Length: len(dest)})
		cursor = at + len(dest)
		return ast.WalkSkipChildren, nil
	})
	return refs
}

func firstTextStart(n ast.Node) int {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			return t.Segment.Start
		}
		if start := firstTextStart(c); start >= 0 {
			return start
		}
	}
	return -1
}
