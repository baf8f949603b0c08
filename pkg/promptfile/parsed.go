// SPDX-License-Identifier: MPL-2.0

package promptfile

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/invowk/promptscan/pkg/uri"
)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

type (
	// ParsedFile is the parsed content of one prompt file. Header is nil when
	// the file has no front matter.
	ParsedFile struct {
		URI    uri.URI
		Header *Header
		Body   *Body
	}

	// Header holds the front-matter attributes.
	Header struct {
		Name         string
		Description  string
		ApplyTo      string
		Model        string
		Target       string
		ArgumentHint string
		Tools        []string
		HandOffs     []HandOff
		// Advanced holds every other primitive-valued attribute by name.
		Advanced map[string]OptionValue
	}

	// HandOff is a suggested transition to another agent.
	HandOff struct {
		Agent  string
		Label  string
		Prompt string
		Send   bool
	}

	// OptionValue is a string, number or boolean header value.
	OptionValue interface {
		isOptionValue()
		String() string
	}

	// StringOption is a string-valued advanced option.
	StringOption string
	// NumberOption is a number-valued advanced option.
	NumberOption float64
	// BoolOption is a boolean-valued advanced option.
	BoolOption bool

	// Reference is a file reference found in a body. Offset is the byte
	// offset of the reference token within the whole file.
	Reference struct {
		Text   string
		Offset int
		Length int
	}

	// VariableReference is a `#tool:<name>` marker. Offset is the byte offset
	// of the leading '#' within the whole file.
	VariableReference struct {
		Name   string
		Offset int
	}

	// Body is the content following the front matter.
	Body struct {
		// Offset is the byte offset of Content within the file.
		Offset             int
		Content            string
		FileReferences     []Reference
		VariableReferences []VariableReference

		base uri.URI
	}
)

func (StringOption) isOptionValue() {}
func (NumberOption) isOptionValue() {}
func (BoolOption) isOptionValue()   {}

func (o StringOption) String() string { return string(o) }
func (o NumberOption) String() string { return strconv.FormatFloat(float64(o), 'g', -1, 64) }
func (o BoolOption) String() string   { return strconv.FormatBool(bool(o)) }

// ApplyToPatterns splits ApplyTo on commas and drops empty entries.
func (h *Header) ApplyToPatterns() []string {
	if h == nil || h.ApplyTo == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(h.ApplyTo, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ResolveReference turns a reference's raw text into an absolute URI
// relative to the file that contains the body. ok is false for references
// that point at a non-file resource (for example an http link).
func (b *Body) ResolveReference(text string) (u uri.URI, ok bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(strings.TrimSuffix(text, ">"), "<")
	if i := strings.IndexAny(text, "#?"); i >= 0 {
		text = text[:i]
	}
	if text == "" {
		return uri.URI{}, false
	}
	if schemePattern.MatchString(text) {
		parsed, err := uri.Parse(text)
		if err != nil || parsed.Scheme != uri.SchemeFile {
			return uri.URI{}, false
		}
		return parsed.WithAuthority(b.base.Authority), true
	}
	if unescaped, err := url.PathUnescape(text); err == nil {
		text = unescaped
	}
	if strings.HasPrefix(text, "/") {
		out := b.base
		out.Path = "/"
		return out.JoinPath(text), true
	}
	return b.base.Dir().JoinPath(text), true
}
