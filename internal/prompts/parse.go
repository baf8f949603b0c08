// SPDX-License-Identifier: MPL-2.0

package prompts

import (
	"context"
	"fmt"

	"github.com/invowk/promptscan/pkg/promptfile"
	"github.com/invowk/promptscan/pkg/uri"
)

// ParseNew parses the file at u. Open documents are parsed from their
// in-memory content and the result is reused until the document version
// advances; files on disk are read and parsed on every call.
func (s *Service) ParseNew(ctx context.Context, u uri.URI) (*promptfile.ParsedFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc, open := s.docs.Get(u); open {
		if e, ok := s.parsed.Get(u); ok && e.version >= doc.Version {
			return e.file, nil
		}
		pf, err := promptfile.Parse(u, doc.Content)
		if err != nil {
			return nil, err
		}
		s.parsed.Add(u, parsedEntry{version: doc.Version, file: pf})
		return pf, nil
	}

	b, err := s.fs.ReadFile(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u, err)
	}
	return promptfile.Parse(u, string(b))
}
