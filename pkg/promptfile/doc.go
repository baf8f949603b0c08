// SPDX-License-Identifier: MPL-2.0

// Package promptfile defines the data model shared by the promptscan engine:
// file categories, storage tiers, descriptors of discovered files, and the
// parsed representation of a single instruction, prompt or agent file.
//
// The default parser reads YAML front matter with gopkg.in/yaml.v3 and
// extracts body references from markdown links (via goldmark) and from
// inline `#file:` and `#tool:` markers.
package promptfile
