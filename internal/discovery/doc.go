// SPDX-License-Identifier: MPL-2.0

// Package discovery resolves configured prompt file locations and lists the
// prompt files they contain.
//
// File organization:
//   - discovery.go: Discovery type, construction options
//   - discovery_locations.go: source location resolution (creation folders, source roots)
//   - discovery_files.go: per-tier file listing
//   - discovery_conventions.go: AGENTS.md, copilot-instructions.md and skill finders
//   - discovery_events.go: the files-updated change source used by caches
//   - diagnostic.go: structured non-fatal diagnostics
package discovery
