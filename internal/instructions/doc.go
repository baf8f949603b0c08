// SPDX-License-Identifier: MPL-2.0

// Package instructions decides which instruction files apply to a working
// set of files. It matches applyTo globs against the attached files, adds
// the workspace convention files (copilot-instructions.md and AGENTS.md),
// follows file references transitively and builds an on-demand listing of
// everything that was discovered but not attached.
package instructions
