// SPDX-License-Identifier: MPL-2.0

// Package prompts is the composition root of the prompt file engine. A
// Service owns the per-category discovery caches, the registry of
// extension-contributed files, the disabled-files sets and the parsed-file
// cache, and derives the custom agent and slash command views from them.
//
// A Service is created once per session and closed with it. Nothing in this
// package keeps process-wide state.
package prompts
