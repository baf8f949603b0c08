// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include environment variable management (MustSetenv,
// SetHomeDir), in-memory workspace seeding (WriteFiles) and a call-counting
// filesystem decorator (CountingFS) for cache-hit assertions.
package testutil
