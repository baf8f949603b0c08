// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the promptscan inspection CLI.
package cmd
