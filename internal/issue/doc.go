// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for the harvest CLI: what failed,
// on which file, and what the user can do about it.
package issue
