// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fixture helpers that fail the test on error, so
// test bodies stay focused on behavior: writing capture and script files,
// and pointing the platform home directory at a temporary location.
package testutil
