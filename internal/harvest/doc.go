// SPDX-License-Identifier: MPL-2.0

// Package harvest wires the script minimizer and the credential extractor to
// files, configuration and output for the CLI.
//
// A Session extracts credentials from many capture files concurrently and
// remembers what it has already reported, so repeated captures of the same
// host (for example in watch mode) only surface new credentials.
package harvest
