// SPDX-License-Identifier: MPL-2.0

// Package credparse extracts credential records from captured tool output.
//
// Extract recognizes three kinds of output by their leading marker:
//
//   - credential dumps that open with a "Hostname:" banner (logonpasswords,
//     lsadump and dcsync output);
//   - prompted-credential output opening with "[+] Prompted credentials:";
//   - captured dialog output containing "text returned:".
//
// Anything else yields an empty batch. Extraction never fails: malformed input
// produces whatever records could be recovered, with warnings describing what
// was skipped.
//
// Records from one input are deduplicated on (kind, domain, username, secret),
// keeping the first occurrence.
package credparse
