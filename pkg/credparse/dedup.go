// SPDX-License-Identifier: MPL-2.0

package credparse

// Dedup drops records whose identity key was already seen, keeping the first
// occurrence and the original order. Host and SID do not take part in the
// comparison.
func Dedup(batch Batch) Batch {
	if batch == nil {
		return nil
	}
	seen := make(map[Key]struct{}, len(batch))
	out := make(Batch, 0, len(batch))
	for _, r := range batch {
		k := r.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
