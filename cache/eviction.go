package cache

import "github.com/IvanBrykalov/respcache/policy"

// evictLocked makes room for a write that grows the cache by delta bytes.
//
// Expired entries go first; they count as expirations. If the cache is still
// over budget, the live entries (except skip, the key being written) are
// ranked by the policy and the lowest-ranked fraction of them is removed in
// a single pass. The pass is not repeated, so one oversized value can leave
// the cache above its budget.
func (s *store) evictLocked(skip string, delta int64, now int64) []removal {
	removed := s.expireLocked(skip, now)
	if s.totalSize+delta <= s.maxBytes {
		return removed
	}

	cands := make([]*entry, 0, len(s.m))
	for k, e := range s.m {
		if k != skip {
			cands = append(cands, e)
		}
	}
	for _, v := range policy.Victims(s.pol, cands, s.fraction) {
		s.removeLocked(v)
		s.evictions++
		removed = append(removed, removal{key: v.key, reason: EvictCapacity})
	}
	return removed
}
