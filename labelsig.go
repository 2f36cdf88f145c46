package openmetrics

import (
	"hash/fnv"
	"hash/maphash"
	"sort"
)

// seed is fixed once per process so that two calls to labelSignature
// on the same label set within (or across) a Parse call always agree;
// a fresh maphash.Seed per call would make identical label sets hash
// differently from one sample to the next.
var seed = maphash.MakeSeed()

// labelSignature computes a signature of a label set, used only to
// gate the optional NoInterleaveMetric and EnforceTimestampMonotonic
// checks. It is never part of a parse result, so it does not need to
// be stable across processes — only within one Parse call.
//
// Keys are always sorted before hashing, regardless of NaiveLabelHash:
// Go's map iteration order is randomized per range, not per map, so
// deriving key order from "for k := range labels" would make two
// calls on an identical label set disagree from one sample to the
// next, silently defeating the interleave/monotonic checks.
// NaiveLabelHash is a no-op here for that reason; HashFNV is the only
// switch that actually changes which hash algorithm mixes the sorted
// keys in.
func labelSignature(labels map[string]string, opts Options) uint64 {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if opts.HashFNV {
		h := fnv.New64a()
		for _, k := range keys {
			h.Write([]byte(k))
			h.Write([]byte{0})
			h.Write([]byte(labels[k]))
			h.Write([]byte{0})
		}
		return h.Sum64()
	}

	var h maphash.Hash
	h.SetSeed(seed)
	for _, k := range keys {
		h.WriteString(k)
		h.WriteByte(0)
		h.WriteString(labels[k])
		h.WriteByte(0)
	}
	return h.Sum64()
}
