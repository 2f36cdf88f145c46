package openmetrics

import "testing"

func TestLabelSignatureOrderIndependent(t *testing.T) {
	a := map[string]string{"b": "2", "a": "1"}
	b := map[string]string{"a": "1", "b": "2"}

	opts := DefaultOptions()
	if labelSignature(a, opts) != labelSignature(b, opts) {
		t.Errorf("labelSignature should not depend on map iteration order when NaiveLabelHash is off")
	}
}

func TestLabelSignatureStableAcrossCalls(t *testing.T) {
	labels := map[string]string{"job": "api", "instance": "1.2.3.4:9090"}
	opts := DefaultOptions()

	first := labelSignature(labels, opts)
	second := labelSignature(labels, opts)
	if first != second {
		t.Errorf("labelSignature(%v) = %d then %d, want a stable signature across calls", labels, first, second)
	}
}

func TestLabelSignatureDistinguishesLabelSets(t *testing.T) {
	opts := DefaultOptions()
	s1 := labelSignature(map[string]string{"a": "1"}, opts)
	s2 := labelSignature(map[string]string{"a": "2"}, opts)
	if s1 == s2 {
		t.Errorf("labelSignature collided for distinct label sets %d", s1)
	}
}

func TestLabelSignatureHashFNVDiffersFromDefault(t *testing.T) {
	labels := map[string]string{"a": "1", "b": "2"}

	withDefault := labelSignature(labels, DefaultOptions())
	withFNV := labelSignature(labels, Options{HashFNV: true})

	if withDefault == withFNV {
		t.Errorf("HashFNV should select a different signature scheme than the default")
	}
}

func TestLabelSignatureNaiveLabelHashIsANoOp(t *testing.T) {
	// NaiveLabelHash is accepted for config-schema compatibility but
	// must not change the (always sorted) key order Go's randomized
	// map ranges would otherwise make non-deterministic; see
	// DESIGN.md and the Options.NaiveLabelHash doc comment.
	labels := map[string]string{"b": "2", "a": "1", "c": "3"}
	withNaive := labelSignature(labels, Options{NaiveLabelHash: true})
	withSorted := labelSignature(labels, Options{NaiveLabelHash: false})
	if withNaive != withSorted {
		t.Errorf("NaiveLabelHash changed the signature: %d (naive) vs %d (sorted)", withNaive, withSorted)
	}
}
