package trade

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Signature is the canonical identifier of a cycle, used for deduplication.
// It is the blake2b-256 digest of the cycle's lexicographically-minimal
// rotation string, per spec.md 3 "Cycle Signature".
type Signature [32]byte

// String returns the hex encoding of the signature.
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

// IsZero reports whether the signature was never computed.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// ComputeSignature canonicalizes the given step sequence (owner plus the
// sorted item ids transferred on that step) and hashes the lexicographically
// minimal rotation, so that two discovered cycles describing the same loop
// starting at different owners collapse to the same signature.
func ComputeSignature(steps []CycleStep) Signature {
	rotations := make([]string, len(steps))
	tokens := make([]string, len(steps))
	for i, step := range steps {
		items := make([]string, len(step.Items))
		for j, it := range step.Items {
			items[j] = string(it.ID)
		}
		sort.Strings(items)
		tokens[i] = string(step.From) + "=" + strings.Join(items, ",")
	}
	for start := range tokens {
		rotated := make([]string, len(tokens))
		for i := range tokens {
			rotated[i] = tokens[(start+i)%len(tokens)]
		}
		rotations[start] = strings.Join(rotated, "|")
	}
	sort.Strings(rotations)
	canonical := rotations[0]
	return blake2b.Sum256([]byte(canonical))
}
