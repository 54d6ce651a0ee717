package util

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// UIDRoot is the implementation root used for deterministic UIDs.
const UIDRoot = "1.2.826.0.1.3680043.8.498"

// ImplementationClassUID identifies the writer in the file meta header.
const ImplementationClassUID = UIDRoot

// uidNamespace scopes name-based UUIDs so that equal seeds in other tools
// do not collide with ours.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte(UIDRoot))

// NewUID returns a random DICOM UID in the 2.25 arc (UUID-derived).
func NewUID() string {
	u := uuid.New()
	return uuidToUID("2.25", u[:])
}

// GenerateDeterministicUID returns a UID that only depends on seed.
// The same seed always yields the same UID.
func GenerateDeterministicUID(seed string) string {
	u := uuid.NewSHA1(uidNamespace, []byte(seed))
	// 120 bits (37 digits) keep root + suffix within 64 chars
	return uuidToUID(UIDRoot, u[1:])
}

// uuidToUID renders b as a decimal integer below root.
func uuidToUID(root string, b []byte) string {
	n := new(big.Int).SetBytes(b)
	return root + "." + n.String()
}

// UIDSource hands out the UIDs of one run.
// With a non-zero seed every UID is derived from the seed and a label, so
// reruns reproduce the same identifiers.
type UIDSource struct {
	seed int64
}

// NewUIDSource returns a UID source for seed (0 = random UIDs).
func NewUIDSource(seed int64) *UIDSource {
	return &UIDSource{seed: seed}
}

// UID returns the UID for label.
func (s *UIDSource) UID(label string) string {
	if s.seed == 0 {
		return NewUID()
	}
	return GenerateDeterministicUID(fmt.Sprintf("%d_%s", s.seed, label))
}

// Deterministic reports whether UIDs are derived from a seed.
func (s *UIDSource) Deterministic() bool {
	return s.seed != 0
}
