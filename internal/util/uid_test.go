package util

import (
	"strings"
	"testing"
)

func checkUIDFormat(t *testing.T, uid string) {
	t.Helper()

	if len(uid) > 64 {
		t.Errorf("UID too long: %d chars (max 64): %s", len(uid), uid)
	}
	for _, c := range uid {
		if c != '.' && (c < '0' || c > '9') {
			t.Errorf("UID contains invalid character '%c': %s", c, uid)
			break
		}
	}
	for i, part := range strings.Split(uid, ".") {
		if part == "" {
			t.Errorf("component %d is empty in UID: %s", i, uid)
		}
		if len(part) > 1 && part[0] == '0' {
			t.Errorf("component %d has leading zero: %s in UID: %s", i, part, uid)
		}
	}
}

func TestGenerateDeterministicUID(t *testing.T) {
	seeds := []string{
		"test",
		"this_is_a_very_long_seed_string_for_testing_uid_generation",
		"42_study",
		"42_series",
		"test/path/to/output",
	}

	seen := make(map[string]string)
	for _, seed := range seeds {
		uid := GenerateDeterministicUID(seed)

		if !strings.HasPrefix(uid, UIDRoot+".") {
			t.Errorf("UID should start with %s., got: %s", UIDRoot, uid)
		}
		checkUIDFormat(t, uid)

		if again := GenerateDeterministicUID(seed); again != uid {
			t.Errorf("seed %q produced different UIDs: %s vs %s", seed, uid, again)
		}
		if other, exists := seen[uid]; exists {
			t.Errorf("seeds %q and %q produced same UID: %s", seed, other, uid)
		}
		seen[uid] = seed
	}
}

func TestNewUID(t *testing.T) {
	a := NewUID()
	b := NewUID()

	if !strings.HasPrefix(a, "2.25.") {
		t.Errorf("random UID should be under 2.25, got: %s", a)
	}
	checkUIDFormat(t, a)

	if a == b {
		t.Errorf("two random UIDs should differ, both were %s", a)
	}
}

func TestUIDSource(t *testing.T) {
	seeded := NewUIDSource(42)
	if !seeded.Deterministic() {
		t.Error("seeded source should be deterministic")
	}
	if seeded.UID("study") != NewUIDSource(42).UID("study") {
		t.Error("same seed and label should give the same UID")
	}
	if seeded.UID("study") == seeded.UID("series") {
		t.Error("different labels should give different UIDs")
	}
	if seeded.UID("study") == NewUIDSource(43).UID("study") {
		t.Error("different seeds should give different UIDs")
	}

	random := NewUIDSource(0)
	if random.Deterministic() {
		t.Error("zero seed should give random UIDs")
	}
	if random.UID("study") == random.UID("study") {
		t.Error("random source should not repeat UIDs")
	}
}
