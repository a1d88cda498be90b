package bundle

import (
	"errors"
	"testing"
)

func TestCanonicalizeSortsWithoutMutating(t *testing.T) {
	input := []uint64{9, 3, 7}
	sorted, err := Canonicalize(input)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if sorted[0] != 3 || sorted[1] != 7 || sorted[2] != 9 {
		t.Fatalf("expected sorted copy, got %v", sorted)
	}
	if input[0] != 9 || input[1] != 3 || input[2] != 7 {
		t.Fatalf("input slice mutated: %v", input)
	}
}

func TestCanonicalizeRejectsInvalidSets(t *testing.T) {
	if _, err := Canonicalize(nil); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected invalid bundle for empty set, got %v", err)
	}
	if _, err := Canonicalize([]uint64{4, 2, 4}); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected invalid bundle for duplicate, got %v", err)
	}
}

func TestHashOrderIndependent(t *testing.T) {
	a, err := Hash([]uint64{1, 2, 3})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := Hash([]uint64{3, 1, 2})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a != b {
		t.Fatalf("expected identical hashes for reordered bundle")
	}
	c, err := Hash([]uint64{1, 2, 4})
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == c {
		t.Fatalf("expected distinct hashes for distinct bundles")
	}
}

func TestHashRejectsInvalidBundle(t *testing.T) {
	if _, err := Hash([]uint64{}); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected invalid bundle, got %v", err)
	}
}

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b []uint64
		want bool
	}{
		{"same order", []uint64{1, 2}, []uint64{1, 2}, true},
		{"reordered", []uint64{2, 1}, []uint64{1, 2}, true},
		{"different length", []uint64{1}, []uint64{1, 2}, false},
		{"different ids", []uint64{1, 3}, []uint64{1, 2}, false},
		{"invalid left", []uint64{1, 1}, []uint64{1, 1}, false},
		{"both empty", nil, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.want {
				t.Fatalf("Equal(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
