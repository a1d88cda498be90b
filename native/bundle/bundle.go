package bundle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidBundle indicates an empty or duplicate-bearing asset-id set.
var ErrInvalidBundle = errors.New("bundle: invalid asset id set")

// Canonicalize validates the asset-id set and returns a sorted copy. The input
// slice is never mutated; the listing keeps its original ordering for display.
func Canonicalize(assetIDs []uint64) ([]uint64, error) {
	if len(assetIDs) == 0 {
		return nil, fmt.Errorf("%w: empty bundle", ErrInvalidBundle)
	}
	sorted := make([]uint64, len(assetIDs))
	copy(sorted, assetIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return nil, fmt.Errorf("%w: duplicate asset id %d", ErrInvalidBundle, sorted[i])
		}
	}
	return sorted, nil
}

// Hash canonicalizes the asset-id set and produces its fixed-length identity
// hash. Two bundles hash identically iff they contain the same ids, regardless
// of input order. The hash accelerates index lookups; callers re-check full
// id-list equality after resolving through it.
func Hash(assetIDs []uint64) ([32]byte, error) {
	sorted, err := Canonicalize(assetIDs)
	if err != nil {
		return [32]byte{}, err
	}
	buf := make([]byte, 8*len(sorted))
	for i, id := range sorted {
		binary.BigEndian.PutUint64(buf[i*8:], id)
	}
	return ethcrypto.Keccak256Hash(buf), nil
}

// Equal reports whether two asset-id sets contain exactly the same ids. Both
// sets must be valid bundles; invalid input reports false.
func Equal(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA, err := Canonicalize(a)
	if err != nil {
		return false
	}
	sortedB, err := Canonicalize(b)
	if err != nil {
		return false
	}
	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}
