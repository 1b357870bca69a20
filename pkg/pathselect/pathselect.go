// Package pathselect picks a path of distinct service nodes from a
// candidate directory, uniformly at random. It is grounded on the
// candidate-filter-then-draw shape of a Tor-style path selector, with
// the weighting dropped in favor of a uniform draw: every valid
// candidate has an equal chance of occupying any position in the
// path.
package pathselect

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/oxen-lsrpc/onion-client/pkg/types"
)

// Select filters candidates down to valid nodes, then draws n
// distinct nodes from them by rejection sampling on uniform random
// indices. rng is the byte source read by each crypto/rand-style
// index draw and is accepted so tests can supply a deterministic
// stream; nil uses crypto/rand.Reader.
//
// The returned slice preserves draw order: element 0 is the entry
// hop, the last element is the terminal hop.
func Select(candidates []types.ServiceNode, n int, rng io.Reader) ([]types.ServiceNode, error) {
	if n <= 0 {
		return nil, &Error{Code: ErrZeroLength}
	}
	if rng == nil {
		rng = rand.Reader
	}

	valid := make([]types.ServiceNode, 0, len(candidates))
	for _, c := range candidates {
		if c.Valid() {
			valid = append(valid, c)
		}
	}

	if len(valid) < n {
		return nil, &Error{Code: ErrInsufficient, Need: n, Got: len(valid)}
	}

	chosen := make([]types.ServiceNode, 0, n)
	taken := make(map[int]bool, n)
	remaining := len(valid)

	for len(chosen) < n {
		idx, err := randIndex(rng, remaining)
		if err != nil {
			return nil, err
		}
		// Map idx, drawn over the shrinking remaining pool, onto the
		// next not-yet-taken slot in valid by skipping taken indices.
		pos := -1
		count := -1
		for i := range valid {
			if taken[i] {
				continue
			}
			count++
			if count == idx {
				pos = i
				break
			}
		}
		taken[pos] = true
		chosen = append(chosen, valid[pos])
		remaining--
	}

	return chosen, nil
}

// randIndex draws a uniform, modulo-bias-free index in [0, n) using
// rejection sampling over rng.
func randIndex(rng io.Reader, n int) (int, error) {
	max := big.NewInt(int64(n))
	v, err := rand.Int(rng, max)
	if err != nil {
		return 0, fmt.Errorf("pathselect: rng read failed: %w", err)
	}
	return int(v.Int64()), nil
}
