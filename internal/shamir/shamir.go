// Package shamir implements Shamir secret sharing over GF(256).
//
// A secret of L bytes is split into shares of L+1 bytes: the L evaluated
// bytes followed by the share's x-coordinate.  Every byte of the secret gets
// its own random polynomial whose constant term is that byte, so any
// threshold-sized subset of shares reconstructs the secret and fewer reveal
// nothing about it.  The encoding matches other GF(256) implementations that
// use the 0x11b field polynomial and trailing x-coordinates.
package shamir

import (
	"errors"
	"fmt"

	"github.com/seashail/seashail/internal/crypto"
)

const (
	// ShareOverhead is the number of bytes a share adds to the secret.
	ShareOverhead = 1

	maxParts = 255
)

var (
	ErrInvalidThreshold    = errors.New("threshold must be between 2 and the number of parts")
	ErrInvalidParts        = errors.New("parts must be between 2 and 255")
	ErrEmptySecret         = errors.New("secret cannot be empty")
	ErrTooFewShares        = errors.New("fewer shares than the threshold")
	ErrShareLength         = errors.New("shares must be the same length and at least 2 bytes")
	ErrDuplicateCoordinate = errors.New("duplicate share x-coordinate")
	ErrZeroCoordinate      = errors.New("share x-coordinate cannot be zero")
)

// fillRandom is swapped out in tests.
var fillRandom = crypto.FillRandom

// Split divides secret into parts shares, any threshold of which
// reconstruct it.
func Split(secret []byte, parts, threshold int) ([][]byte, error) {
	if parts < 2 || parts > maxParts {
		return nil, ErrInvalidParts
	}
	if threshold < 2 || threshold > parts {
		return nil, ErrInvalidThreshold
	}
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	xs, err := shuffledCoordinates()
	if err != nil {
		return nil, err
	}

	shares := make([][]byte, parts)
	for i := range shares {
		shares[i] = make([]byte, len(secret)+ShareOverhead)
		shares[i][len(secret)] = xs[i]
	}

	coeffs := make([]byte, threshold)
	defer clear(coeffs)
	for idx, b := range secret {
		coeffs[0] = b
		if err := fillRandom(coeffs[1:]); err != nil {
			return nil, fmt.Errorf("failed to generate polynomial: %w", err)
		}
		// x is never zero here: coordinates come from 1..255.
		for i := range shares {
			shares[i][idx] = evaluate(coeffs, xs[i])
		}
	}

	return shares, nil
}

// Combine reconstructs a secret from at least threshold shares produced by
// Split.  Shares with repeated x-coordinates are rejected rather than
// deduplicated.
func Combine(shares [][]byte, threshold int) ([]byte, error) {
	if threshold < 2 {
		return nil, ErrInvalidThreshold
	}
	if len(shares) < threshold {
		return nil, ErrTooFewShares
	}
	if len(shares) > maxParts {
		return nil, ErrInvalidParts
	}

	shareLen := len(shares[0])
	if shareLen < 2 {
		return nil, ErrShareLength
	}

	xs := make([]byte, len(shares))
	seen := make(map[byte]struct{}, len(shares))
	for i, share := range shares {
		if len(share) != shareLen {
			return nil, ErrShareLength
		}
		x := share[shareLen-1]
		if x == 0 {
			return nil, ErrZeroCoordinate
		}
		if _, ok := seen[x]; ok {
			return nil, ErrDuplicateCoordinate
		}
		seen[x] = struct{}{}
		xs[i] = x
	}

	secretLen := shareLen - ShareOverhead
	secret := make([]byte, secretLen)
	ys := make([]byte, len(shares))
	defer clear(ys)
	for idx := 0; idx < secretLen; idx++ {
		for i, share := range shares {
			ys[i] = share[idx]
		}
		secret[idx] = interpolateAtZero(xs, ys)
	}

	return secret, nil
}

// shuffledCoordinates returns 1..255 in random order.
func shuffledCoordinates() ([]byte, error) {
	xs := make([]byte, maxParts)
	for i := range xs {
		xs[i] = byte(i + 1)
	}
	for i := len(xs) - 1; i > 0; i-- {
		j, err := uniformIndex(i + 1)
		if err != nil {
			return nil, err
		}
		xs[i], xs[j] = xs[j], xs[i]
	}
	return xs, nil
}

// uniformIndex returns a uniform integer in [0, n) for n <= 256 using
// rejection sampling over single random bytes.
func uniformIndex(n int) (int, error) {
	limit := 256 - 256%n
	var b [1]byte
	for {
		if err := fillRandom(b[:]); err != nil {
			return 0, fmt.Errorf("failed to shuffle coordinates: %w", err)
		}
		if int(b[0]) < limit {
			return int(b[0]) % n, nil
		}
	}
}
