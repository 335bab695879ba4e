package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix lets
// the hashing scheme evolve without colliding with IDs computed by an
// older build.
const (
	DomainOpGraph = "workflow/op-graph/v1"
	DomainTask    = "workflow/task/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OpGraphHash computes a content-addressed identity for a coalesced op
// graph from its canonical encoding. Two structurally equal graphs hash
// equal; the plan cache keys on this, and it is the concrete mechanism
// behind the determinism property (crush(finalize(finish(w))) is pure).
//
// v is whatever MarshalCanonical accepts — an IRValue, or the plain
// map[string]any tree render.Tree produces — so planstore can hash a
// rendered op graph directly without converting it to an IRValue first.
func OpGraphHash(v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash op graph: %w", err)
	}
	return hashWithDomain(DomainOpGraph, data), nil
}

// TaskHash computes a content-addressed identity for a crushed task tree
// from its canonical encoding. Used to detect whether two plans crushed to
// byte-identical executable tasks.
func TaskHash(v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash task: %w", err)
	}
	return hashWithDomain(DomainTask, data), nil
}

// MustOpGraphHash is like OpGraphHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustOpGraphHash(v any) string {
	h, err := OpGraphHash(v)
	if err != nil {
		panic(err)
	}
	return h
}
