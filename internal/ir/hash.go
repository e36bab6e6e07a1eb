package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the algorithm to change without collisions.
const (
	DomainParameters = "ambit/parameters/v1"
	DomainPlan       = "ambit/plan/v1"
	DomainState      = "ambit/state/v1"
)

// ShortLen is the number of hex characters kept by Short.
const ShortLen = 12

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
// The null separator removes domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ParametersFingerprint identifies the physical parameters of one run.
// Two runs with equal fingerprints build identical atoms.
func ParametersFingerprint(params Object) (string, error) {
	canonical, err := MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("ParametersFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainParameters, canonical), nil
}

// PlanFingerprint identifies a whole sweep plan (run count and every run's
// masked values).
func PlanFingerprint(plan Object) (string, error) {
	canonical, err := MarshalCanonical(plan)
	if err != nil {
		return "", fmt.Errorf("PlanFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPlan, canonical), nil
}

// StateDigest identifies a stored atom state document.
func StateDigest(state Object) (string, error) {
	canonical, err := MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("StateDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// Short truncates a fingerprint for use in identifiers.
func Short(fingerprint string) string {
	if len(fingerprint) <= ShortLen {
		return fingerprint
	}
	return fingerprint[:ShortLen]
}
