package fairness

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Side is one of the two faces of the coin.
type Side string

const (
	SideHeads Side = "heads"
	SideTails Side = "tails"
)

// ParseSide validates a player-supplied side choice.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideHeads:
		return SideHeads, nil
	case SideTails:
		return SideTails, nil
	default:
		return "", fmt.Errorf("invalid side: %q", s)
	}
}

// GenerateSeed returns a fresh 256-bit random seed as a hex string.
func GenerateSeed() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate seed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashSeed returns the SHA-256 commitment for a seed.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// Combine hashes the concatenation of the client and server seeds.
// The combined hash is what the outcome is derived from, so neither
// side alone controls the result.
func Combine(clientSeed, serverSeed string) string {
	sum := sha256.Sum256([]byte(clientSeed + serverSeed))
	return hex.EncodeToString(sum[:])
}

// OutcomeFromHash maps a combined hash to a side: the first byte of the
// hash interpreted as an integer, even is heads, odd is tails. Anyone
// holding both revealed seeds can recompute this exactly.
func OutcomeFromHash(combinedHash string) (Side, error) {
	if len(combinedHash) < 2 {
		return "", fmt.Errorf("combined hash too short: %q", combinedHash)
	}
	b, err := hex.DecodeString(combinedHash[:2])
	if err != nil {
		return "", fmt.Errorf("combined hash is not hex: %w", err)
	}
	if b[0]%2 == 0 {
		return SideHeads, nil
	}
	return SideTails, nil
}

// VerificationResult reports the outcome of a third-party fairness check.
// When Valid is false, Mismatch names the first step that failed.
type VerificationResult struct {
	Valid    bool   `json:"valid"`
	Mismatch string `json:"mismatch,omitempty"`
}

// Verify recomputes every step of the commit-reveal scheme from the
// revealed seeds and flags the first mismatch. It is intended for public
// auditability; payouts are committed at claim time and never re-gated
// on this check.
func Verify(clientSeed, clientSeedHash, serverSeed, serverSeedHash, combinedHash string, claimedOutcome Side) VerificationResult {
	if HashSeed(clientSeed) != clientSeedHash {
		return VerificationResult{Mismatch: "client seed does not match its commitment"}
	}
	if HashSeed(serverSeed) != serverSeedHash {
		return VerificationResult{Mismatch: "server seed does not match its commitment"}
	}
	if Combine(clientSeed, serverSeed) != combinedHash {
		return VerificationResult{Mismatch: "combined hash does not match the seeds"}
	}
	outcome, err := OutcomeFromHash(combinedHash)
	if err != nil {
		return VerificationResult{Mismatch: "combined hash is malformed"}
	}
	if outcome != claimedOutcome {
		return VerificationResult{Mismatch: "derived outcome does not match the claimed outcome"}
	}
	return VerificationResult{Valid: true}
}
