package models

import "fmt"

// Identity is a player identity: a wallet address, a Farcaster ID, or
// both. When both are present the FID is the preferred key, matching the
// unified-identity contract of the linking subsystem.
type Identity struct {
	WalletAddress *string
	FID           *int64
}

// Valid reports whether at least one identity component is present.
func (id Identity) Valid() bool {
	return (id.WalletAddress != nil && *id.WalletAddress != "") || id.FID != nil
}

// Key returns the canonical identity key used for quota accounting,
// bonus grants and sweepstakes entries.
func (id Identity) Key() string {
	if id.FID != nil {
		return fmt.Sprintf("fid:%d", *id.FID)
	}
	if id.WalletAddress != nil {
		return "wallet:" + *id.WalletAddress
	}
	return ""
}

// DisplayName is the best-effort human-readable label for the identity.
func (id Identity) DisplayName() string {
	if id.FID != nil {
		return fmt.Sprintf("fid:%d", *id.FID)
	}
	if id.WalletAddress != nil {
		w := *id.WalletAddress
		if len(w) > 10 {
			return w[:4] + "..." + w[len(w)-4:]
		}
		return w
	}
	return ""
}
