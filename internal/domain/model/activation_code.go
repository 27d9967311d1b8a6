package model

import (
	"time"

	"activation-gateway/internal/domain"
)

// PolicyKind selects how many times a code may be redeemed.
type PolicyKind string

const (
	PolicySingleUse PolicyKind = "single"
	PolicyLimited   PolicyKind = "limited"
	PolicyUnlimited PolicyKind = "unlimited"
)

// UsagePolicy is the redemption budget attached to a code.
// Limit is only meaningful when Kind == PolicyLimited.
type UsagePolicy struct {
	Kind  PolicyKind
	Limit int
}

// EffectiveLimit returns the maximum number of redemptions, or 0 when unlimited.
func (p UsagePolicy) EffectiveLimit() int {
	switch p.Kind {
	case PolicySingleUse:
		return 1
	case PolicyLimited:
		return p.Limit
	default:
		return 0
	}
}

// Validate rejects policies that cannot be enforced.
func (p UsagePolicy) Validate() error {
	switch p.Kind {
	case PolicySingleUse, PolicyUnlimited:
		return nil
	case PolicyLimited:
		if p.Limit <= 0 {
			return domain.ErrInvalidArgument
		}
		return nil
	default:
		return domain.ErrInvalidArgument
	}
}

// ActivationCode is a bearer code that can be exchanged for a credential.
// ID identifies the record; Code is the human-shareable value and is unique.
type ActivationCode struct {
	ID         string
	Code       string
	Policy     UsagePolicy
	UsageCount int
	Active     bool
	CreatedAt  time.Time
	ExpiresAt  *time.Time // nil means non-expiring
	LastUsedAt *time.Time
}

// RedeemableAt reports whether the code can be redeemed at the given instant.
// The returned error names the first failing condition; callers must not leak
// that distinction past the API boundary.
func (c *ActivationCode) RedeemableAt(now time.Time) error {
	if !c.Active {
		return domain.ErrCodeInactive
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return domain.ErrCodeExpired
	}
	if limit := c.Policy.EffectiveLimit(); limit > 0 && c.UsageCount >= limit {
		return domain.ErrUsageExhausted
	}
	return nil
}
