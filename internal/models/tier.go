package models

// Tier is a size classification derived from the member count at registration
// time. The values double as the user-facing labels and the persisted
// category strings.
type Tier string

const (
	TierSmall  Tier = "100-1000"
	TierMedium Tier = "1000-5000"
	TierLarge  Tier = "5000+"
)

// Tiers returns all tiers in broadcast order.
func Tiers() []Tier {
	return []Tier{TierSmall, TierMedium, TierLarge}
}

// ClassifyMembers maps a member count to its tier. Total over non-negative
// counts: anything below the medium boundary is small, including counts under
// the registration minimum (registration rejects those before classifying).
func ClassifyMembers(count int) Tier {
	switch {
	case count < 1000:
		return TierSmall
	case count < 5000:
		return TierMedium
	default:
		return TierLarge
	}
}
