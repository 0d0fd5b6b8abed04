package enums

// ClaimStatus tracks the purchase intent lifecycle of a single item.
// Legal transitions: unclaimed -> claimed -> bought, plus claimed/bought -> unclaimed
// when the claimant releases. There is no direct unclaimed -> bought transition.
type ClaimStatus string

const (
	ClaimStatusUnclaimed ClaimStatus = "unclaimed"
	ClaimStatusClaimed   ClaimStatus = "claimed"
	ClaimStatusBought    ClaimStatus = "bought"
)

func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimStatusUnclaimed, ClaimStatusClaimed, ClaimStatusBought:
		return true
	}
	return false
}
