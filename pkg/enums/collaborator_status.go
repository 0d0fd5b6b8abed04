package enums

// CollaboratorStatus tracks a registry member through the invite lifecycle.
type CollaboratorStatus string

const (
	CollaboratorStatusPending  CollaboratorStatus = "pending"
	CollaboratorStatusAccepted CollaboratorStatus = "accepted"
	CollaboratorStatusRemoved  CollaboratorStatus = "removed"
)

func (s CollaboratorStatus) IsValid() bool {
	switch s {
	case CollaboratorStatusPending, CollaboratorStatusAccepted, CollaboratorStatusRemoved:
		return true
	}
	return false
}
