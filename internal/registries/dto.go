package registries

import (
	"time"

	"github.com/google/uuid"

	"github.com/giftloop/giftloop-backend/pkg/db/models"
	"github.com/giftloop/giftloop-backend/pkg/enums"
	"github.com/giftloop/giftloop-backend/pkg/visibility"
)

// RegistryDTO is the wire form of a registry.
type RegistryDTO struct {
	ID                     uuid.UUID  `json:"id"`
	Title                  string     `json:"title"`
	Description            *string    `json:"description"`
	OwnerUserID            uuid.UUID  `json:"owner_user_id"`
	EventDate              *time.Time `json:"event_date"`
	CollaboratorsCanInvite bool       `json:"collaborators_can_invite"`
	AllowSecretGifts       bool       `json:"allow_secret_gifts"`
	CreatedAt              time.Time  `json:"created_at"`
}

// FromModel converts a registry row to its wire form.
func FromModel(registry *models.Registry) *RegistryDTO {
	if registry == nil {
		return nil
	}
	return &RegistryDTO{
		ID:                     registry.ID,
		Title:                  registry.Title,
		Description:            registry.Description,
		OwnerUserID:            registry.OwnerUserID,
		EventDate:              registry.EventDate,
		CollaboratorsCanInvite: registry.CollaboratorsCanInvite,
		AllowSecretGifts:       registry.AllowSecretGifts,
		CreatedAt:              registry.CreatedAt,
	}
}

// SubListView is one collaborator's sub-list as seen by a specific viewer.
// Items on the viewer's own sub-list arrive with claim fields nulled and
// secret surprises withheld.
type SubListView struct {
	SubListID         uuid.UUID                   `json:"sub_list_id"`
	CollaboratorID    uuid.UUID                   `json:"collaborator_id"`
	CollaboratorEmail string                      `json:"collaborator_email"`
	CollaboratorUser  *visibility.PublicProfile   `json:"collaborator_user"`
	Status            enums.CollaboratorStatus    `json:"status"`
	IsOwn             bool                        `json:"is_own"`
	Items             []visibility.ItemProjection `json:"items"`
}

// RegistryView is the full registry page for one viewer.
type RegistryView struct {
	Registry *RegistryDTO  `json:"registry"`
	SubLists []SubListView `json:"sub_lists"`
}
