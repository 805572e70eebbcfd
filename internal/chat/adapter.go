package chat

import (
	"strings"

	"github.com/aquanex/aquachat/internal/models"
	"github.com/aquanex/aquachat/internal/provider"
)

// AdaptMessages converts caller messages into the provider wire format,
// preserving order. Roles are matched case-insensitively; anything outside
// system/user/assistant fails with an UnsupportedRoleError.
func AdaptMessages(msgs []models.Message) ([]provider.Message, error) {
	adapted := make([]provider.Message, 0, len(msgs))
	for _, m := range msgs {
		role := strings.ToLower(m.Role)
		switch role {
		case models.RoleSystem, models.RoleUser, models.RoleAssistant:
			adapted = append(adapted, provider.Message{Role: role, Content: m.Content})
		default:
			return nil, &UnsupportedRoleError{Role: m.Role}
		}
	}
	return adapted, nil
}
