package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOrganizationAuditEntry_Fields(t *testing.T) {
	now := time.Now()
	entry := OrganizationAuditEntry{
		Model: gorm.Model{
			ID:        1,
			CreatedAt: now,
		},
		OrganizationID: "org-1",
		ActorID:        "key-abc",
		Action:         "key.create",
		Detail:         `{"name":"ci-deploy"}`,
	}

	assert.Equal(t, uint(1), entry.ID)
	assert.Equal(t, "org-1", entry.OrganizationID)
	assert.Equal(t, "key.create", entry.Action)
	assert.Equal(t, now, entry.CreatedAt)
}

func TestOrganizationAuditEntry_JSONRoundTrip(t *testing.T) {
	entry := OrganizationAuditEntry{
		OrganizationID: "org-2",
		ActorID:        "user-9",
		Action:         "build.publish",
		Detail:         "paper 1.20.4 build 450",
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded OrganizationAuditEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, entry.OrganizationID, decoded.OrganizationID)
	assert.Equal(t, entry.Action, decoded.Action)
}

func TestOrganizationAuditEntry_Actions(t *testing.T) {
	actions := []string{
		"key.create",
		"key.revoke",
		"build.publish",
		"organization.icon_update",
		"organization.subuser_add",
	}

	for _, action := range actions {
		entry := OrganizationAuditEntry{OrganizationID: "org-3", Action: action}
		assert.Equal(t, action, entry.Action)
	}
}
