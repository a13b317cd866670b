package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveOrganizationKeySecret_Is64HexChars(t *testing.T) {
	secret := deriveOrganizationKeySecret(7, time.Unix(1700000000, 0))
	assert.Len(t, secret, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", secret)
}

func TestDeriveOrganizationKeySecret_DeterministicPerInput(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.Equal(t, deriveOrganizationKeySecret(7, at), deriveOrganizationKeySecret(7, at))
}

func TestDeriveOrganizationKeySecret_DiffersByOrganization(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.NotEqual(t, deriveOrganizationKeySecret(7, at), deriveOrganizationKeySecret(8, at))
}

func TestDeriveOrganizationKeySecret_DiffersByTimestamp(t *testing.T) {
	assert.NotEqual(t,
		deriveOrganizationKeySecret(7, time.Unix(1700000000, 0)),
		deriveOrganizationKeySecret(7, time.Unix(1700000001, 0)),
	)
}

func TestMaxOrganizationQuotas(t *testing.T) {
	assert.Equal(t, 15, MaxOrganizationKeys)
	assert.Equal(t, 15, MaxOrganizationSubusers)
}
