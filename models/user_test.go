package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSessionSecret_Is64HexChars(t *testing.T) {
	secret := deriveSessionSecret(42, time.Unix(1700000000, 0))
	assert.Len(t, secret, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", secret)
}

func TestDeriveSessionSecret_DiffersByUser(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.NotEqual(t, deriveSessionSecret(1, at), deriveSessionSecret(2, at))
}

func TestDeriveSessionSecret_DiffersByTimestamp(t *testing.T) {
	assert.NotEqual(t,
		deriveSessionSecret(1, time.Unix(1700000000, 0)),
		deriveSessionSecret(1, time.Unix(1700000001, 0)),
	)
}

func TestToAPI_HidesEmailWhenRequested(t *testing.T) {
	name := "Dinnerbone"
	u := &User{ID: 1, GithubID: 99, Name: &name, Email: "dinnerbone@mojang.com", Login: "dinnerbone"}

	visible := u.ToAPI(false)
	assert.Equal(t, "dinnerbone@mojang.com", visible.Email)
	assert.Equal(t, "https://avatars.githubusercontent.com/u/99", visible.Avatar)

	hidden := u.ToAPI(true)
	assert.Equal(t, "hidden@email.com", hidden.Email)
	assert.Equal(t, u.Login, hidden.Login)
}

func TestToAPI_PreservesNilName(t *testing.T) {
	u := &User{ID: 2, GithubID: 100, Name: nil, Email: "a@b.com", Login: "anon"}
	api := u.ToAPI(false)
	assert.Nil(t, api.Name)
}
