package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashColumnFor(t *testing.T) {
	cases := []struct {
		id       string
		expected string
		ok       bool
	}{
		{id: string(make([]byte, 32)), expected: "md5", ok: true},
		{id: string(make([]byte, 40)), expected: "sha1", ok: true},
		{id: string(make([]byte, 56)), expected: "sha224", ok: true},
		{id: string(make([]byte, 64)), expected: "sha256", ok: true},
		{id: string(make([]byte, 96)), expected: "sha384", ok: true},
		{id: string(make([]byte, 128)), expected: "sha512", ok: true},
		{id: "123", expected: "", ok: false},
	}

	for _, tc := range cases {
		col, ok := hashColumnFor(tc.id)
		assert.Equal(t, tc.ok, ok)
		assert.Equal(t, tc.expected, col)
	}
}

func TestPrefixColumns_QualifiesEveryColumn(t *testing.T) {
	out := prefixColumns("b", buildColumns)
	for _, col := range buildColumnNames {
		assert.Contains(t, out, "b."+col)
	}
}

func TestZeroVersion_FallsBackToProjectVersionID(t *testing.T) {
	pv := "paper-123"
	b := &Build{ProjectVersionID: &pv}
	v := zeroVersion(b)
	assert.Equal(t, "paper-123", v.ID)
	assert.Equal(t, int32(21), v.Java)
}
