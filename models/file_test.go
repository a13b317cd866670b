package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPath_DropsEmptySegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitPath("/a/b//c/"))
}

func TestSplitPath_RootIsEmpty(t *testing.T) {
	assert.Nil(t, splitPath("/"))
	assert.Nil(t, splitPath(""))
}
