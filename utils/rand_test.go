package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomAlphanumeric(t *testing.T) {
	s := RandomAlphanumeric(16)
	assert.Len(t, s, 16)
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		assert.True(t, ok, "byte %q", c)
	}
	assert.NotEqual(t, RandomAlphanumeric(16), RandomAlphanumeric(16))
	assert.Empty(t, RandomAlphanumeric(0))
}
