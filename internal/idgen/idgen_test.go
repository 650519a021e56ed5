package idgen

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew_IsUUID(t *testing.T) {
	_, err := uuid.Parse(New())
	assert.NoError(t, err)
}

func TestWithPrefix(t *testing.T) {
	id := WithPrefix("bot_")
	assert.True(t, strings.HasPrefix(id, "bot_"))
	assert.Len(t, id, len("bot_")+32)
	assert.NotEqual(t, id, WithPrefix("bot_"))
}

func TestHex(t *testing.T) {
	assert.Len(t, Hex(16), 32)
}
