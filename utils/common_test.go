package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomHex(t *testing.T) {
	first := RandomHex(32)
	second := RandomHex(32)

	assert.Len(t, first, 64, "n字节应产生2n个十六进制字符")
	assert.NotEqual(t, first, second)
	assert.Regexp(t, "^[0-9a-f]+$", first)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 10), "不超长时原样返回")
	assert.Equal(t, "abc", TruncateString("abcdef", 3))
	assert.Equal(t, "", TruncateString("", 5))
}
