package service

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тест: каждый сгенерированный код — ровно 6 цифр в [100000, 999999]
func TestCodeGenerator_RangeAndWidth(t *testing.T) {
	g := NewCodeGenerator()
	for i := 0; i < 10000; i++ {
		code := g.Generate()
		require.Len(t, code, 6, "code %q is not 6 chars", code)
		n, err := strconv.Atoi(code)
		require.NoError(t, err, "code %q is not numeric", code)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}
