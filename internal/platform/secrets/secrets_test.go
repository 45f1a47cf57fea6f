package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "credchain/pkg/domain-errors"
)

func TestNewTokenProducesDistinctTokens(t *testing.T) {
	first, err := NewToken()
	require.NoError(t, err)
	second, err := NewToken()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestHashAndVerify(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		token, err := NewToken()
		require.NoError(t, err)

		hash, err := Hash(token)
		require.NoError(t, err)
		assert.NotEqual(t, token, hash)

		assert.NoError(t, Verify(token, hash))
	})

	t.Run("wrong token fails", func(t *testing.T) {
		hash, err := Hash("correct-token")
		require.NoError(t, err)

		err = Verify("wrong-token", hash)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("empty token rejected", func(t *testing.T) {
		_, err := Hash("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("overlong token rejected", func(t *testing.T) {
		_, err := Hash(strings.Repeat("a", 100))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
