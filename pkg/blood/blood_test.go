package blood

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/pkg/apperrors"
)

func TestParse(t *testing.T) {
	for _, g := range All() {
		parsed, err := Parse(g.String())
		require.NoError(t, err)
		assert.Equal(t, g, parsed)
	}

	for _, bad := range []string{"", "a+", "AB", "C+", "O +"} {
		_, err := Parse(bad)
		require.Error(t, err, "expected %q to be rejected", bad)
		assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	}
}

func TestAllIsStable(t *testing.T) {
	assert.Equal(t, All(), All())
	assert.Len(t, All(), 8)
}
