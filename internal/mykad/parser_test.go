package mykad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credchain/internal/credential"
	dErrors "credchain/pkg/domain-errors"
)

var refNow = time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)

func TestParseAt(t *testing.T) {
	t.Run("full card number", func(t *testing.T) {
		id, err := ParseAt("900101-10-1234", refNow)
		require.NoError(t, err)

		assert.Equal(t, "900101-10-1234", id.NRIC)
		assert.Equal(t, time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC), id.DateOfBirth)
		assert.Equal(t, "Selangor", id.BirthState)
		assert.Equal(t, GenderFemale, id.Gender, "even final digit")
		assert.Equal(t, 36, id.Age)
	})

	t.Run("dashes are optional", func(t *testing.T) {
		id, err := ParseAt("900101101235", refNow)
		require.NoError(t, err)
		assert.Equal(t, "900101-10-1235", id.NRIC, "normalised to the printed form")
		assert.Equal(t, GenderMale, id.Gender, "odd final digit")
	})

	t.Run("century pivots on the current year", func(t *testing.T) {
		young, err := ParseAt("100315-14-2246", refNow)
		require.NoError(t, err)
		assert.Equal(t, 2010, young.DateOfBirth.Year())
		assert.Equal(t, "Kuala Lumpur", young.BirthState)

		old, err := ParseAt("270315-01-2246", refNow)
		require.NoError(t, err)
		assert.Equal(t, 1927, old.DateOfBirth.Year())
	})

	t.Run("birthday not yet reached this year", func(t *testing.T) {
		id, err := ParseAt("900901-10-1234", refNow)
		require.NoError(t, err)
		assert.Equal(t, 35, id.Age)
	})

	t.Run("leap day", func(t *testing.T) {
		id, err := ParseAt("000229-12-5678", refNow)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2000, time.February, 29, 0, 0, 0, 0, time.UTC), id.DateOfBirth)
		assert.Equal(t, "Sabah", id.BirthState)
		assert.Equal(t, 26, id.Age)
	})

	t.Run("born abroad", func(t *testing.T) {
		id, err := ParseAt("850505-71-0031", refNow)
		require.NoError(t, err)
		assert.Equal(t, "Luar Negara", id.BirthState)
	})
}

func TestParseRejections(t *testing.T) {
	cases := []struct {
		name string
		nric string
	}{
		{"wrong shape", "90-0101-101234"},
		{"letters", "900101-1O-1234"},
		{"too short", "900101-10-123"},
		{"impossible month", "901301-10-1234"},
		{"impossible day", "900230-10-1234"},
		{"non-leap february 29", "010229-10-1234"},
		{"unknown state code", "900101-17-1234"},
		{"future birth date", "261231-10-1234"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAt(tc.nric, refNow)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestIdentityAttributes(t *testing.T) {
	id, err := ParseAt("900101-10-1234", refNow)
	require.NoError(t, err)

	attrs := id.Attributes()
	got := make(map[string]string, len(attrs))
	for _, av := range attrs {
		got[av.Attribute] = av.Value
	}

	assert.Equal(t, "900101-10-1234", got[credential.AttrNRIC])
	assert.Equal(t, "1990-01-01", got[credential.AttrDateOfBirth])
	assert.Equal(t, "Selangor", got[credential.AttrBirthState])
	assert.Equal(t, GenderFemale, got[credential.AttrGender])
	assert.Equal(t, "36", got[credential.AttrAge])
}
