package slcan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("V1011")
	require.NoError(t, err)
	assert.Equal(t, Version{Hardware: 10, Software: 11}, v)
	assert.Equal(t, "hw 1.0 sw 1.1", v.String())

	for _, line := range []string{"", "V", "V10", "N1011", "V10G1", "V101122"} {
		_, err := ParseVersion(line)
		assert.ErrorIs(t, err, ErrMalformedResponse, line)
	}
}

func TestParseRejected(t *testing.T) {
	_, err := ParseVersion("\a")
	assert.ErrorIs(t, err, ErrRejected)
	assert.NotErrorIs(t, err, ErrMalformedResponse)

	_, err = ParseStatus("\a")
	assert.ErrorIs(t, err, ErrRejected)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("F00")
	require.NoError(t, err)
	assert.NoError(t, st.Err())
	assert.Equal(t, "ok", st.String())

	_, err = ParseStatus("f84")
	assert.ErrorIs(t, err, ErrMalformedResponse)

	st, err = ParseStatus("F84")
	require.NoError(t, err)
	assert.Equal(t, StatusBusError|StatusErrorWarning, st)
	assert.EqualError(t, st.Err(), "error warning (EI)")
	assert.Equal(t, "error warning (EI), bus error (BEI)", st.String())

	_, err = ParseStatus("FXY")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
