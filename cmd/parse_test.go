package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	d, err := parseMoney("$1,250.75")
	require.NoError(t, err)
	assert.Equal(t, "1250.75", d.String())

	_, err = parseMoney("twelve")
	assert.Error(t, err)
}

func TestParseLimits(t *testing.T) {
	got, err := parseLimits([]string{"food=200", " rent = 900.50"})
	require.NoError(t, err)
	assert.Equal(t, "200", got["food"].String())
	assert.Equal(t, "900.5", got["rent"].String())

	_, err = parseLimits([]string{"food"})
	assert.Error(t, err)
	_, err = parseLimits([]string{"=10"})
	assert.Error(t, err)

	none, err := parseLimits(nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestParseWhen(t *testing.T) {
	zero, err := parseWhen("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	d, err := parseWhen("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, time.Local, d.Location())

	ts, err := parseWhen("2026-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())

	_, err = parseWhen("yesterday")
	assert.Error(t, err)
}

func TestParseWeights(t *testing.T) {
	got, err := parseWeights([]string{"food=3", "rent=1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"food": 3, "rent": 1}, got)

	for _, bad := range []string{"food", "food=x", "=2", "food=-1"} {
		_, err := parseWeights([]string{bad})
		assert.Error(t, err, bad)
	}
}
