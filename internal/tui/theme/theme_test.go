package theme

import (
	"testing"

	"github.com/theirongolddev/bopt/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestByNameFallsBack(t *testing.T) {
	assert.Equal(t, "tokyo-night", ByName("tokyo-night").Name)
	assert.Equal(t, FlexokiDark.Name, ByName("no-such-theme").Name)
}

func TestSetActive(t *testing.T) {
	t.Cleanup(func() { Active = FlexokiDark })
	SetActive("terminal")
	assert.Equal(t, "terminal", Active.Name)
	assert.Len(t, Names(), len(All))
}

func TestStatusColors(t *testing.T) {
	th := FlexokiDark
	assert.Equal(t, th.Red, th.Status(model.StatusExceeded))
	assert.Equal(t, th.Green, th.Status(model.StatusActive))
	assert.Equal(t, th.TextMuted, th.Status(model.StatusArchived))
}
