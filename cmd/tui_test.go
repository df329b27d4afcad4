package cmd

import (
	"testing"
	"time"

	"github.com/theirongolddev/bopt/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestSortForDashboard(t *testing.T) {
	now := time.Now()
	budgets := []model.Budget{
		{Name: "done", Status: model.StatusCompleted, End: now},
		{Name: "open-ended", Status: model.StatusActive},
		{Name: "later", Status: model.StatusActive, End: now.AddDate(0, 0, 9)},
		{Name: "soon", Status: model.StatusPaused, End: now.AddDate(0, 0, 1)},
		{Name: "also-soon", Status: model.StatusDraft, End: now.AddDate(0, 0, 1)},
	}
	sortForDashboard(budgets)

	names := make([]string, len(budgets))
	for i, b := range budgets {
		names[i] = b.Name
	}
	assert.Equal(t, []string{"also-soon", "soon", "later", "open-ended", "done"}, names)
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "sk-live-...wxyz", maskAPIKey("sk-live-0123456789wxyz"))
	assert.Equal(t, "abcd...", maskAPIKey("abcdefgh"))
	assert.Equal(t, "****", maskAPIKey("abc"))
}
