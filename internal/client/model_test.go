package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextID(t *testing.T) {
	assert.Equal(t, "C1000", NextID(nil))
	assert.Equal(t, "C1006", NextID([]Client{{ID: "C1005"}, {ID: "C12"}}))
	assert.Equal(t, "C1000", NextID([]Client{{ID: "X99"}, {ID: "c10"}, {ID: "C-5"}}))
}

func TestRepairIDs_FillsEmptyIDs(t *testing.T) {
	clients := []Client{
		{Name: "A"},
		{Name: "B"},
		{ID: "C1005", Name: "C"},
	}
	repaired, changed := RepairIDs(clients)
	require.True(t, changed)
	assert.Equal(t, "C1006", repaired[0].ID)
	assert.Equal(t, "C1007", repaired[1].ID)
	assert.Equal(t, "C1005", repaired[2].ID)
	assert.Equal(t, "A", repaired[0].Name)
	assert.Equal(t, "C", repaired[2].Name)
}

func TestRepairIDs_Convergent(t *testing.T) {
	clients := []Client{{Name: "A"}, {ID: "C1005"}}
	repaired, changed := RepairIDs(clients)
	require.True(t, changed)

	again, changed := RepairIDs(repaired)
	assert.False(t, changed)
	assert.Equal(t, repaired, again)
}

func TestRepairIDs_RegeneratesDuplicates(t *testing.T) {
	clients := []Client{{ID: "C1005", Name: "A"}, {ID: "C1005", Name: "B"}}
	repaired, changed := RepairIDs(clients)
	require.True(t, changed)
	assert.Equal(t, "C1005", repaired[0].ID)
	assert.Equal(t, "C1006", repaired[1].ID)
}

func TestRepairIDs_IgnoresNonConformingDuringScan(t *testing.T) {
	clients := []Client{{ID: "LEGACY-1"}, {Name: "B"}}
	repaired, changed := RepairIDs(clients)
	require.True(t, changed)
	assert.Equal(t, "LEGACY-1", repaired[0].ID)
	assert.Equal(t, "C1000", repaired[1].ID)
}

func TestFromRow_MissingAndUnknownColumns(t *testing.T) {
	header := []string{"name", "mystery", "phone"}
	c := FromRow(header, []string{"Ana", "x", "555"})
	assert.Equal(t, "Ana", c.Name)
	assert.Equal(t, "555", c.Phone)
	assert.Empty(t, c.ID)
	assert.Empty(t, c.Status)
}

func TestRow_RoundTrip(t *testing.T) {
	c := Client{ID: "C1000", Name: "Ana", Status: "PROPOSAL", Source: "referral"}
	assert.Equal(t, c, FromRow(Columns, c.Row()))
}

func TestParseDateFlexible(t *testing.T) {
	us, ok := ParseDateFlexible("03/14/2025")
	require.True(t, ok)
	assert.Equal(t, "2025-03-14", us.Format("2006-01-02"))

	eu, ok := ParseDateFlexible("25/12/2024")
	require.True(t, ok)
	assert.Equal(t, "2024-12-25", eu.Format("2006-01-02"))

	iso, ok := ParseDateFlexible("2024-01-31")
	require.True(t, ok)
	assert.Equal(t, "2024-01-31", iso.Format("2006-01-02"))

	_, ok = ParseDateFlexible("not a date")
	assert.False(t, ok)
}

func TestSortByDates_UnparseableLast(t *testing.T) {
	clients := []Client{
		{ID: "C1", IntakeDate: "soon"},
		{ID: "C2", IntakeDate: "01/15/2025"},
		{ID: "C3", IntakeDate: "01/02/2024"},
	}
	SortByDates(clients)
	assert.Equal(t, "C3", clients[0].ID)
	assert.Equal(t, "C2", clients[1].ID)
	assert.Equal(t, "C1", clients[2].ID)
}
