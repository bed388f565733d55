package view

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/prefs"
)

func sample() []model.Item {
	p := int64(1250)
	return []model.Item{
		{ID: "1", Name: "Drill", AddressID: "a1", PurchasePriceCents: &p, PurchaseDate: "2023-05-15", Tags: []string{"tools", "power"}},
		{ID: "2", Name: "Lamp", Tags: []string{}},
	}
}

func TestRenderList(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, prefs.ViewList, sample(), Labels{"a1": "Garage"}, func(id string) bool { return id == "2" })
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "€12.50")
	assert.Contains(t, lines[1], "tools, power")
	assert.Contains(t, lines[1], "2023")
	assert.Contains(t, lines[1], "Garage")
	assert.True(t, strings.HasPrefix(lines[2], "*"))
}

func TestRenderGrid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, prefs.ViewGrid, sample(), nil, nil))
	out := buf.String()
	assert.Equal(t, 4, strings.Count(out, "+"+strings.Repeat("-", gridCardWidth)+"+"))
	assert.Contains(t, out, "Drill")
	assert.Contains(t, out, "@ -")
}

func TestRenderColumn4(t *testing.T) {
	items := make([]model.Item, 6)
	for i := range items {
		items[i] = model.Item{ID: string(rune('a' + i)), Name: "item" + string(rune('A'+i))}
	}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, prefs.ViewColumn4, items, nil, nil))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[1], "itemF")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, prefs.ViewList, nil, nil, nil))
	assert.Equal(t, "No items.\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd~", truncate("abcdefgh", 5))
}
