package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog_LookupCaseInsensitive(t *testing.T) {
	cat, err := NewCatalog([]Item{
		{Key: "rusty_sword", Name: "Rusty Sword", Icon: "sword_01", Level: 1},
		{Key: "Healing_Draught", Name: "Healing Draught", Icon: "potion_03", Level: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	item, ok := cat.Lookup("RUSTY_SWORD")
	require.True(t, ok)
	assert.Equal(t, "Rusty Sword", item.Name)

	item, ok = cat.Lookup("healing_draught")
	require.True(t, ok)
	assert.Equal(t, "potion_03", item.Icon)

	_, ok = cat.Lookup("missing_key")
	assert.False(t, ok)
}

func TestNewCatalog_RejectsInvalidItems(t *testing.T) {
	_, err := NewCatalog([]Item{{Key: "", Name: "Nameless"}})
	assert.Error(t, err)

	_, err = NewCatalog([]Item{{Key: "thing", Name: ""}})
	assert.Error(t, err)
}

func TestNewCatalog_RejectsDuplicateKeys(t *testing.T) {
	_, err := NewCatalog([]Item{
		{Key: "torch", Name: "Torch"},
		{Key: "Torch", Name: "Other Torch"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate item key")
}

func TestLoadItemsFromBytes(t *testing.T) {
	data := []byte(`
items:
  - key: rusty_sword
    name: Rusty Sword
    icon: sword_01
    level: 1
  - key: wolf_pelt
    name: Wolf Pelt
    icon: pelt_02
    level: 3
`)
	items, err := LoadItemsFromBytes(data)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "wolf_pelt", items[1].Key)
	assert.Equal(t, 3, items[1].Level)
}

func TestLoadItemsFromBytes_BadYAML(t *testing.T) {
	_, err := LoadItemsFromBytes([]byte("items: [unclosed"))
	assert.Error(t, err)
}

func TestLoadCatalogFromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weapons.yaml"), []byte(`
items:
  - key: rusty_sword
    name: Rusty Sword
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "misc.yml"), []byte(`
items:
  - key: wolf_pelt
    name: Wolf Pelt
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	cat, err := LoadCatalogFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	_, ok := cat.Lookup("wolf_pelt")
	assert.True(t, ok)
}

func TestLoadCatalogFromDir_MissingDir(t *testing.T) {
	_, err := LoadCatalogFromDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
