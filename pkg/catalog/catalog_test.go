package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	books := Default()
	require.Len(t, books, 12)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, domain.Money(1599), books[0].Price)
	assert.Equal(t, "1984", books[1].Title, "numeric titles stay strings")
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing id":   "- title: X\n  price: 1\n",
		"duplicate id": "- id: 1\n  title: A\n- id: 1\n  title: B\n",
		"no title":     "- id: 2\n",
		"negative":     "- id: 3\n  title: C\n  stock: -1\n",
		"not a list":   "title: nope\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- id: 7\n  title: Emma\n  price: 999\n  stock: 2\n"), 0o600))

	books, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, int64(7), books[0].ID)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
