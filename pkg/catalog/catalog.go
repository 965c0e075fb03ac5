// Package catalog loads seed books from YAML.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/bookflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed books.yaml
var defaultBooks []byte

type entry struct {
	ID          int64  `yaml:"id"`
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Genre       string `yaml:"genre"`
	Description string `yaml:"description"`
	Price       int64  `yaml:"price"`
	Stock       int    `yaml:"stock"`
	CoverURL    string `yaml:"cover_url"`
}

// Default returns the built-in seed catalog.
func Default() []domain.Book {
	books, err := Decode(bytes.NewReader(defaultBooks))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return books
}

// LoadFile reads a seed catalog from a YAML file.
func LoadFile(path string) ([]domain.Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a YAML list of books and checks ids, prices and stock.
func Decode(r io.Reader) ([]domain.Book, error) {
	var entries []entry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	seen := make(map[int64]bool, len(entries))
	books := make([]domain.Book, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.ID <= 0:
			return nil, fmt.Errorf("book %q: id must be positive", e.Title)
		case seen[e.ID]:
			return nil, fmt.Errorf("book %d: duplicate id", e.ID)
		case e.Title == "":
			return nil, fmt.Errorf("book %d: title is required", e.ID)
		case e.Price < 0 || e.Stock < 0:
			return nil, fmt.Errorf("book %d: price and stock must not be negative", e.ID)
		}
		seen[e.ID] = true
		books = append(books, domain.Book{
			ID:          e.ID,
			Title:       e.Title,
			Author:      e.Author,
			Genre:       e.Genre,
			Description: e.Description,
			Price:       domain.Money(e.Price),
			Stock:       e.Stock,
			CoverURL:    e.CoverURL,
		})
	}
	return books, nil
}
