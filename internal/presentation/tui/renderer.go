package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders reply markdown using glamour.
// wrap is the word-wrap width; zero keeps glamour's default.
func NewRenderer(wrap int) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if wrap > 0 {
		opts = append(opts, glamour.WithWordWrap(wrap))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}
