package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize is 4KB, far above any real chat message.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "BOOKFLOW_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
	ErrEmptyInput    = errors.New("input is empty")
)

// SanitizeInput cleans a chat message by enforcing the size limit,
// validating UTF-8, stripping control characters and trimming whitespace.
func SanitizeInput(input string) (string, error) {
	return SanitizeInputLimit(input, maxInputSize())
}

// SanitizeInputLimit is SanitizeInput with an explicit byte limit.
func SanitizeInputLimit(input string, limit int) (string, error) {
	// Reject rather than truncate: a cut message could change its meaning.
	if limit > 0 && len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Newline, tab and CR survive; ESC, NUL, BEL and friends would poison
	// logs and terminals.
	clean := input
	if strings.IndexFunc(input, unsafeControl) >= 0 {
		var b strings.Builder
		b.Grow(len(input))
		for _, r := range input {
			if !unsafeControl(r) {
				b.WriteRune(r)
			}
		}
		clean = b.String()
	}

	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", ErrEmptyInput
	}
	return clean, nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

func maxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
