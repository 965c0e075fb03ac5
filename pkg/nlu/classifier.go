package nlu

import (
	"context"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
)

// RuleClassifier implements ports.Classifier with keyword and regex rules.
// It is stateless and safe for concurrent use.
type RuleClassifier struct{}

// New creates a RuleClassifier.
func New() *RuleClassifier {
	return &RuleClassifier{}
}

var _ ports.Classifier = (*RuleClassifier)(nil)

// Classify detects the intent of text and extracts slots. When no intent
// keyword is present the result is IntentUnknown, with whatever slots the
// hinted intent could use; free text is then only taken as a book reference
// if it is quoted or capitalised.
func (c *RuleClassifier) Classify(ctx context.Context, text string, hint domain.Intent) (ports.Classification, error) {
	if err := ctx.Err(); err != nil {
		return ports.Classification{}, err
	}

	folded := fold(text)
	intent := detectIntent(folded)
	if hint == domain.IntentPay && intent == domain.IntentCancelOrder && negativeRe.MatchString(folded) {
		// A bare "cancelar" answers the payment question.
		intent = domain.IntentUnknown
	}

	// Slots are read for the detected intent, or for the hint when the
	// message is a bare follow-up.
	target := intent
	if target == domain.IntentUnknown {
		target = hint
	}

	slots := map[string]any{}
	rest := folded
	if quoted, ok := firstQuoted(text); ok {
		rest = quotedRe.ReplaceAllString(rest, " ")
		switch target {
		case domain.IntentSearch, domain.IntentRecommend:
			slots[string(domain.FieldQuery)] = quoted
		default:
			slots[string(domain.FieldBookReference)] = quoted
		}
	}

	if id, ok := extractOrderID(rest); ok {
		slots[string(domain.FieldOrderID)] = id
		rest = orderRe.ReplaceAllString(rest, " ")
		rest = hashRe.ReplaceAllString(rest, " ")
	}
	if qty, ok := extractQuantity(rest); ok {
		slots[string(domain.FieldQuantity)] = qty
		rest = quantityRe.ReplaceAllString(rest, " ")
		rest = timesRe.ReplaceAllString(rest, " ")
	}
	if m := numberRe.FindStringSubmatch(rest); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch target {
		case domain.IntentAddToCart, domain.IntentUpdateCart:
			if _, ok := slots[string(domain.FieldQuantity)]; !ok {
				slots[string(domain.FieldQuantity)] = n
			}
		case domain.IntentPay, domain.IntentCancelOrder, domain.IntentStatus:
			if _, ok := slots[string(domain.FieldOrderID)]; !ok {
				slots[string(domain.FieldOrderID)] = int64(n)
			}
		}
	}

	if target == domain.IntentPay {
		if confirmed, ok := detectConfirmation(folded); ok {
			slots[string(domain.FieldConfirmation)] = confirmed
		}
	}

	if _, quoted := slots[string(domain.FieldBookReference)]; !quoted {
		if _, quoted := slots[string(domain.FieldQuery)]; !quoted {
			c.freeText(text, intent, target, slots)
		}
	}

	res := ports.Classification{Intent: intent, Slots: slots}
	switch {
	case intent != domain.IntentUnknown:
		res.Confidence = 0.9
	case len(slots) > 0:
		res.Confidence = 0.5
	}
	if len(slots) == 0 {
		res.Slots = nil
	}
	return res, nil
}

// freeText fills the book reference or query from the words left after
// removing intent verbs, numbers and filler.
func (c *RuleClassifier) freeText(text string, intent, target domain.Intent, slots map[string]any) {
	field := domain.FieldBookReference
	switch target {
	case domain.IntentSearch, domain.IntentRecommend:
		field = domain.FieldQuery
	case domain.IntentAddToCart, domain.IntentUpdateCart, domain.IntentRemoveFromCart,
		domain.IntentBookDetails, domain.IntentCheckStock:
	default:
		return
	}

	var ref string
	if intent == domain.IntentUnknown {
		ref = capitalised(text)
	} else {
		ref = remainder(text, field == domain.FieldBookReference)
	}
	if ref != "" {
		slots[string(field)] = ref
	}
}

func detectIntent(folded string) domain.Intent {
	for _, r := range intentRules {
		if r.pattern.MatchString(folded) {
			return r.intent
		}
	}
	return domain.IntentUnknown
}

func detectConfirmation(folded string) (bool, bool) {
	if negativeRe.MatchString(folded) {
		return false, true
	}
	if positiveRe.MatchString(folded) {
		return true, true
	}
	return false, false
}

func firstQuoted(text string) (string, bool) {
	m := quotedRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	q := strings.TrimSpace(m[1])
	return q, q != ""
}

func extractOrderID(folded string) (int64, bool) {
	m := orderRe.FindStringSubmatch(folded)
	if m == nil {
		m = hashRe.FindStringSubmatch(folded)
	}
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	return id, err == nil
}

func extractQuantity(folded string) (int, bool) {
	if m := quantityRe.FindStringSubmatch(folded); m != nil {
		if n, ok := numberWords[m[1]]; ok {
			return n, true
		}
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	if m := timesRe.FindStringSubmatch(folded); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		n, err := strconv.Atoi(digits)
		return n, err == nil
	}
	return 0, false
}

// remainder drops intent verbs, numbers and quantity markers from text,
// keeping the original spelling of what is left. Filler words are trimmed from
// both ends; keepInner keeps them between content words ("Cien años de soledad").
func remainder(text string, keepInner bool) string {
	type word struct {
		text   string
		filler bool
	}
	var words []word
	skipNext := false
	for _, tok := range strings.Fields(text) {
		clean := trimToken(tok)
		f := fold(clean)
		switch {
		case skipNext:
			skipNext = false
			continue
		case f == "":
			continue
		case verbRe.MatchString(f):
			continue
		case f == "x" || strings.HasPrefix(f, "x") && isDigits(f[1:]):
			continue
		case isDigits(strings.TrimPrefix(f, "#")):
			continue
		case numberWords[f] > 0 && len(words) == 0:
			continue
		case f == "pedido" || f == "orden" || f == "order":
			skipNext = true
			continue
		}
		words = append(words, word{text: clean, filler: fillerWords[f]})
	}

	for len(words) > 0 && words[0].filler {
		words = words[1:]
	}
	for len(words) > 0 && words[len(words)-1].filler {
		words = words[:len(words)-1]
	}
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if w.filler && !keepInner {
			continue
		}
		kept = append(kept, w.text)
	}
	return strings.Join(kept, " ")
}

// capitalised returns the first run of capitalised words that is not a
// greeting. Connectors such as "de" may sit inside the run. A lone capitalised
// word opening a longer sentence ("Hoy hace calor") is sentence case, not a
// title, and is skipped.
func capitalised(text string) string {
	var toks []string
	for _, tok := range strings.Fields(text) {
		if clean := trimToken(tok); clean != "" {
			toks = append(toks, clean)
		}
	}
	for i := 0; i < len(toks); {
		if !titleWord(toks[i]) {
			i++
			continue
		}
		j := i + 1
		for j < len(toks) && (titleWord(toks[j]) || connectors[fold(toks[j])]) {
			j++
		}
		run := trimConnectors(toks[i:j])
		if i == 0 && len(run) == 1 && !onlyFiller(toks[1:]) {
			i = j
			continue
		}
		return strings.Join(run, " ")
	}
	return ""
}

func titleWord(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	f := fold(tok)
	return unicode.IsUpper(r) && !greetings[f] && !verbRe.MatchString(f)
}

// onlyFiller reports whether toks carry nothing but filler, greetings and
// quantities, as in "Dune por favor" or "Dune x2".
func onlyFiller(toks []string) bool {
	for _, tok := range toks {
		f := fold(tok)
		switch {
		case fillerWords[f], greetings[f], numberWords[f] > 0:
		case isDigits(strings.TrimPrefix(f, "#")):
		case f == "x" || strings.HasPrefix(f, "x") && isDigits(f[1:]):
		default:
			return false
		}
	}
	return true
}

var connectors = map[string]bool{"de": true, "del": true, "la": true, "el": true, "los": true, "las": true, "y": true, "of": true, "the": true, "and": true}

func trimConnectors(run []string) []string {
	for len(run) > 0 && connectors[fold(run[len(run)-1])] {
		run = run[:len(run)-1]
	}
	return run
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
