package nlu

import (
	"regexp"
	"strings"

	"github.com/aretw0/bookflow/pkg/domain"
)

type intentRule struct {
	intent  domain.Intent
	pattern *regexp.Regexp
}

// intentRules are tried in order against folded text. More specific intents
// come first: "cancela el pedido" must not read as a cart removal, and a
// buying verb wins over a stock or price question.
var intentRules = []intentRule{
	{domain.IntentCancelOrder, regexp.MustCompile(`\b(cancel\w*|anul\w*)\b`)},
	{domain.IntentPay, regexp.MustCompile(`\b(pag(ar|a|o|ue|uemos)|pay|abon(ar|a))\b`)},
	{domain.IntentStatus, regexp.MustCompile(`\b(estado|status|seguimiento|rastre\w*|track\w*|donde esta)\b`)},
	{domain.IntentCheckout, regexp.MustCompile(`\b(finaliz\w*|checkout|tramit\w*|caja)\b|\b(hacer|realizar|haz) (el |mi )?pedido\b|^\s*(quiero )?comprar\s*[.!]*\s*$`)},
	{domain.IntentRemoveFromCart, regexp.MustCompile(`\b(quit\w*|elimin\w*|saca|sacar|borr\w*|remove|delete)\b`)},
	{domain.IntentUpdateCart, regexp.MustCompile(`\b(cambi\w*|actualiz\w*|modific\w*|update|change)\b`)},
	{domain.IntentViewCart, regexp.MustCompile(`\b(ver|mostrar|muestra\w*|ensena\w*|show|view|see)\b.*\b(carrito|cart)\b|^\s*(mi |my )?(carrito|cart)\s*\??\s*$|\bque (hay|tengo) en (el |mi )?carrito\b`)},
	{domain.IntentAddToCart, regexp.MustCompile(`\b(anad\w*|agreg\w*|mete|meter|add|compr\w*|llev\w*|buy)\b`)},
	{domain.IntentRecommend, regexp.MustCompile(`\b(recomi\w*|recomend\w*|recommend\w*|sugier\w*|sugerencia\w*|suggest\w*)\b`)},
	{domain.IntentCheckStock, regexp.MustCompile(`\b(stock|disponib\w*|quedan?|existencias|available)\b|\bcuant[oa]s (hay|tienes)\b`)},
	{domain.IntentBookDetails, regexp.MustCompile(`\b(detalles?|informacion|info|sinopsis|ficha|details?|precio|price)\b|\bcuanto (cuesta|vale)\b|\bhow much\b`)},
	{domain.IntentSearch, regexp.MustCompile(`\b(busc\w*|search|find|encuentr\w*|tienes|hay|looking)\b|\blibros? (de|sobre)\b`)},
}

var (
	quotedRe   = regexp.MustCompile(`["“«']([^"”»']+)["”»']`)
	quantityRe = regexp.MustCompile(`\b(\d+|un|una|uno|dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez|one|two|three|four|five)\s*(copias?|unidades?|ejemplares?|libros?|copies|units?)\b`)
	timesRe    = regexp.MustCompile(`(?:^|\s)x\s*(\d+)\b|\b(\d+)\s*x(?:\s|$)`)
	orderRe    = regexp.MustCompile(`\b(?:orden|pedido|order)\s*(?:numero|num\.?|no\.?|n)?\s*#?\s*(\d+)\b`)
	hashRe     = regexp.MustCompile(`#\s*(\d+)\b`)
	numberRe   = regexp.MustCompile(`\b(\d+)\b`)

	negativeRe = regexp.MustCompile(`^\s*(no|nope|nah)\b|\bno (confirmo|quiero|gracias)\b|^\s*cancel\w*\s*[.!]*\s*$`)
	positiveRe = regexp.MustCompile(`^\s*(si|yes|ok|okay|vale|claro|dale|adelante|correcto|de acuerdo)\b|\bconfirm\w*\b`)
)

var numberWords = map[string]int{
	"un": 1, "una": 1, "uno": 1, "one": 1,
	"dos": 2, "two": 2,
	"tres": 3, "three": 3,
	"cuatro": 4, "four": 4,
	"cinco": 5, "five": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

// verbRe matches the tokens that only carry intent.
var verbRe = regexp.MustCompile(`^(anad\w*|agreg\w*|mete|meter|add|compr\w*|llev\w*|buy|busc\w*|search|find|encuentr\w*|recomi\w*|tienes|hay|looking|quit\w*|elimin\w*|saca|sacar|borr\w*|remove|delete|cambi\w*|actualiz\w*|modific\w*|update|change|pon|poner|deja|dejar|set|ver|mostrar|muestra\w*|show|view|recomend\w*|recommend\w*|sugier\w*|sugerencia\w*|suggest\w*|stock|disponib\w*|queda|quedan|existencias|available|cuant[oa]s?|detalles?|informacion|info|sinopsis|ficha|details?|precio|price|cuesta)$`)

// fillerWords never form part of a title or query.
var fillerWords = map[string]bool{
	"el": true, "la": true, "los": true, "las": true, "lo": true,
	"un": true, "una": true, "unos": true, "unas": true,
	"de": true, "del": true, "al": true, "a": true, "en": true, "y": true,
	"mi": true, "mis": true, "me": true, "por": true, "favor": true, "porfa": true,
	"quiero": true, "quisiera": true, "necesito": true, "dame": true, "puedes": true,
	"libro": true, "libros": true, "copia": true, "copias": true, "unidad": true, "unidades": true,
	"ejemplar": true, "ejemplares": true, "carrito": true, "cesta": true, "sobre": true,
	"novela": true, "novelas": true, "algo": true, "algun": true, "alguna": true,
	"si": true, "hola": true, "vale": true, "ok": true, "yes": true,
	"the": true, "an": true, "of": true, "to": true, "my": true, "please": true, "i": true,
	"want": true, "book": true, "books": true, "copy": true, "copies": true, "cart": true, "for": true,
	"about": true, "is": true, "in": true, "there": true, "how": true, "much": true,
	"esta": true, "estan": true, "tienen": true, "ahora": true, "todavia": true, "aun": true,
}

// greetings are capitalised words that are never titles.
var greetings = map[string]bool{
	"hola": true, "hello": true, "hi": true, "gracias": true, "thanks": true, "ok": true,
	"vale": true, "si": true, "no": true, "buenas": true, "buenos": true,
}

var folder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"¿", " ", "¡", " ",
)

// fold lower-cases s and strips Spanish diacritics so patterns stay ASCII.
func fold(s string) string {
	return folder.Replace(strings.ToLower(s))
}

func trimToken(tok string) string {
	return strings.Trim(tok, ".,;:!?¿¡()[]\"'“”«»")
}
