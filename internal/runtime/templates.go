package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/bookflow/pkg/domain"
)

// Fallback replies. Generators may rephrase them; they are used verbatim when
// no generator is configured or it fails.

const (
	apologyText = "Lo siento, algo salió mal al procesar tu mensaje. Empecemos de nuevo: ¿en qué te puedo ayudar?"

	helpText = "No estoy seguro de qué necesitas. Puedo ayudarte a:\n\n" +
		"- buscar libros (\"busca novelas de ciencia ficción\")\n" +
		"- recomendarte lecturas (\"recomiéndame algo de fantasía\")\n" +
		"- darte los detalles, el precio o el stock de un libro (\"¿cuánto cuesta Dune?\")\n" +
		"- añadir al carrito (\"añade 2 copias de 'Dune'\")\n" +
		"- ver o modificar tu carrito\n" +
		"- finalizar la compra, pagar o cancelar un pedido\n" +
		"- consultar el estado de un pedido"
)

var actionLabels = map[domain.Intent]string{
	domain.IntentSearch:         "buscar",
	domain.IntentAddToCart:      "añadir al carrito",
	domain.IntentUpdateCart:     "actualizar tu carrito",
	domain.IntentRemoveFromCart: "quitar un libro del carrito",
	domain.IntentViewCart:       "mostrarte el carrito",
	domain.IntentCheckout:       "finalizar la compra",
	domain.IntentPay:            "pagar",
	domain.IntentCancelOrder:    "cancelar un pedido",
	domain.IntentStatus:         "consultar un pedido",
	domain.IntentBookDetails:    "darte los detalles",
	domain.IntentCheckStock:     "consultar el stock",
	domain.IntentRecommend:      "recomendarte libros",
}

var fieldLabels = map[domain.Field]string{
	domain.FieldQuery:         "qué quieres buscar",
	domain.FieldBookReference: "qué libro (título o número)",
	domain.FieldQuantity:      "cuántas unidades",
	domain.FieldOrderID:       "el número de pedido",
	domain.FieldConfirmation:  "si confirmas",
}

var statusLabels = map[domain.OrderStatus]string{
	domain.OrderCreated:   "pendiente de pago",
	domain.OrderPaid:      "pagado",
	domain.OrderCancelled: "cancelado",
}

// ClarifyText asks for the missing fields of intent.
func ClarifyText(intent domain.Intent, missing []domain.Field) string {
	labels := make([]string, 0, len(missing))
	for _, f := range missing {
		if f == domain.FieldIntent {
			return helpText
		}
		labels = append(labels, fieldLabels[f])
	}
	action, ok := actionLabels[intent]
	if !ok {
		return helpText
	}
	return fmt.Sprintf("Para %s necesito saber %s.", action, joinES(labels))
}

// ResultText renders an ActionResult.
func ResultText(r domain.ActionResult) string {
	switch r.Kind {
	case domain.ResultNeedsConfirmation:
		return r.Prompt
	case domain.ResultFailure:
		return failureText(r)
	}
	return successText(r)
}

func successText(r domain.ActionResult) string {
	p := r.Payload
	switch r.Intent {
	case domain.IntentSearch:
		if len(p.Books) == 0 {
			return fmt.Sprintf("No encontré libros para %q. Prueba con otro título, autor o género.", p.Query)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Encontré %d %s para %q:\n\n", len(p.Books), plural(len(p.Books), "libro", "libros"), p.Query)
		writeBooks(&b, p.Books)
		return b.String()

	case domain.IntentRecommend:
		if len(p.Books) == 0 {
			if p.Query != "" {
				return fmt.Sprintf("Ahora mismo no tengo libros disponibles de %q para recomendarte.", p.Query)
			}
			return "Ahora mismo no tengo libros disponibles para recomendarte."
		}
		var b strings.Builder
		if p.Query != "" {
			fmt.Fprintf(&b, "Te recomiendo estos libros de %q:\n\n", p.Query)
		} else {
			b.WriteString("Te recomiendo estos libros:\n\n")
		}
		writeBooks(&b, p.Books)
		return b.String()

	case domain.IntentBookDetails:
		book := p.Book
		var b strings.Builder
		fmt.Fprintf(&b, "**%s** de %s", book.Title, book.Author)
		if book.Genre != "" {
			fmt.Fprintf(&b, " (%s)", book.Genre)
		}
		fmt.Fprintf(&b, " · %s\n", book.Price)
		if book.Description != "" {
			fmt.Fprintf(&b, "\n%s\n", book.Description)
		}
		if book.Stock == 0 {
			b.WriteString("\nAhora mismo está agotado.")
		} else {
			fmt.Fprintf(&b, "\nQuedan %d %s.", book.Stock, plural(book.Stock, "unidad", "unidades"))
		}
		return b.String()

	case domain.IntentCheckStock:
		if p.Quantity == 0 {
			return fmt.Sprintf("**%s** está agotado ahora mismo.", p.Book.Title)
		}
		return fmt.Sprintf("Sí, quedan %d %s de **%s** (%s).",
			p.Quantity, plural(p.Quantity, "unidad", "unidades"), p.Book.Title, p.Book.Price)

	case domain.IntentAddToCart:
		return fmt.Sprintf("Listo: **%s** ×%d en tu carrito. Total del carrito: %s.", p.Book.Title, p.Quantity, p.Cart.Total)

	case domain.IntentUpdateCart:
		return fmt.Sprintf("Actualicé **%s** a %d %s. Total del carrito: %s.",
			p.Book.Title, p.Quantity, plural(p.Quantity, "unidad", "unidades"), p.Cart.Total)

	case domain.IntentRemoveFromCart:
		if p.Cart.Empty() {
			return fmt.Sprintf("Quité **%s**. Tu carrito quedó vacío.", p.Book.Title)
		}
		return fmt.Sprintf("Quité **%s** de tu carrito. Total: %s.", p.Book.Title, p.Cart.Total)

	case domain.IntentViewCart:
		if p.Cart.Empty() {
			return "Tu carrito está vacío."
		}
		var b strings.Builder
		b.WriteString("Tu carrito:\n\n")
		for _, l := range p.Cart.Lines {
			fmt.Fprintf(&b, "- **%s** ×%d · %s\n", l.Title, l.Quantity, l.Subtotal())
		}
		fmt.Fprintf(&b, "\nTotal: **%s**", p.Cart.Total)
		return b.String()

	case domain.IntentCheckout:
		return fmt.Sprintf("Creé el pedido #%d por %s. Para pagarlo escribe \"pagar pedido #%d\".",
			p.Order.ID, p.Order.Total, p.Order.ID)

	case domain.IntentPay:
		return fmt.Sprintf("Pago recibido: el pedido #%d está pagado (%s). ¡Gracias por tu compra!", p.Order.ID, p.Amount)

	case domain.IntentCancelOrder:
		return fmt.Sprintf("Cancelé el pedido #%d.", p.Order.ID)

	case domain.IntentStatus:
		switch {
		case p.Order != nil:
			return fmt.Sprintf("El pedido #%d está **%s** (total %s).", p.Order.ID, statusLabels[p.Order.Status], p.Order.Total)
		case p.Query != "":
			return fmt.Sprintf("No encontré el pedido %s.", p.Query)
		}
		return "Todavía no tienes pedidos."
	}
	return "Hecho."
}

func failureText(r domain.ActionResult) string {
	p := r.Payload
	switch r.Code {
	case domain.FailNotFound:
		switch r.Intent {
		case domain.IntentPay, domain.IntentCancelOrder, domain.IntentStatus:
			return "No encontré ese pedido entre los tuyos."
		}
		return fmt.Sprintf("No encontré ningún libro que coincida con %q.", p.Query)

	case domain.FailAmbiguous:
		var b strings.Builder
		fmt.Fprintf(&b, "Encontré varios libros para %q. ¿Cuál quieres?\n\n", p.Query)
		writeBooks(&b, p.Books)
		return b.String()

	case domain.FailOutOfStock:
		if p.Book != nil {
			return fmt.Sprintf("Lo siento, no hay suficiente stock de **%s** (quedan %d).", p.Book.Title, p.Book.Stock)
		}
		if p.Cart != nil {
			for _, l := range p.Cart.Lines {
				if l.Quantity > l.Stock {
					return fmt.Sprintf("Lo siento, de **%s** solo quedan %d. Ajusta tu carrito antes de finalizar la compra.", l.Title, l.Stock)
				}
			}
		}
		return "Lo siento, no hay stock suficiente."

	case domain.FailNotInCart:
		return fmt.Sprintf("**%s** no está en tu carrito.", p.Book.Title)

	case domain.FailEmptyCart:
		return "Tu carrito está vacío: añade algún libro antes de finalizar la compra."

	case domain.FailInvalidStatus:
		verb := "cancelarlo"
		if r.Intent == domain.IntentPay {
			verb = "pagarlo"
		}
		return fmt.Sprintf("El pedido #%d ya está %s, así que no puedo %s.", p.Order.ID, statusLabels[p.Order.Status], verb)

	case domain.FailDeclined:
		return fmt.Sprintf("De acuerdo, no realicé el pago del pedido #%d.", p.Order.ID)

	case domain.FailContext:
		return "No pude consultar la tienda en este momento. Inténtalo de nuevo en unos minutos."

	case domain.FailPersistence:
		return "No pude guardar los cambios, así que la operación no se completó. Inténtalo de nuevo."
	}
	return apologyText
}

func writeBooks(b *strings.Builder, books []domain.Book) {
	for _, book := range books {
		fmt.Fprintf(b, "- **%s** de %s · %s", book.Title, book.Author, book.Price)
		if book.Stock == 0 {
			b.WriteString(" (agotado)")
		}
		b.WriteString("\n")
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// joinES joins items as "a", "a y b", "a, b y c".
func joinES(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " y " + items[len(items)-1]
}
