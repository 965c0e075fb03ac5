package bookflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/bookflow"
)

// ExampleNew_memory runs a short conversation against the in-memory defaults.
func ExampleNew_memory() {
	eng, err := bookflow.New()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	for _, msg := range []string{"Añade 2 copias de Dune", "comprar"} {
		reply, err := eng.HandleTurn(ctx, "ana", msg)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(reply.Text)
	}
	// Output:
	// Listo: **Dune** ×2 en tu carrito. Total del carrito: $31.98.
	// Creé el pedido #1 por $31.98. Para pagarlo escribe "pagar pedido #1".
}
