// Keygen prints the stored credential hash and default machine tag for an
// API key, for debugging player identity issues against the database.
package main

import (
	"fmt"
	"os"

	"github.com/padstats/scores-api/internal/logic"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: keygen <api-key>")
		os.Exit(1)
	}

	key := logic.DeriveKey(os.Args[1])
	fmt.Println("stored key:", key)
	fmt.Println("machine tag:", logic.MachineTag(key))
}
