// Command readchop-encrypt wraps a plaintext pattern database file in a
// ".safe" encrypted envelope for distribution.
package main

import (
	"fmt"
	"os"

	"github.com/cherryamme/readchop/internal/patterns"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: readchop-encrypt <database-file>")
		os.Exit(1)
	}

	outPath, err := patterns.EncryptDatabase(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "readchop-encrypt: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s\n", outPath)
}
