// Command ingester runs the Ingester pull loop as a standalone process.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Mizzle-Technology/task-manager/interfaces/cli"
)

func main() {
	app := cli.New()
	if err := app.ExecuteWithArgs(context.Background(), append([]string{"ingest"}, os.Args[1:]...)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
