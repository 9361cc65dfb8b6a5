package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/registadb/internal/client/cli"
)

func main() {
	rc, _ := cli.Run(context.Background(), os.Args[1:], cli.NewConfig())
	os.Exit(rc)
}
