package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jgivc/emojifetch/internal/app"
)

func main() {
	cfgFileName := flag.String("c", "config.yml", "Path to config file")
	flag.Parse()

	app := app.New(*cfgFileName)
	if err := app.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot download images: %s\n", err)
		os.Exit(1)
	}
}
