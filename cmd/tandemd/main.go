package main

import (
	"flag"
	"fmt"
	"os"

	"tandem/internal/di"
	"tandem/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the yaml config file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "fail loudly on invariant violations")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		fmt.Fprintf(os.Stderr, "tandemd: %s\n", err)
		os.Exit(1)
	}
}
