package main

import (
	"flag"
	"fmt"
	"os"

	"bousai/internal/di"
	"bousai/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the config file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "mirror logs to stderr")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		fmt.Fprintf(os.Stderr, "bousaid: %v\n", err)
		os.Exit(1)
	}
}
