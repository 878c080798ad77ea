package main

import (
	"context"
	"fmt"
	"os"

	"github.com/YoadTamar/aws-hw2/internal/cli"
)

// Set by ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
