package main

import (
	"fmt"
	"os"

	"github.com/viant/devops-mcp/service"
)

func main() {
	if err := service.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting server: %v\n", err)
		os.Exit(1)
	}
}
