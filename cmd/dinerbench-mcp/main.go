// Package main provides the dinerbench-mcp binary — MCP server for AI agents.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/camarero-ai/dinerbench/pkg/config"
	dmcp "github.com/camarero-ai/dinerbench/pkg/mcp"
)

var version = "dev"

func main() {
	cfg, err := config.Load("dinerbench.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s := dmcp.NewServer(version, cfg)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
