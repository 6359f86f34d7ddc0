//go:build ignore

package main

import (
	"fmt"
	"os"

	"github.com/camarero-ai/dinerbench/pkg/conversation"
	"github.com/camarero-ai/dinerbench/pkg/scenario"
)

func main() {
	data, err := scenario.GenerateJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/scenario-v0.json", data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/scenario-v0.json")

	resultData, err := conversation.GenerateResultJSONSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating result schema: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile("schemas/result-v0.json", resultData, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("wrote schemas/result-v0.json")
}
