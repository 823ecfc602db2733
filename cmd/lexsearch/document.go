// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document [id]",
	Short: "Fetch a full document by provider id",
	Long: `Document fetches one full document by its provider identifier. The document
cache and the local archive are consulted first; only on a miss does the call
reach the provider. Fetched documents are written through to both.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocument,
}

func init() {
	documentCmd.Flags().String("provider", "", "provider to fetch from (default: try each in order)")
	documentCmd.Flags().Bool("json", false, "output the document as JSON")

	rootCmd.AddCommand(documentCmd)
}

func runDocument(cmd *cobra.Command, args []string) error {
	provider, _ := cmd.Flags().GetString("provider")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	doc, err := a.engine.GetDocument(context.Background(), args[0], provider)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	fmt.Printf("%s\n", doc.Title)
	if doc.Citation != "" {
		fmt.Printf("Citation: %s\n", doc.Citation)
	}
	if doc.Court != "" {
		fmt.Printf("Court:    %s\n", doc.Court)
	}
	if !doc.Date.IsZero() {
		fmt.Printf("Date:     %s\n", doc.Date.Format("2006-01-02"))
	}
	fmt.Printf("Provider: %s\n\n", doc.Provider)
	fmt.Println(doc.Content)
	return nil
}
