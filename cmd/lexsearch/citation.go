// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var citationCmd = &cobra.Command{
	Use:   "citation [citation]",
	Short: "Validate a citation against a provider citator",
	Long: `Citation checks a citation string against a provider's citator service
(KeyCite for Westlaw, Shepard's for LexisNexis) and reports whether it is
recognized, its normalized form, and its treatment signal. Validations are
cached with a long TTL since treatment changes slowly.`,
	Args: cobra.ExactArgs(1),
	RunE: runCitation,
}

func init() {
	citationCmd.Flags().String("provider", "", "provider to validate against (default: first configured)")
	citationCmd.Flags().Bool("json", false, "output the validation as JSON")

	rootCmd.AddCommand(citationCmd)
}

func runCitation(cmd *cobra.Command, args []string) error {
	provider, _ := cmd.Flags().GetString("provider")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	v, err := a.engine.ValidateCitation(context.Background(), args[0], provider)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	status := "NOT RECOGNIZED"
	if v.Valid {
		status = "valid"
	}
	fmt.Printf("%s: %s (%s)\n", v.Citation, status, v.Provider)
	if v.Normalized != "" && v.Normalized != v.Citation {
		fmt.Printf("Normalized: %s\n", v.Normalized)
	}
	if v.Treatment != "" {
		fmt.Printf("Treatment:  %s\n", v.Treatment)
	}
	if v.Message != "" {
		fmt.Printf("Note:       %s\n", v.Message)
	}
	return nil
}
