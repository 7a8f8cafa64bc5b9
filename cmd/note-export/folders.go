// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var foldersCmd = &cobra.Command{
	Use:   "folders",
	Short: "List the folders of a knowledge base",
	RunE:  runFolders,
}

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "List the configured knowledge bases",
	RunE:  runKB,
}

func init() {
	foldersCmd.Flags().String("kb", "", "knowledge base GUID (default: first configured)")
	foldersCmd.Flags().Bool("json", false, "output folders as JSON")

	rootCmd.AddCommand(foldersCmd)
	rootCmd.AddCommand(kbCmd)
}

func runFolders(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	kbGUID, _ := cmd.Flags().GetString("kb")
	kb, err := selectKB(cfg, kbGUID)
	if err != nil {
		return err
	}
	client, _, err := buildClient(cfg, kb)
	if err != nil {
		return err
	}

	folders, err := client.ListFolders(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(folders)
	}
	for _, f := range folders {
		fmt.Println(f)
	}
	return nil
}

func runKB(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.KnowledgeBases) == 0 {
		fmt.Println("No knowledge bases configured.")
		return nil
	}
	for i, kb := range cfg.KnowledgeBases {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Printf("%s %s  %s  %s\n", marker, kb.GUID, kb.Server, kb.Name)
	}
	return nil
}
