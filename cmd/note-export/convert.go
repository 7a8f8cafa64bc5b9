// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/note-export/internal/markdown"
)

var convertCmd = &cobra.Command{
	Use:   "convert [json-files...]",
	Short: "Convert block-tree JSON files to Markdown offline",
	Long: `Convert renders already-downloaded block-tree JSON documents to Markdown
without contacting the service. Pass files directly, or use --json-dir to
walk a directory tree and convert every .json file in it. Filenames derive
from the first content line; collisions get a numeric suffix.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("json-dir", "", "walk this directory for .json files")
	convertCmd.Flags().String("md-output", "converted", "output directory for Markdown files")
	convertCmd.Flags().Int("filename-length", markdown.DefaultFilenameLength, "maximum content-derived filename length")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputDir, _ := cmd.Flags().GetString("json-dir")
	output, _ := cmd.Flags().GetString("md-output")
	length, _ := cmd.Flags().GetInt("filename-length")

	files := args
	if inputDir != "" {
		found, err := collectJSON(inputDir)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fmt.Errorf("provide one or more JSON files, or --json-dir")
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var converted, failed int
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("failed:  %s (%v)\n", path, err)
			failed++
			continue
		}
		md, err := markdown.Convert(data)
		if err != nil {
			fmt.Printf("failed:  %s (%v)\n", path, err)
			failed++
			continue
		}

		stem := markdown.FilenameFromContent(md, length)
		name := markdown.UniqueName(output, stem)
		dest := filepath.Join(output, name+".md")
		if err := os.WriteFile(dest, []byte(md), 0o644); err != nil {
			fmt.Printf("failed:  %s (%v)\n", path, err)
			failed++
			continue
		}
		fmt.Printf("converted: %s -> %s\n", path, dest)
		converted++
	}

	fmt.Printf("\nConvert summary: %d converted, %d failed (total: %d)\n",
		converted, failed, converted+failed)
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed conversion", failed)
	}
	return nil
}

// collectJSON walks dir and returns every .json file, sorted by walk order.
func collectJSON(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".json" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}
