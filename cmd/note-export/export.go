// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/note-export/internal/export"
	"github.com/pdiddy/note-export/internal/htmlconv"
	"github.com/pdiddy/note-export/internal/state"
)

var exportCmd = &cobra.Command{
	Use:   "export [folders...]",
	Short: "Retrieve notes and write them as Markdown files",
	Long: `Export retrieves every note in the given folders (or the whole knowledge
base with --all), renders it to Markdown, and writes it to the output
directory. Raw socket payloads mirror into raw/ and metadata sidecars
into metadata/.

Each note first goes through the socket transport when websocket.enabled
is set; notes the socket cannot serve fall back to the REST API. Failed
notes are listed in conversion_failures.json.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Bool("all", false, "export every folder in the knowledge base")
	exportCmd.Flags().String("output", "", "output directory (default from config, else ./notes)")
	exportCmd.Flags().String("kb", "", "knowledge base GUID (default: first configured)")
	exportCmd.Flags().Bool("incremental", false, "skip notes unchanged since the last run")
	exportCmd.Flags().Bool("no-websocket", false, "disable the socket transport, use REST only")
	exportCmd.Flags().Int("filename-length", 0, "maximum content-derived filename length")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if len(args) == 0 && !all {
		return fmt.Errorf("provide one or more folders, or --all")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.Export.OutputDir = output
	}
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = "notes"
	}
	if incremental, _ := cmd.Flags().GetBool("incremental"); incremental {
		cfg.Export.Incremental = true
	}
	if length, _ := cmd.Flags().GetInt("filename-length"); length > 0 {
		cfg.Export.FilenameLength = length
	}

	kbGUID, _ := cmd.Flags().GetString("kb")
	kb, err := selectKB(cfg, kbGUID)
	if err != nil {
		return err
	}
	client, auth, err := buildClient(cfg, kb)
	if err != nil {
		return err
	}

	noSocket, _ := cmd.Flags().GetBool("no-websocket")
	var strategies []export.Strategy
	if cfg.WebSocket.Enabled && !noSocket {
		if cfg.WebSocket.URLTemplate == "" {
			return fmt.Errorf("websocket.url_template is required when the socket transport is enabled")
		}
		strategies = append(strategies, &export.SocketStrategy{
			Config: cfg.WebSocket,
			Auth:   auth,
			Tokens: client,
		})
	}
	strategies = append(strategies, &export.RESTStrategy{
		Notes: client,
		HTML:  htmlconv.New(),
	})

	var store *state.Store
	if cfg.Export.Incremental {
		dir := cfg.Export.StateDir
		if dir == "" {
			dir = cfg.Export.OutputDir
		}
		store, err = state.Open(dir)
		if err != nil {
			return fmt.Errorf("opening export state: %w", err)
		}
		defer store.Close()
	}

	exp := export.New(client, strategies, cfg.Export, store, os.Stdout)

	ctx := cmd.Context()
	var summary export.Summary
	if all {
		summary, err = exp.ExportAll(ctx)
	} else {
		summary, err = exp.ExportFolders(ctx, args)
	}
	if err != nil {
		return err
	}

	if path, logErr := exp.WriteFailureLog(); logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: writing failure log: %v\n", logErr)
	} else if path != "" {
		fmt.Fprintf(os.Stderr, "Failure details written to %s\n", path)
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d note(s) failed export", summary.Failed)
	}
	return nil
}
