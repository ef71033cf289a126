// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianResearch/services/research/tools"
)

// Output formats of the tools command.
const (
	formatTable    = "table"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

func newToolsCmd(opts *cliOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to the agent",
		Long: `List the tools available to the agent.

--format markdown writes a reference document:

  research tools --format markdown > docs/tool_reference.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Logging, true)
			if err != nil {
				return err
			}
			defer logger.Close()

			reg, closeTools, err := buildRegistry(cfg, logger.Slog())
			if err != nil {
				return err
			}
			defer closeTools()
			return printTools(cmd.OutOrStdout(), reg.Descriptors(), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, json or markdown")
	return cmd
}

func printTools(w io.Writer, descriptors []tools.Descriptor, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(descriptors)
	case formatMarkdown:
		return writeToolReference(w, descriptors)
	case formatTable, "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDESCRIPTION")
		for _, d := range descriptors {
			fmt.Fprintf(tw, "%s\t%s\n", d.Name, firstLine(d.Description))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// writeToolReference renders one section per tool with a parameter table.
func writeToolReference(w io.Writer, descriptors []tools.Descriptor) error {
	var b strings.Builder
	b.WriteString("# Tool Reference\n\n")
	fmt.Fprintf(&b, "The research agent can call %d tools.\n\n", len(descriptors))

	b.WriteString("| Tool | Summary |\n|------|---------|\n")
	for _, d := range descriptors {
		fmt.Fprintf(&b, "| `%s` | %s |\n", d.Name, escapeCell(firstLine(d.Description)))
	}

	for _, d := range descriptors {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", d.Name, d.Description)
		if len(d.Parameters.Properties) == 0 {
			b.WriteString("\nNo parameters.\n")
			continue
		}

		required := make(map[string]bool, len(d.Parameters.Required))
		for _, r := range d.Parameters.Required {
			required[r] = true
		}
		names := make([]string, 0, len(d.Parameters.Properties))
		for name := range d.Parameters.Properties {
			names = append(names, name)
		}
		sort.Strings(names)

		b.WriteString("\n| Parameter | Type | Required | Description |\n|-----------|------|----------|-------------|\n")
		for _, name := range names {
			p := d.Parameters.Properties[name]
			desc := p.Description
			if len(p.Enum) > 0 {
				desc += " One of: " + strings.Join(p.Enum, ", ") + "."
			}
			req := ""
			if required[name] {
				req = "yes"
			}
			fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", name, p.Type, req, escapeCell(strings.TrimSpace(desc)))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
