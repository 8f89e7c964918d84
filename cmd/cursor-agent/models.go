package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Protocol-Lattice/cursor-agent/src/models"
)

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models pulled on the Ollama server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			host := models.OllamaHost(a.cfg.Host)
			list, err := models.ListOllamaModels(cmd.Context(), host, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintf(out, "No models found on %s. Pull one with `ollama pull llama3`.\n", host)
				return nil
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(toolStyle).
				Headers("MODEL", "SIZE", "PARAMS", "VISION", "TOOLS").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle.Padding(0, 1)
					}
					return cellStyle
				})
			for _, m := range list {
				t.Row("ollama-"+m.Name, humanSize(m.Size), m.ParameterSize,
					yesNo(m.Capabilities.Vision), yesNo(m.Capabilities.Tools))
			}
			fmt.Fprintln(out, systemStyle.Render("Ollama models on "+host))
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
