// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/invowk/svchost/internal/config"
	"github.com/invowk/svchost/pkg/types"
)

func newEndpointsCommand(app *App, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List the endpoint catalog",
		Long: `List the endpoints declared in the configuration with their listen URLs
and the listener bound to each.`,
		Args: cobra.NoArgs,
		RunE: withErrorDetails(app, opts, func(cmd *cobra.Command, _ []string) error {
			return app.listEndpoints(cmd.Context(), opts)
		}),
	}
}

func (a *App) listEndpoints(ctx context.Context, opts *rootOptions) error {
	cfg, _, err := a.loadConfig(ctx, opts)
	if err != nil {
		return err
	}

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	eps := catalog.Endpoints()
	if len(eps) == 0 {
		fmt.Fprintln(a.stdout, SubtitleStyle.Render("(no endpoints declared)"))
		return nil
	}

	rows := make([][]string, 0, len(eps))
	for _, ep := range eps {
		rows = append(rows, []string{
			ep.Name.String(),
			ep.Protocol.String(),
			ep.Port.String(),
			ep.URL(),
			boundListener(cfg, ep.Name),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(SubtitleStyle).
		Headers("NAME", "PROTOCOL", "PORT", "URL", "LISTENER").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	fmt.Fprintln(a.stdout, TitleStyle.Render("Endpoints"))
	fmt.Fprintln(a.stdout, t.Render())
	return nil
}

// boundListener names the enabled listeners that bind to name.
func boundListener(cfg *config.Config, name types.EndpointName) string {
	switch {
	case cfg.HTTP.Enabled && cfg.HTTP.Endpoint == name:
		return "http"
	case cfg.SSH.Enabled && cfg.SSH.Endpoint == name:
		return "ssh"
	default:
		return "-"
	}
}
