package cli

import (
	"errors"
	"fmt"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"spaceapps-board/internal/client"
)

const timeLayout = "2006-01-02 15:04:05"

var errProbeFailed = errors.New("backend not reachable")

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all records, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			recs, err := a.api.List(ctx)
			if err != nil {
				return fmt.Errorf("list records: %w", err)
			}
			if len(recs) == 0 {
				fmt.Fprintln(a.out, "No entries yet.")
				return nil
			}
			a.renderTable(recs)
			return nil
		},
	}
}

func newAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME MESSAGE",
		Short: "Create a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			rec, err := a.api.Create(ctx, args[0], args[1])
			if err != nil {
				return fmt.Errorf("add record: %w", err)
			}
			fmt.Fprintln(a.out, rec.ID)
			return nil
		},
	}
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a single record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			rec, err := a.api.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get record %s: %w", args[0], err)
			}
			a.renderTable([]client.Record{rec})
			return nil
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.api.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("delete record %s: %w", args[0], err)
			}
			fmt.Fprintf(a.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

// newProbeCommand checks that the API answers on its diagnostic endpoint.
func newProbeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check connectivity to the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			msg, err := a.api.Probe(ctx)
			if err != nil {
				fmt.Fprintln(a.out, a.paint(color.FgRed, "Failed to connect to backend!"))
				return fmt.Errorf("%w: %v", errProbeFailed, err)
			}
			fmt.Fprintln(a.out, a.paint(color.FgGreen, "Success: "+msg))
			return nil
		},
	}
}

func (a *app) paint(c color.Color, s string) string {
	if !a.colors {
		return s
	}
	return c.Render(s)
}

func (a *app) renderTable(recs []client.Record) {
	table := tablewriter.NewWriter(a.out)
	table.SetHeader([]string{"ID", "Name", "Message", "Created"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, rec := range recs {
		table.Append([]string{rec.ID, rec.Name, rec.Message, rec.CreatedAt.Local().Format(timeLayout)})
	}
	table.Render()
}
