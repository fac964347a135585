package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/h0rv/kanban/internal/domain"
	"github.com/spf13/cobra"
)

var jsonFlag bool

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List the boards on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		boards, err := newClient().ListBoards(cmd.Context())
		if err != nil {
			return fmt.Errorf("list boards: %w", err)
		}
		return printBoards(cmd.OutOrStdout(), boards, jsonFlag)
	},
}

func init() {
	boardsCmd.Flags().BoolVar(&jsonFlag, "json", false, "output as JSON")
}

func printBoards(w io.Writer, boards []domain.Board, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(boards)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDESCRIPTION")
	for _, b := range boards {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.ID, b.Title, b.Description)
	}
	return tw.Flush()
}
