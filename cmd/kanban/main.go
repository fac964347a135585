// Command kanban is a terminal kanban board editor with drag-and-drop
// reordering, and the REST persistence server it talks to.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/h0rv/kanban/internal/api"
	"github.com/h0rv/kanban/internal/config"
	"github.com/h0rv/kanban/internal/tui"
	"github.com/spf13/cobra"
)

var (
	// CLI flags
	configFlag string
	boardFlag  string
	apiURLFlag string

	// cfg is loaded by PersistentPreRunE for every command.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kanban",
	Short: "Terminal kanban board with drag-and-drop",
	Long: `kanban is a terminal user interface for kanban boards.

Drag cards and lists with the mouse, or pick them up with m/M and move them
with the keyboard. Moves are applied immediately and saved in the background;
a move the server rejects is reverted.

Start a server with 'kanban serve --seed' and run 'kanban' to open the board.

Configuration is read from kanban.yaml (working directory or
~/.config/kanban), a .env file and KANBAN_* environment variables.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runEditor,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default: kanban.yaml or ~/.config/kanban/kanban.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "persistence API base URL")
	rootCmd.Flags().StringVar(&boardFlag, "board", "", "Board ID to open. Skips the board picker.")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(boardsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == versionCmd.Name() {
		return nil
	}

	loaded, err := config.Load(configFlag)
	if err != nil {
		return err
	}
	if f := cmd.Flag("api-url"); f != nil && f.Changed {
		loaded.APIURL = apiURLFlag
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func newClient() *api.Client {
	return api.New(cfg.APIURL, api.WithTimeout(cfg.RequestTimeout))
}

func runEditor(cmd *cobra.Command, _ []string) error {
	// The terminal belongs to the UI, so logs go to a file
	var out io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	log, err := newLogger(cfg, out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app := tui.NewAppModel(ctx, newClient(), tui.Options{
		BoardID:       boardFlag,
		DragThreshold: cfg.DragThreshold,
		Logger:        log,
	})
	defer app.Close()

	log.WithField("api", cfg.APIURL).Info("starting editor")

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}
