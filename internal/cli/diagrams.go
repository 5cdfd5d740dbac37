package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modata-dev/modata/pkg/export"
	"github.com/modata-dev/modata/pkg/persist"
	"github.com/modata-dev/modata/pkg/schema"
)

// newDiagramsCmd creates the diagrams command group for managing the
// persistence backend.
func newDiagramsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagrams",
		Short: "Manage saved diagrams",
		Long: `Manage saved diagrams in the configured persistence backend.

The backend is selected in ~/.config/modata/config.toml: file (default),
redis, mongo, or memory. Saving a diagram also marks it as last-opened.`,
	}

	cmd.AddCommand(newDiagramsListCmd())
	cmd.AddCommand(newDiagramsSaveCmd())
	cmd.AddCommand(newDiagramsLoadCmd())
	cmd.AddCommand(newDiagramsDeleteCmd())
	cmd.AddCommand(newDiagramsLastCmd())
	return cmd
}

// withStore opens the configured backend, runs fn, and closes the store.
func withStore(ctx context.Context, fn func(persist.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	defer store.Close()
	return fn(store)
}

// =============================================================================
// list
// =============================================================================

func newDiagramsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved diagrams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagramsList(cmd.Context())
		},
	}
}

func runDiagramsList(ctx context.Context) error {
	return withStore(ctx, func(store persist.Store) error {
		metas, err := store.List(ctx)
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			printInfo("No saved diagrams")
			return nil
		}

		last, err := store.LastOpened(ctx)
		if err != nil && !errors.Is(err, persist.ErrNotFound) {
			return err
		}

		for _, m := range metas {
			marker := "  "
			if m.Name == last {
				marker = StyleHighlight.Render(iconArrow) + " "
			}
			fmt.Println(marker + StyleValue.Render(m.Name) + "  " + StyleDim.Render(m.UpdatedAt))
		}
		return nil
	})
}

// =============================================================================
// save
// =============================================================================

func newDiagramsSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save [diagram.modata.json]",
		Short: "Save a diagram file to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagramsSave(cmd.Context(), args[0])
		},
	}
}

func runDiagramsSave(ctx context.Context, input string) error {
	d, err := schema.ReadFile(input)
	if err != nil {
		return fmt.Errorf("load diagram %s: %w", input, err)
	}
	d.UpdatedAt = schema.Now()

	return withStore(ctx, func(store persist.Store) error {
		if err := store.Save(ctx, d); err != nil {
			return err
		}
		printSuccess("Saved %q", d.Name)
		printStats(len(d.Nodes), len(d.Edges))
		return nil
	})
}

// =============================================================================
// load
// =============================================================================

func newDiagramsLoadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "load [name]",
		Short: "Load a saved diagram to a file",
		Long: `Load a saved diagram to a file.

With no name, an interactive picker lists the saved diagrams. Loading marks
the diagram as last-opened.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runDiagramsLoad(cmd.Context(), name, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: derived from diagram name)")
	return cmd
}

func runDiagramsLoad(ctx context.Context, name, output string) error {
	return withStore(ctx, func(store persist.Store) error {
		if name == "" {
			picked, err := pickDiagram(ctx, store, "Load Diagram")
			if err != nil {
				return err
			}
			if picked == "" {
				return nil // user quit the picker
			}
			name = picked
		}

		d, err := store.Load(ctx, name)
		if errors.Is(err, persist.ErrNotFound) {
			return fmt.Errorf("no saved diagram named %q", name)
		}
		if err != nil {
			return err
		}
		if err := store.SetLastOpened(ctx, name); err != nil {
			return err
		}

		if output == "" {
			output = export.Filename(d.Name, export.ExtJSON)
		}
		if err := schema.WriteFile(d, output); err != nil {
			return err
		}

		printSuccess("Loaded %q", name)
		printFile(output)
		return nil
	})
}

// =============================================================================
// delete
// =============================================================================

func newDiagramsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a saved diagram",
		Long: `Delete a saved diagram from the backend.

With no name, an interactive picker lists the saved diagrams. Deleting the
last-opened diagram clears the last-opened pointer.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runDiagramsDelete(cmd.Context(), name)
		},
	}
}

func runDiagramsDelete(ctx context.Context, name string) error {
	return withStore(ctx, func(store persist.Store) error {
		if name == "" {
			picked, err := pickDiagram(ctx, store, "Delete Diagram")
			if err != nil {
				return err
			}
			if picked == "" {
				return nil
			}
			name = picked
		}

		if err := store.Delete(ctx, name); err != nil {
			if errors.Is(err, persist.ErrNotFound) {
				return fmt.Errorf("no saved diagram named %q", name)
			}
			return err
		}
		printSuccess("Deleted %q", name)
		return nil
	})
}

// =============================================================================
// last
// =============================================================================

func newDiagramsLastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Show the last-opened diagram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagramsLast(cmd.Context())
		},
	}
}

func runDiagramsLast(ctx context.Context) error {
	return withStore(ctx, func(store persist.Store) error {
		name, err := store.LastOpened(ctx)
		if errors.Is(err, persist.ErrNotFound) {
			printInfo("No last-opened diagram")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Println(StyleValue.Render(name))
		return nil
	})
}
