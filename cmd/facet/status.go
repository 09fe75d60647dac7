package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dlowans/facet/internal/project"
	"github.com/dlowans/facet/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status <project-id> <status> [project-id <status> ...]",
	Short: "Move projects between statuses",
	Long: `Move one or more projects to a new status. Multiple id/status pairs
are applied in order; completing a project for the first time records
the current year as its finish year.

Example usage:
  facet status sunset-042 progress
  facet status sunset-042 completed owl-117 onhold`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || len(args)%2 != 0 {
			return fmt.Errorf("expected id/status pairs, got %d arguments", len(args))
		}
		for i := 1; i < len(args); i += 2 {
			if !project.Status(args[i]).Valid() {
				return fmt.Errorf("invalid status %q (one of %s)", args[i], statusList())
			}
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		st, err := store.Open(viper.GetString("db"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open store: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()
		if err := st.InitSchema(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize schema: %v\n", err)
			os.Exit(1)
		}

		for i := 0; i < len(args); i += 2 {
			id, status := args[i], project.Status(args[i+1])
			if err := st.UpdateStatus(ctx, id, status); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			logger.Printf("moved %s to %s", id, status)
			fmt.Printf("%s -> %s\n", id, status)
		}
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <project-id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		st, err := store.Open(viper.GetString("db"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open store: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()
		if err := st.InitSchema(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize schema: %v\n", err)
			os.Exit(1)
		}

		if err := st.DeleteProject(ctx, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger.Printf("deleted %s", args[0])
		fmt.Printf("Deleted %s\n", args[0])
	},
}

func statusList() string {
	names := make([]string, len(project.Statuses))
	for i, s := range project.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rmCmd)
}
