package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dlowans/facet/internal/filter"
	"github.com/dlowans/facet/internal/project"
	"github.com/dlowans/facet/internal/query"
	"github.com/dlowans/facet/internal/store"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyles = map[project.Status]lipgloss.Style{
		project.StatusWishlist:  lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		project.StatusPurchased: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		project.StatusStash:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		project.StatusProgress:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		project.StatusOnHold:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		project.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		project.StatusArchived:  dimStyle,
		project.StatusDestashed: dimStyle,
	}
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List projects through the dashboard filter",
	Long: `List the acting user's projects with the same filter predicate the
dashboard uses.

With --resume the saved navigation context is restored first, then any
flags are applied on top of it, exactly as if the filters had been
changed on the dashboard.

Example usage:
  facet ls                               # active collection
  facet ls --status everything           # all statuses
  facet ls --company dac --tag landscape
  facet ls --search sunset --page 2 --size 50`,
	Run: func(cmd *cobra.Command, args []string) {
		user := actingUser()
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

		state := filter.Default(smallScreen())
		if resume, _ := cmd.Flags().GetBool("resume"); resume {
			if snap, found, err := st.LoadNavigationContext(ctx, user); err == nil && found {
				state = filter.Sanitize(snap, smallScreen())
			}
		}
		state = applyListFlags(cmd, state)

		req := query.Request{
			Filters:       query.BuildFilters(user, state, state.SearchTerm),
			SortField:     state.SortField,
			SortDirection: state.SortDirection,
			Page:          state.CurrentPage,
			PageSize:      state.PageSize,
		}
		page, err := st.FetchPage(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list projects: %v\n", err)
			os.Exit(1)
		}

		renderPage(state, page)
	},
}

// applyListFlags overlays command-line flags onto the filter state via
// the same reducer actions the dashboard dispatches.
func applyListFlags(cmd *cobra.Command, state filter.State) filter.State {
	if v, _ := cmd.Flags().GetString("status"); v != "" {
		state = filter.Reduce(state, filter.SetStatus(filter.StatusFilter(v)))
	}
	if v, _ := cmd.Flags().GetString("company"); v != "" {
		state = filter.Reduce(state, filter.SetCompany(v))
	}
	if v, _ := cmd.Flags().GetString("artist"); v != "" {
		state = filter.Reduce(state, filter.SetArtist(v))
	}
	if v, _ := cmd.Flags().GetString("shape"); v != "" {
		state = filter.Reduce(state, filter.SetDrillShape(v))
	}
	if v, _ := cmd.Flags().GetString("search"); v != "" {
		state = filter.Reduce(state, filter.SetSearchTerm(v))
	}
	if tags, _ := cmd.Flags().GetStringSlice("tag"); len(tags) > 0 {
		state = filter.Reduce(state, filter.SetTags(tags))
	}
	if v, _ := cmd.Flags().GetInt("size"); v > 0 {
		state = filter.Reduce(state, filter.SetPageSize(v))
	}
	// Page last: the filter flags above reset it to 1.
	if v, _ := cmd.Flags().GetInt("page"); v > 0 {
		state = filter.Reduce(state, filter.SetPage(v))
	}
	return state
}

func renderPage(state filter.State, page *query.Page) {
	if page.TotalItems == 0 {
		fmt.Println(dimStyle.Render("No projects match the current filter."))
		return
	}

	compact := smallScreen()
	if !compact {
		fmt.Println(headerStyle.Render(fmt.Sprintf("%-22s %-10s %-8s %s", "TITLE", "STATUS", "SHAPE", "TAGS")))
	}
	for _, p := range page.Items {
		style, ok := statusStyles[p.Status]
		if !ok {
			style = dimStyle
		}
		if compact {
			fmt.Printf("%s %s\n", style.Render(string(p.Status)), p.Title)
			continue
		}
		fmt.Printf("%-22s %s %-8s %s\n",
			truncate(p.Title, 22),
			style.Render(fmt.Sprintf("%-10s", p.Status)),
			p.DrillShape,
			dimStyle.Render(strings.Join(p.Tags, ",")))
	}

	fmt.Println(dimStyle.Render(fmt.Sprintf(
		"page %d/%d, %d projects", state.CurrentPage, page.TotalPages, page.TotalItems)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// smallScreen samples the terminal width once; narrow terminals get
// the compact single-column rendering, matching the dashboard's
// device-aware default view.
func smallScreen() bool {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return false
	}
	return width < 80
}

func init() {
	lsCmd.Flags().String("status", "", "status tab (everything, active, or a specific status)")
	lsCmd.Flags().String("company", "", "filter by company id")
	lsCmd.Flags().String("artist", "", "filter by artist id")
	lsCmd.Flags().String("shape", "", "filter by drill shape (round, square)")
	lsCmd.Flags().String("search", "", "free-text title search")
	lsCmd.Flags().StringSlice("tag", nil, "filter by tag id (repeatable, all must match)")
	lsCmd.Flags().Int("page", 0, "page number")
	lsCmd.Flags().Int("size", 0, "page size (10, 25, 50, 100)")
	lsCmd.Flags().Bool("resume", false, "restore the saved navigation context first")
	rootCmd.AddCommand(lsCmd)
}
