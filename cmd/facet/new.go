package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dlowans/facet/internal/project"
	"github.com/dlowans/facet/internal/store"
)

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Add a project",
	Long: `Add a diamond-painting project. With no arguments an interactive
form collects the details; a title argument plus flags skips the form.

Example usage:
  facet new                                    # interactive
  facet new "Mountain Sunset" --status stash --shape round`,
	Args: cobra.MaximumNArgs(1),
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

		p := project.Project{UserID: user}
		if len(args) == 1 {
			p.Title = args[0]
			status, _ := cmd.Flags().GetString("status")
			p.Status = project.Status(status)
			p.DrillShape, _ = cmd.Flags().GetString("shape")
			p.CompanyID, _ = cmd.Flags().GetString("company")
			p.ArtistID, _ = cmd.Flags().GetString("artist")
			p.MiniKit, _ = cmd.Flags().GetBool("mini")
			tags, _ := cmd.Flags().GetStringSlice("tag")
			p.Tags = tags
		} else {
			if err := projectForm(&p); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		p.ID = newProjectID(p.Title)
		created, err := st.CreateProject(ctx, p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create project: %v\n", err)
			os.Exit(1)
		}

		logger.Printf("created project %s (%s)", created.ID, created.Title)
		fmt.Printf("Created %s: %s [%s]\n", created.ID, created.Title, created.Status)
	},
}

// projectForm collects project details interactively.
func projectForm(p *project.Project) error {
	statusOpts := make([]huh.Option[string], 0, len(project.Statuses))
	for _, s := range project.Statuses {
		statusOpts = append(statusOpts, huh.NewOption(string(s), string(s)))
	}

	var status, shape, tags string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}).
				Value(&p.Title),
			huh.NewSelect[string]().
				Title("Status").
				Options(statusOpts...).
				Value(&status),
			huh.NewSelect[string]().
				Title("Drill shape").
				Options(
					huh.NewOption("round", "round"),
					huh.NewOption("square", "square"),
				).
				Value(&shape),
			huh.NewInput().
				Title("Tags (comma separated)").
				Value(&tags),
			huh.NewConfirm().
				Title("Mini kit?").
				Value(&p.MiniKit),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("form aborted: %w", err)
	}

	p.Status = project.Status(status)
	p.DrillShape = shape
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			p.Tags = append(p.Tags, t)
		}
	}
	return nil
}

// newProjectID derives a unique id from the title and creation time.
func newProjectID(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	if len(slug) > 24 {
		slug = slug[:24]
	}
	return fmt.Sprintf("%s-%d", strings.Trim(slug, "-"), time.Now().UnixNano()%1_000_000)
}

func init() {
	newCmd.Flags().String("status", "stash", "initial status")
	newCmd.Flags().String("shape", "", "drill shape (round, square)")
	newCmd.Flags().String("company", "", "company id")
	newCmd.Flags().String("artist", "", "artist id")
	newCmd.Flags().StringSlice("tag", nil, "tag id (repeatable)")
	newCmd.Flags().Bool("mini", false, "mark as a mini kit")
	rootCmd.AddCommand(newCmd)
}
