package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lifeplanner/core/internal/adapters/fixture"
	"github.com/lifeplanner/core/internal/application/services"
	"github.com/lifeplanner/core/internal/domain/entities"
	"github.com/lifeplanner/core/internal/ports"
)

// NewTreeCommand prints the hierarchy.
func NewTreeCommand() *cobra.Command {
	var (
		includeArchived bool
		format          string
	)
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the life area hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ws.Refresh(cmd.Context()); err != nil {
				return err
			}
			return writeTree(cmd.OutOrStdout(), s.ws.Tree(includeArchived), format)
		},
	}
	cmd.Flags().BoolVar(&includeArchived, "include-archived", false, "Show archived entities")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	return cmd
}

// NewDueCommand lists open goals and tasks by date, due today by default.
func NewDueCommand() *cobra.Command {
	var (
		overdue bool
		days    int
		format  string
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List open goals and tasks that are due or overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1, got %d", days)
			}
			now := time.Now()
			from, to := dueWindow(now, overdue, days)

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ws.Refresh(cmd.Context()); err != nil {
				return err
			}
			items, err := s.ws.Due(cmd.Context(), from, to, now)
			if err != nil {
				return err
			}
			return writeDue(cmd.OutOrStdout(), items, format)
		},
	}
	cmd.Flags().BoolVar(&overdue, "overdue", false, "List entities whose date has passed")
	cmd.Flags().IntVar(&days, "days", 1, "Number of days from the start of today to include")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	cmd.MarkFlagsMutuallyExclusive("overdue", "days")
	return cmd
}

// dueWindow is [now) for overdue, otherwise whole local days starting today.
func dueWindow(now time.Time, overdue bool, days int) (from, to *time.Time) {
	if overdue {
		return nil, &now
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, days)
	return &start, &end
}

// NewSeedCommand loads a YAML fixture into the configured backend.
func NewSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create entities from a YAML fixture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := fixture.LoadFile(args[0])
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			summary, err := fixture.Seed(cmd.Context(), s.ws, doc)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %d life areas, %d goals, %d projects, %d tasks (%d archived)\n",
				summary.LifeAreas, summary.Goals, summary.Projects, summary.Tasks, summary.Archived)
			return err
		},
	}
}

// NewCascadeCommand builds "archive" or "restore". Against a server the
// cascade runs there, so a restore undoes exactly what an earlier archive
// did. Locally the provenance only lives for one invocation.
func NewCascadeCommand(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <kind> <id>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " an entity and its subtree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args)
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.remote {
				s.logger.Warnw("No remote.base_url configured, cascade provenance is kept for this invocation only")
			}

			var report *ports.CascadeReport
			if action == "archive" {
				report, err = s.cascade.ArchiveCascade(cmd.Context(), ref)
			} else {
				report, err = s.cascade.RestoreCascade(cmd.Context(), ref)
			}
			if err != nil {
				return err
			}
			writeReport(cmd.OutOrStdout(), action, report)
			if report.State == "partial_failure" {
				return fmt.Errorf("%s stopped at %s: %s", action, report.Failed, report.Error)
			}
			return nil
		},
	}
}

// NewCompleteCommand builds "complete" or "uncomplete".
func NewCompleteCommand(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <kind> <id>",
		Short: "Mark a goal, project or task as " + action + "d",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseRef(args)
			if err != nil {
				return err
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.ws.Refresh(cmd.Context()); err != nil {
				return err
			}
			if action == "complete" {
				_, err = s.ws.Complete(cmd.Context(), ref)
			} else {
				_, err = s.ws.Uncomplete(cmd.Context(), ref)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %sd\n", ref, action)
			return nil
		},
	}
}

func parseRef(args []string) (entities.Ref, error) {
	kind, err := entities.ParseKind(args[0])
	if err != nil {
		return entities.Ref{}, err
	}
	return entities.Ref{Kind: kind, ID: args[1]}, nil
}

// writeFormatted encodes v as json or yaml, or calls text for the text format.
func writeFormatted(w io.Writer, v interface{}, format string, text func()) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		text()
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func writeTree(w io.Writer, nodes []services.TreeNode, format string) error {
	if nodes == nil {
		nodes = []services.TreeNode{}
	}
	return writeFormatted(w, nodes, format, func() {
		for _, n := range nodes {
			writeNode(w, n, 0)
		}
	})
}

func writeDue(w io.Writer, items []services.DueItem, format string) error {
	if items == nil {
		items = []services.DueItem{}
	}
	return writeFormatted(w, items, format, func() {
		for _, it := range items {
			line := fmt.Sprintf("%s  %s [%s]", it.Due.Local().Format("2006-01-02 15:04"), it.Label, it.Ref)
			if it.Parent != "" {
				line += " in " + it.Parent
			}
			if it.Overdue {
				line += " (overdue)"
			}
			fmt.Fprintln(w, line)
		}
	})
}

func writeNode(w io.Writer, n services.TreeNode, depth int) {
	suffix := ""
	switch {
	case n.Missing:
		suffix = " (missing)"
	case n.Archived:
		suffix = " (archived)"
	}
	fmt.Fprintf(w, "%s%s [%s]%s\n", strings.Repeat("  ", depth), n.Label, n.Ref, suffix)
	for _, child := range n.Children {
		writeNode(w, child, depth+1)
	}
}

func writeReport(w io.Writer, action string, r *ports.CascadeReport) {
	fmt.Fprintf(w, "Operation %s: %s %s, state %s\n", r.OperationID, action, r.Origin, r.State)
	for _, ref := range r.Succeeded {
		fmt.Fprintf(w, "  ok       %s\n", ref)
	}
	if r.Failed != nil {
		fmt.Fprintf(w, "  failed   %s: %s\n", r.Failed, r.Error)
	}
	for _, ref := range r.Pending {
		fmt.Fprintf(w, "  pending  %s\n", ref)
	}
	for _, ref := range r.Skipped {
		fmt.Fprintf(w, "  skipped  %s\n", ref)
	}
}
