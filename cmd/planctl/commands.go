package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ashureev/altar-plans/internal/domain"
	"github.com/ashureev/altar-plans/internal/plans"
	"github.com/ashureev/altar-plans/internal/progress"
	"github.com/spf13/cobra"
)

type options struct {
	dir       string
	plansFile string
	owner     string
	asJSON    bool
}

func (o *options) catalog() (*plans.Catalog, error) {
	static := plans.BuiltIn()
	if o.plansFile != "" {
		extra, err := plans.LoadFile(o.plansFile)
		if err != nil {
			return nil, err
		}
		static = append(static, extra...)
	}
	return plans.NewCatalog(static, nil)
}

func (o *options) tracker() *progress.Tracker {
	return progress.NewTracker(progress.NewLocal(o.dir, nil).ForUser(o.owner))
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "planctl",
		Short: "Track Bible reading plan progress locally",
		Long: `planctl records which days of a reading plan you have read.

Progress is kept in a single JSON file per owner under --dir. If the
directory cannot be used, commands still run but nothing is saved.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dir, "dir", defaultDir(), "local progress directory")
	root.PersistentFlags().StringVar(&opts.plansFile, "plans-file", "", "YAML file with extra plans")
	root.PersistentFlags().StringVar(&opts.owner, "owner", "local", "progress owner name")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON")

	root.AddCommand(
		plansCmd(opts),
		showCmd(opts),
		toggleCmd(opts),
		mutateCmd(opts, "complete", "Mark a plan finished without per-day tracking", (*progress.Tracker).MarkComplete),
		mutateCmd(opts, "reset", "Clear all progress on a plan", (*progress.Tracker).Reset),
	)
	return root
}

func plansCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List available plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := opts.catalog()
			if err != nil {
				return err
			}
			all, err := catalog.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.asJSON {
				return writeJSON(out, all)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDAYS\tTITLE")
			for _, p := range all {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", p.ID, p.Duration, p.Title)
			}
			return tw.Flush()
		},
	}
}

func showCmd(opts *options) *cobra.Command {
	var day int
	cmd := &cobra.Command{
		Use:   "show <plan>",
		Short: "Show progress on a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := opts.plan(cmd, args[0])
			if err != nil {
				return err
			}
			p, err := opts.tracker().GetOrCreate(cmd.Context(), plan.ID, plan.Duration)
			if err != nil {
				return err
			}
			if day != 0 {
				return opts.printReading(cmd.OutOrStdout(), plan, p, day)
			}
			return opts.print(cmd.OutOrStdout(), plan, p)
		},
	}
	cmd.Flags().IntVar(&day, "day", 0, "show the passages for one day")
	return cmd
}

func toggleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <plan> <day>",
		Short: "Mark a day read, or unmark it if already read",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("day must be an integer: %q", args[1])
			}
			plan, err := opts.plan(cmd, args[0])
			if err != nil {
				return err
			}
			p, err := opts.tracker().ToggleDay(cmd.Context(), plan.ID, day, plan.Duration)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), plan, p)
		},
	}
}

type mutation func(*progress.Tracker, context.Context, string) (domain.PlanProgress, error)

func mutateCmd(opts *options, use, short string, fn mutation) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <plan>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := opts.plan(cmd, args[0])
			if err != nil {
				return err
			}
			p, err := fn(opts.tracker(), cmd.Context(), plan.ID)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), plan, p)
		},
	}
}

func (o *options) plan(cmd *cobra.Command, id string) (*domain.StudyPlan, error) {
	catalog, err := o.catalog()
	if err != nil {
		return nil, err
	}
	return catalog.Get(cmd.Context(), id)
}

func (o *options) print(out io.Writer, plan *domain.StudyPlan, p domain.PlanProgress) error {
	if o.asJSON {
		return writeJSON(out, struct {
			domain.PlanProgress
			Duration int `json:"duration"`
			Percent  int `json:"percent"`
		}{p, plan.Duration, p.Percent(plan.Duration)})
	}

	status := "in progress"
	if p.Completed {
		status = "completed"
	}
	days := make([]string, len(p.CompletedDays))
	for i, d := range p.CompletedDays {
		days[i] = strconv.Itoa(d)
	}
	fmt.Fprintf(out, "%s: %d/%d days (%d%%), %s\n", plan.Title, len(p.CompletedDays), plan.Duration, p.Percent(plan.Duration), status)
	if len(days) > 0 {
		fmt.Fprintf(out, "read: %s\n", strings.Join(days, ", "))
	}
	return nil
}

func (o *options) printReading(out io.Writer, plan *domain.StudyPlan, p domain.PlanProgress, day int) error {
	reading, ok := plan.ReadingFor(day)
	if !ok {
		return fmt.Errorf("%s has no reading for day %d", plan.ID, day)
	}
	if o.asJSON {
		return writeJSON(out, struct {
			domain.DailyReading
			Read bool `json:"read"`
		}{reading, p.HasDay(day)})
	}

	mark := " "
	if p.HasDay(day) {
		mark = "x"
	}
	fmt.Fprintf(out, "[%s] %s, day %d\n", mark, plan.Title, reading.Day)
	if reading.Heading != "" {
		fmt.Fprintln(out, reading.Heading)
	}
	for _, passage := range reading.Passages {
		fmt.Fprintf(out, "  %s\n", passage)
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
