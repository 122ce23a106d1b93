package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// cli holds the state shared by commands: flags read before the app is
// built and the app itself.
type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configPath string
	printMail  bool

	app     *App
	cleanup func()
}

func (c *cli) ensureApp() (*App, error) {
	if c.app != nil {
		return c.app, nil
	}
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return nil, err
	}
	app, cleanup, err := bootstrap(cfg, bootstrapOptions{
		In:        c.in,
		Out:       c.out,
		ErrOut:    c.errOut,
		PrintMail: c.printMail,
	})
	if err != nil {
		return nil, err
	}
	c.app, c.cleanup = app, cleanup
	return app, nil
}

func (c *cli) close() {
	if c.cleanup != nil {
		c.cleanup()
		c.app, c.cleanup = nil, nil
	}
}

func parseDepartmentFlag(value string) (Department, error) {
	if value == "" {
		return "", nil
	}
	d, err := ParseDepartment(value)
	if err != nil {
		return "", newValidationError("department", err.Error())
	}
	return d, nil
}

func SetupCommands(c *cli) *cobra.Command {
	// root command
	rootCmd := &cobra.Command{
		Use:           "shiftswap",
		Short:         "Log shift substitutions and notify the distribution lists",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := c.ensureApp()
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", DefaultConfigPath(), "path to config file")

	rootCmd.AddCommand(newFormCmd(c))
	rootCmd.AddCommand(newJournalCmd(c))
	rootCmd.AddCommand(newRosterCmd(c))
	rootCmd.AddCommand(newAgenciesCmd(c))
	rootCmd.AddCommand(newWatchCmd(c))

	return rootCmd
}

func completeEmployeeIDs(c *cli) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		app, err := c.ensureApp()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		var ids []string
		for _, e := range app.roster.List(cmd.Context()) {
			ids = append(ids, e.ID+"\t"+e.Name)
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}

func completeEntryIDs(c *cli) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		app, err := c.ensureApp()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		var ids []string
		for _, e := range app.journal.List(cmd.Context()) {
			ids = append(ids, fmt.Sprintf("%s\t%s %s → %s", e.ID, e.Date, e.AbsentEmployee, e.SubstituteEmployee))
		}
		return ids, cobra.ShellCompDirectiveNoFileComp
	}
}

func completeEmployeeNames(c *cli) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		app, err := c.ensureApp()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return FilterNames(app.roster.Names(cmd.Context()), toComplete), cobra.ShellCompDirectiveNoFileComp
	}
}

// command for composing a substitution report
func newFormCmd(c *cli) *cobra.Command {
	var (
		absent, absentDept         string
		substitute, substituteDept string
		reason, shift, agency      string
		date                       string
		noRefresh                  bool
	)

	cmd := &cobra.Command{
		Use:     "form",
		Aliases: []string{"new"},
		Short:   "Fill in a substitution report and open the mail composer",
		Long: "Fill in a substitution report and open the mail composer.\n\n" +
			"With --absent, --substitute and --shift the report is submitted without prompts;\n" +
			"otherwise every field is asked for interactively.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app := c.app

			app.agencies.Load(ctx)
			if !noRefresh {
				app.RefreshAgencies(ctx)
			}

			form := NewForm(time.Now())
			form.AbsentEmployee = absent
			form.SubstituteEmployee = substitute
			form.Agency = agency
			if reason != "" {
				form.Reason = reason
			}
			if d, err := parseDepartmentFlag(absentDept); err != nil {
				return err
			} else if d != "" {
				form.AbsentDepartment = d
			}
			if d, err := parseDepartmentFlag(substituteDept); err != nil {
				return err
			} else if d != "" {
				form.SubstituteDepartment = d
			}
			if date != "" {
				parsed, err := time.ParseInLocation(DateLayout, date, time.Local)
				if err != nil {
					return newValidationError("date", "Nieprawidłowa data: "+date)
				}
				form.Date = parsed
			}

			form.Shift = Shift(shift)
			if absent == "" || substitute == "" || shift == "" {
				// ask only for what no flag set
				form.Reason = reason
				if absentDept == "" {
					form.AbsentDepartment = ""
				}
				if err := app.FillForm(ctx, &form); err != nil {
					return err
				}
			}

			return app.SubmitForm(ctx, form)
		},
	}

	cmd.Flags().StringVar(&absent, "absent", "", "absent employee name")
	cmd.Flags().StringVar(&absentDept, "absent-department", "", "absent employee department (Outbound|Inbound)")
	cmd.Flags().StringVar(&reason, "reason", "", fmt.Sprintf("absence reason (%q or %q)", ReasonPrivate, ReasonIllness))
	cmd.Flags().StringVar(&shift, "shift", "", "shift (D|M|N)")
	cmd.Flags().StringVar(&substitute, "substitute", "", "substitute employee name")
	cmd.Flags().StringVar(&substituteDept, "substitute-department", "", "substitute department (Outbound|Inbound)")
	cmd.Flags().StringVar(&agency, "agency", "", "staffing agency of an external substitute")
	cmd.Flags().StringVar(&date, "date", "", "date of the absence (DD.MM.YYYY, default today)")
	cmd.Flags().BoolVar(&c.printMail, "print", false, "print the mailto URL instead of opening the mail client")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "use the cached agency list without fetching")

	_ = cmd.RegisterFlagCompletionFunc("absent", completeEmployeeNames(c))
	_ = cmd.RegisterFlagCompletionFunc("substitute", completeEmployeeNames(c))
	_ = cmd.RegisterFlagCompletionFunc("shift", cobra.FixedCompletions([]string{"D", "M", "N"}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("reason", cobra.FixedCompletions(Reasons, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// commands for the substitution history
func newJournalCmd(c *cli) *cobra.Command {
	journalCmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"history"},
		Short:   "Show the substitution history, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.ShowJournal(cmd.Context())
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.ShowJournal(cmd.Context())
		},
	}

	showCmd := &cobra.Command{
		Use:               "show <id>",
		Short:             "Show one journal entry",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeEntryIDs(c),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.ShowJournalEntry(cmd.Context(), args[0])
		},
	}

	var yes bool
	deleteCmd := &cobra.Command{
		Use:               "delete <id>",
		Aliases:           []string{"rm"},
		Short:             "Delete a journal entry",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeEntryIDs(c),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.DeleteJournalEntry(cmd.Context(), args[0], yes)
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	var (
		format, out string
		upload      bool
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the journal as JSONL or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" && !upload {
				out = "-"
			}
			return c.app.ExportJournal(cmd.Context(), format, out, upload)
		},
	}
	exportCmd.Flags().StringVarP(&format, "format", "f", FormatJSONL, "export format (jsonl|xlsx)")
	exportCmd.Flags().StringVarP(&out, "out", "o", "", `output file ("-" for stdout)`)
	exportCmd.Flags().BoolVar(&upload, "s3", false, "upload to the configured S3 bucket")
	_ = exportCmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions([]string{FormatJSONL, FormatXLSX}, cobra.ShellCompDirectiveNoFileComp))

	journalCmd.AddCommand(listCmd, showCmd, deleteCmd, exportCmd)
	return journalCmd
}

// commands for the employee roster
func newRosterCmd(c *cli) *cobra.Command {
	rosterCmd := &cobra.Command{
		Use:     "roster",
		Aliases: []string{"employees"},
		Short:   "Manage the employee roster",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.ShowRoster(cmd.Context())
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.ShowRoster(cmd.Context())
		},
	}

	var addDept string
	addCmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dept, err := parseDepartmentFlag(addDept)
			if err != nil {
				return err
			}
			return c.app.AddEmployee(cmd.Context(), args[0], dept)
		},
	}
	addCmd.Flags().StringVarP(&addDept, "department", "d", string(DepartmentOutbound), "department (Outbound|Inbound)")

	var editName, editDept string
	editCmd := &cobra.Command{
		Use:               "edit <id>",
		Short:             "Change an employee's name or department",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeEmployeeIDs(c),
		RunE: func(cmd *cobra.Command, args []string) error {
			dept, err := parseDepartmentFlag(editDept)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") && editName == "" {
				return newValidationError("name", msgEmployeeNameRequired)
			}
			return c.app.EditEmployee(cmd.Context(), args[0], editName, dept)
		},
	}
	editCmd.Flags().StringVarP(&editName, "name", "n", "", "new name")
	editCmd.Flags().StringVarP(&editDept, "department", "d", "", "new department (Outbound|Inbound)")

	var yes bool
	deleteCmd := &cobra.Command{
		Use:               "delete <id>",
		Aliases:           []string{"rm"},
		Short:             "Delete an employee",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeEmployeeIDs(c),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.DeleteEmployee(cmd.Context(), args[0], yes)
		},
	}
	deleteCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Add employees from the remote name list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.ImportRoster(cmd.Context())
		},
	}

	for _, sub := range []*cobra.Command{addCmd, editCmd} {
		_ = sub.RegisterFlagCompletionFunc("department", cobra.FixedCompletions(
			[]string{string(DepartmentOutbound), string(DepartmentInbound)}, cobra.ShellCompDirectiveNoFileComp))
	}

	rosterCmd.AddCommand(listCmd, addCmd, editCmd, deleteCmd, importCmd)
	return rosterCmd
}

// commands for the agency directory
func newAgenciesCmd(c *cli) *cobra.Command {
	agenciesCmd := &cobra.Command{
		Use:   "agencies",
		Short: "Show the staffing agency directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.agencies.Load(cmd.Context())
			return c.app.ShowAgencies(cmd.Context())
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List agencies from the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.agencies.Load(cmd.Context())
			return c.app.ShowAgencies(cmd.Context())
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the agency list and update the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c.app.agencies.Load(ctx)
			c.app.RefreshAgencies(ctx)
			return c.app.ShowAgencies(ctx)
		},
	}

	agenciesCmd.AddCommand(listCmd, refreshCmd)
	return agenciesCmd
}

// command for following store writes
func newWatchCmd(c *cli) *cobra.Command {
	var topic string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print roster, journal and agency changes as they happen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			url := c.app.cfg.NATS.URL
			if url == "" {
				return fmt.Errorf("nats.url is not configured; watch needs it to see other processes")
			}
			sub, err := NewNATSSubscriber(url)
			if err != nil {
				return err
			}
			defer sub.Close()

			return c.app.Watch(ctx, topic, sub)
		},
	}
	cmd.Flags().StringVar(&topic, "topic", TopicAll, "topic to follow (NATS wildcards allowed)")
	return cmd
}
