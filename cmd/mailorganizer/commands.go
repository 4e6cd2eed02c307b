package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/mail-organizer/internal/app"
	"github.com/nhle/mail-organizer/internal/engine"
	"github.com/nhle/mail-organizer/internal/export"
	"github.com/nhle/mail-organizer/internal/jobs"
	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/rules"
)

var (
	daysFlag   int
	exportFlag string
	jsonFlag   bool
	limitFlag  int
	cronFlag   string
	ruleName   string
	ruleType   string
	ruleValue  string
	ruleFolder string
	replyOn    bool
	replyText  string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the terminal UI",
	RunE:  runTUI,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze recent mail and print the overview",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "File unseen mail by rule and send auto-replies once",
	Args:  cobra.NoArgs,
	RunE:  runProcess,
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "List recent messages whose subject contains QUERY",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show or add filing rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List filing rules",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a filing rule",
	Args:  cobra.NoArgs,
	RunE:  runRulesAdd,
}

var autoReplyCmd = &cobra.Command{
	Use:   "autoreply",
	Short: "Show or change the auto-reply",
}

var autoReplyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the auto-reply settings",
	Args:  cobra.NoArgs,
	RunE:  runAutoReplyShow,
}

var autoReplySetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the auto-reply settings",
	Args:  cobra.NoArgs,
	RunE:  runAutoReplySet,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent analysis, processing and search runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process unseen mail on a cron schedule until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	analyzeCmd.Flags().IntVar(&daysFlag, "days", 0, "Analysis period in days (default analysis.default_days)")
	analyzeCmd.Flags().StringVar(&exportFlag, "export", "", "Also write the summary to this .xlsx file")
	analyzeCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the summary as JSON")

	processCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the report as JSON")

	searchCmd.Flags().IntVar(&daysFlag, "days", 0, "Search period in days (default analysis.default_days)")

	rulesAddCmd.Flags().StringVar(&ruleName, "name", "", "Rule name")
	rulesAddCmd.Flags().StringVar(&ruleType, "type", string(model.ConditionSubject), "Condition type: from, subject or body")
	rulesAddCmd.Flags().StringVar(&ruleValue, "value", "", "Text to look for")
	rulesAddCmd.Flags().StringVar(&ruleFolder, "folder", "", "Folder to move matches to")
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd)

	autoReplySetCmd.Flags().BoolVar(&replyOn, "enabled", false, "Send the auto-reply while processing")
	autoReplySetCmd.Flags().StringVar(&replyText, "message", "", "Reply body (unchanged when empty)")
	autoReplyCmd.AddCommand(autoReplyShowCmd, autoReplySetCmd)

	historyCmd.Flags().IntVar(&limitFlag, "limit", 20, "Number of runs to show")

	watchCmd.Flags().StringVar(&cronFlag, "cron", "", "Cron expression (default schedule.process_cron)")

	rootCmd.AddCommand(tuiCmd, analyzeCmd, processCmd, searchCmd, rulesCmd,
		autoReplyCmd, historyCmd, watchCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	runner := jobs.NewRunner(jobs.WithLogger(ws.logger))
	defer runner.Shutdown()

	if spec := ws.cfg.Schedule.ProcessCron; spec != "" {
		sched := jobs.NewScheduler(runner, ws.logger)
		if err := sched.Add(spec, model.RunProcessing, processJob(ws.engine)); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	m := app.New(app.Deps{
		Engine:     ws.engine,
		Runner:     runner,
		Config:     ws.cfg,
		ConfigPath: configFlag,
		Logger:     ws.logger,
		Creds:      ws.credentials(),
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(os.Stderr)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	if err := ws.connect(ctx); err != nil {
		return err
	}
	s, err := ws.engine.Analyze(ctx, ws.days())
	if err != nil {
		return err
	}

	if exportFlag != "" {
		if err := export.WriteXLSX(s, exportFlag); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Exported", exportFlag)
	}
	if jsonFlag {
		return printJSON(cmd, s)
	}
	printSummary(cmd.OutOrStdout(), s)
	return nil
}

func runProcess(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(os.Stderr)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	if err := ws.connect(ctx); err != nil {
		return err
	}
	report, err := ws.engine.Process(ctx)
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(cmd, report)
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(os.Stderr)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	if err := ws.connect(ctx); err != nil {
		return err
	}
	hits, err := ws.engine.Search(ctx, strings.Join(args, " "), ws.days())
	if err != nil {
		return err
	}
	printHits(cmd.OutOrStdout(), hits)
	return nil
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(os.Stderr)
	if err != nil {
		return err
	}
	defer ws.Close()

	printRules(cmd.OutOrStdout(), ws.engine.Rules())
	return nil
}

func runRulesAdd(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(os.Stderr)
	if err != nil {
		return err
	}
	defer ws.Close()

	rule := model.Rule{
		Name:   ruleName,
		Type:   model.ConditionType(strings.ToLower(ruleType)),
		Value:  ruleValue,
		Folder: ruleFolder,
	}
	if err := ws.engine.AddRule(rule); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added rule %q\n", rule.Name)
	return nil
}

func runAutoReplyShow(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(os.Stderr)
	if err != nil {
		return err
	}
	defer ws.Close()

	printAutoReply(cmd.OutOrStdout(), ws.engine.AutoReply())
	return nil
}

func runAutoReplySet(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(os.Stderr)
	if err != nil {
		return err
	}
	defer ws.Close()

	settings := ws.engine.AutoReply()
	if cmd.Flags().Changed("enabled") {
		settings.Enabled = replyOn
	}
	if replyText != "" {
		settings.Message = replyText
	}
	if err := ws.engine.SaveAutoReply(settings); err != nil {
		return err
	}
	printAutoReply(cmd.OutOrStdout(), settings)
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(os.Stderr)
	if err != nil {
		return err
	}
	defer ws.Close()

	runs, err := ws.engine.History(cmd.Context(), limitFlag)
	if err != nil {
		return err
	}
	printHistory(cmd.OutOrStdout(), runs)
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ws, err := openWorkspace(os.Stderr)
	if err != nil {
		return err
	}
	defer ws.Close()

	spec := cronFlag
	if spec == "" {
		spec = ws.cfg.Schedule.ProcessCron
	}
	if spec == "" {
		return errors.New("no schedule: set schedule.process_cron or pass --cron")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ws.connect(ctx); err != nil {
		return err
	}

	runner := jobs.NewRunner(jobs.WithLogger(ws.logger))
	defer runner.Shutdown()
	sched := jobs.NewScheduler(runner, ws.logger)
	if err := sched.Add(spec, model.RunProcessing, processJob(ws.engine)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()
	ws.logger.Info("watching mailbox", "address", ws.cfg.Mailbox.Address, "schedule", spec)

	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			ws.logger.Info("stopping")
			return nil
		case res := <-runner.Results():
			if res.Err != nil {
				fmt.Fprintf(out, "%s  processing failed: %v\n", res.Finished.Format("2006-01-02 15:04:05"), res.Err)
				continue
			}
			if report, ok := res.Value.(*rules.Report); ok {
				fmt.Fprintf(out, "%s  ", res.Finished.Format("2006-01-02 15:04:05"))
				printReport(out, report)
			}
		}
	}
}

// processJob runs one processing batch on the current session. A
// disconnected session fails the batch with mailbox.ErrNotConnected.
func processJob(e *engine.Engine) jobs.Job {
	return func(ctx context.Context) (any, error) {
		return e.Process(ctx)
	}
}

func (ws *workspace) days() int {
	if daysFlag > 0 {
		return daysFlag
	}
	if ws.cfg.Analysis.DefaultDays > 0 {
		return ws.cfg.Analysis.DefaultDays
	}
	return 30
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
