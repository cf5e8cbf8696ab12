package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/proboscis/claude-block-checker/cli/internal/aggregator"
	"github.com/proboscis/claude-block-checker/cli/internal/config"
	"github.com/proboscis/claude-block-checker/cli/internal/output"
	"github.com/proboscis/claude-block-checker/cli/internal/report"
	"github.com/proboscis/claude-block-checker/internal/logger"
	"github.com/proboscis/claude-block-checker/internal/model"
	"github.com/proboscis/claude-block-checker/internal/parser"
	"github.com/proboscis/claude-block-checker/internal/pricing"
)

const version = "0.1.0"

// options holds one parsed command line. budgetSet and offlineSet record
// whether the user passed the flag explicitly, so an explicit --budget 0 or
// --offline=false is not clobbered by the config file.
type options struct {
	command      string
	profile      string
	budget       int64
	budgetSet    bool
	onParseError string
	since        string
	until        string
	timezone     string
	jsonOut      bool
	detailed     bool
	compact      bool
	offline      bool
	offlineSet   bool
	notify       bool
	verbose      bool
	showHelp     bool
	showVer      bool
}

func main() {
	// Detect subcommand first
	command := "all"
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "check", "all", "list", "daily", "monthly", "config":
			command = args[0]
			args = args[1:]
		}
	}

	if command == "config" {
		runConfig(args)
		return
	}

	opts, err := parseArgs(command, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if opts.showVer {
		fmt.Printf("claude-block-checker version %s\n", version)
		return
	}

	if opts.showHelp {
		return
	}

	logger.SetVerbose(opts.verbose)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	opts.mergeConfig(cfg)

	policy, err := parser.ParsePolicy(opts.onParseError)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	checker := &report.Checker{
		ProfilesDir:  cfg.ProfilesDir,
		Prices:       pricing.Load(opts.offline),
		ParseOptions: parser.Options{Policy: policy},
		TokenBudget:  opts.budget,
		Now:          time.Now().UTC(),
	}

	switch opts.command {
	case "list":
		runList(checker)
	case "check":
		if opts.profile == "" {
			fmt.Fprintf(os.Stderr, "Error: check requires a profile name.\n")
			os.Exit(1)
		}
		runCheck(checker, opts)
	case "all":
		runAll(checker, opts)
	case "daily", "monthly":
		runAggregate(checker, opts)
	}
}

// parseArgs parses one subcommand's arguments. flag.Parse stops at the
// first non-flag argument, so check's positional profile name is peeled
// off before parsing; flags keep working on either side of the name.
// Any argument left over after that is an error, never silently ignored.
func parseArgs(command string, args []string) (*options, error) {
	opts := &options{command: command}

	if command == "check" && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		opts.profile = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("claude-block-checker", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var profileFlag string
	fs.StringVar(&profileFlag, "profile", "", "Profile to check (default: all profiles)")
	fs.Int64Var(&opts.budget, "budget", 0, "Token budget per 5-hour block (0 = no limit estimate)")
	fs.StringVar(&opts.onParseError, "on-parse-error", "", "Malformed line handling: skip, collect, or fail")
	fs.StringVar(&opts.since, "since", "", "Start date filter (YYYYMMDD)")
	fs.StringVar(&opts.until, "until", "", "End date filter (YYYYMMDD)")
	fs.StringVar(&opts.timezone, "timezone", "", "Timezone for date grouping (e.g., America/New_York)")
	fs.BoolVar(&opts.jsonOut, "json", false, "Output as JSON")
	fs.BoolVar(&opts.detailed, "detailed", false, "Show burn rate and projection details")
	fs.BoolVar(&opts.detailed, "d", false, "Show burn rate and projection details")
	fs.BoolVar(&opts.compact, "compact", false, "Force compact table output")
	fs.BoolVar(&opts.compact, "c", false, "Force compact table output")
	fs.BoolVar(&opts.offline, "offline", false, "Use embedded pricing data (no network)")
	fs.BoolVar(&opts.notify, "notify", false, "Send a desktop notification when a limit is near")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&opts.showHelp, "help", false, "Show help")
	fs.BoolVar(&opts.showHelp, "h", false, "Show help")
	fs.BoolVar(&opts.showVer, "version", false, "Show version")
	fs.BoolVar(&opts.showVer, "v", false, "Show version")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `claude-block-checker - 5-hour block usage across Claude profiles

Usage: claude-block-checker [command] [options]

Commands:
  all       Check every profile (default)
  check     Check one profile
  list      List available profiles
  daily     Show daily usage report
  monthly   Show monthly usage report
  config    Configure defaults

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  claude-block-checker                     Check all profiles
  claude-block-checker check work -d
  claude-block-checker all --json --budget 500000
  claude-block-checker daily --profile work --since 20250101
  claude-block-checker monthly --timezone America/New_York
  claude-block-checker config --budget 500000
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "budget":
			opts.budgetSet = true
		case "offline":
			opts.offlineSet = true
		}
	})

	if profileFlag != "" {
		opts.profile = profileFlag
	}

	// A trailing positional still names the profile, e.g. "check -d work".
	rest := fs.Args()
	if command == "check" && opts.profile == "" && len(rest) > 0 {
		opts.profile = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument: %q", rest[0])
	}

	if opts.showHelp {
		fs.Usage()
	}

	return opts, nil
}

// mergeConfig fills settings the user left unset from the config file.
// Explicit flags always win.
func (o *options) mergeConfig(cfg *config.Config) {
	if !o.budgetSet {
		o.budget = cfg.TokenBudget
	}
	if !o.offlineSet {
		o.offline = cfg.Offline
	}
	if o.onParseError == "" {
		o.onParseError = cfg.OnParseError
	}
}

func runList(checker *report.Checker) {
	names, err := checker.ListProfiles()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(names) == 0 {
		fmt.Printf("No profiles found in %s\n", checker.ProfilesDir)
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func runCheck(checker *report.Checker, opts *options) {
	usage, err := checker.CheckProfile(opts.profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if opts.jsonOut {
		output.PrintProfileJSON(usage)
	} else {
		output.PrintProfile(usage, output.ReportOptions{Detailed: opts.detailed})
	}

	if opts.notify {
		notifyIfNearLimit([]report.ProfileUsage{usage})
	}
}

func runAll(checker *report.Checker, opts *options) {
	usages, summary, err := checker.CheckAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if opts.jsonOut {
		output.PrintProfilesJSON(usages, summary)
	} else {
		output.PrintProfiles(usages, summary, output.ReportOptions{Detailed: opts.detailed})
	}

	if opts.notify {
		notifyIfNearLimit(usages)
	}
}

// notifyIfNearLimit raises a desktop notification for any profile within an
// hour of its token budget.
func notifyIfNearLimit(usages []report.ProfileUsage) {
	for _, usage := range usages {
		if usage.MinutesUntilLimit == nil || *usage.MinutesUntilLimit >= 60 {
			continue
		}
		var body string
		if *usage.MinutesUntilLimit == 0 {
			body = fmt.Sprintf("Profile %s has exhausted its token budget.", usage.Name)
		} else {
			body = fmt.Sprintf("Profile %s hits its token budget in about %d minutes.", usage.Name, *usage.MinutesUntilLimit)
		}
		if err := beeep.Notify("claude-block-checker", body, ""); err != nil {
			logger.Warn("notification failed", "error", err)
		}
	}
}

func runAggregate(checker *report.Checker, opts *options) {
	aggOpts := aggregator.Options{}

	if opts.since != "" {
		t, err := time.Parse("20060102", opts.since)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Invalid --since date format. Use YYYYMMDD.\n")
			os.Exit(1)
		}
		aggOpts.Since = t
	}

	if opts.until != "" {
		t, err := time.Parse("20060102", opts.until)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Invalid --until date format. Use YYYYMMDD.\n")
			os.Exit(1)
		}
		// Include the entire day
		aggOpts.Until = t.Add(24*time.Hour - time.Second)
	}

	if opts.timezone != "" {
		loc, err := time.LoadLocation(opts.timezone)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Invalid timezone: %s\n", opts.timezone)
			os.Exit(1)
		}
		aggOpts.Timezone = loc
	}

	records, err := collectRecords(checker, opts.profile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading usage data: %v\n", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Printf("No usage data found in %s\n", checker.ProfilesDir)
		return
	}

	// Filter by date range
	records = aggregator.FilterRecords(records, aggOpts)

	if len(records) == 0 {
		fmt.Println("No usage data found for the specified date range.")
		return
	}

	var results []model.AggregatedUsage
	var title string
	if opts.command == "daily" {
		results = aggregator.ByDay(records, aggOpts)
		title = "Date"
	} else {
		results = aggregator.ByMonth(records, aggOpts)
		title = "Month"
	}

	if opts.jsonOut {
		output.PrintJSON(results)
		return
	}
	output.PrintTableWithBreakdownOpts(results, title, output.TableOptions{ForceCompact: opts.compact})
}

// collectRecords loads one profile's records, or every profile's merged
// together when no profile is named.
func collectRecords(checker *report.Checker, profile string) ([]model.UsageRecord, error) {
	if profile != "" {
		return checker.LoadProfileRecords(profile)
	}

	names, err := checker.ListProfiles()
	if err != nil {
		return nil, err
	}

	var records []model.UsageRecord
	for _, name := range names {
		profileRecords, err := checker.LoadProfileRecords(name)
		if err != nil {
			return nil, err
		}
		records = append(records, profileRecords...)
	}
	return records, nil
}

func runConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	var (
		profilesDir  string
		budget       int64
		onParseError string
		show         bool
	)
	fs.StringVar(&profilesDir, "profiles-dir", "", "Directory holding profile directories")
	fs.Int64Var(&budget, "budget", -1, "Default token budget per 5-hour block")
	fs.StringVar(&onParseError, "on-parse-error", "", "Default malformed line handling: skip, collect, or fail")
	fs.BoolVar(&show, "show", false, "Show current configuration")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: claude-block-checker config [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  claude-block-checker config --budget 500000
  claude-block-checker config --profiles-dir ~/claude-profiles
  claude-block-checker config --show
`)
	}

	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if show {
		fmt.Printf("Profiles dir: %s\n", cfg.ProfilesDir)
		fmt.Printf("Token budget: %d\n", cfg.TokenBudget)
		fmt.Printf("On parse error: %s\n", cfg.OnParseError)
		fmt.Printf("Offline: %v\n", cfg.Offline)
		return
	}

	if profilesDir == "" && budget < 0 && onParseError == "" {
		fs.Usage()
		return
	}

	if profilesDir != "" {
		cfg.ProfilesDir = profilesDir
	}
	if budget >= 0 {
		cfg.TokenBudget = budget
	}
	if onParseError != "" {
		if _, err := parser.ParsePolicy(onParseError); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.OnParseError = onParseError
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration saved.")
}
