package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/okabe-dev/repo-activity/internal/cache"
	"github.com/okabe-dev/repo-activity/internal/domain"
	"github.com/okabe-dev/repo-activity/internal/gateway"
	"github.com/okabe-dev/repo-activity/internal/report"
	"github.com/okabe-dev/repo-activity/internal/usecase"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize opened/merged PRs and opened/closed issues over a date range",
	Long: `Counts the pull requests opened and merged and the issues opened and
closed in a repository, split into collaborators (authors the platform
marks OWNER, MEMBER or COLLABORATOR) and community (everyone else).

Date bounds take most common formats, absolute or relative:

  repo-activity summary --repo immunant/c2rust --after 2022-09-09
  repo-activity summary --after "2 weeks ago" --list`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSummary(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringP("repo", "R", "", "Target repository as owner/name (default: the origin remote of the current checkout)")
	summaryCmd.Flags().String("after", "", "Only count events at or after this time (\"2022-09-09\", \"2 weeks ago\", ...)")
	summaryCmd.Flags().String("before", "", "Only count events at or before this time")
	summaryCmd.Flags().BoolP("list", "l", false, "Itemize the matching records under each category")
	summaryCmd.Flags().String("datetime-format", report.DefaultTimeFormat, "Go time layout for the --list timestamps")
	summaryCmd.Flags().Bool("cache", false, "Cache responses on disk and reuse them for identical queries")
	summaryCmd.Flags().String("source", "gh", "Fetch source: gh (the gh CLI) or api (GitHub API)")
	summaryCmd.Flags().String("strategy", string(gateway.StrategySearch), "API source strategy: search or list")
	summaryCmd.Flags().String("format", "text", "Output format: text or json")
	summaryCmd.Flags().Int("limit", gateway.DefaultLimit, "Search result ceiling per category")
}

// summaryOutput is the --format json shape.
type summaryOutput struct {
	Repo       string                 `json:"repo"`
	Window     domain.TimeWindow      `json:"window"`
	Categories []domain.CategoryTally `json:"categories"`
}

func runSummary(cmd *cobra.Command) error {
	ctx := context.Background()

	verbose, _ := cmd.InheritedFlags().GetBool("verbose")
	logger := newLogger(verbose)

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.FetchTimeout)
		defer cancel()
	}

	flags := cmd.Flags()

	// The window is validated before anything is fetched or cached; an
	// impossible range should not cost a network round trip.
	afterStr, _ := flags.GetString("after")
	beforeStr, _ := flags.GetString("before")
	window, err := buildWindow(afterStr, beforeStr, time.Now())
	if err != nil {
		return err
	}

	repoStr, _ := flags.GetString("repo")
	repo, err := resolveRepo(ctx, repoStr, cfg, logger)
	if err != nil {
		return err
	}

	fetcher, cleanup, err := buildFetcher(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	listMode, _ := flags.GetBool("list")
	aggregator := usecase.NewAggregator(fetcher, logger.WithField("component", "aggregator"))
	tallies, err := aggregator.Summarize(ctx, repo, window, usecase.Options{IncludeRecords: listMode})
	if err != nil {
		return fmt.Errorf("failed to aggregate activity: %w", err)
	}

	format, _ := flags.GetString("format")
	switch format {
	case "json":
		out := summaryOutput{Repo: repo.String(), Window: window, Categories: tallies}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results to JSON: %w", err)
		}
		fmt.Println(string(data))
	case "text":
		timeFormat, _ := flags.GetString("datetime-format")
		renderer := report.Renderer{TimeFormat: timeFormat, List: listMode}
		if err := renderer.Render(os.Stdout, repo, window, tallies); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q, want text or json", format)
	}
	return nil
}

// buildFetcher assembles the fetch source the flags ask for, optionally
// wrapped in the response cache. The returned cleanup releases whatever
// the source holds open.
func buildFetcher(ctx context.Context, cmd *cobra.Command, cfg settings, logger logrus.FieldLogger) (gateway.Fetcher, func(), error) {
	flags := cmd.Flags()
	source, _ := flags.GetString("source")
	strategyStr, _ := flags.GetString("strategy")
	limit, _ := flags.GetInt("limit")

	var fetcher gateway.Fetcher
	switch source {
	case "gh":
		if flags.Changed("strategy") {
			return nil, nil, fmt.Errorf("--strategy only applies to --source api")
		}
		fetcher = gateway.NewCLIFetcher(cfg.GHPath, limit, nil, logger.WithField("component", "gh"))
	case "api":
		strategy, err := gateway.ParseStrategy(strategyStr)
		if err != nil {
			return nil, nil, err
		}
		token, err := gateway.ResolveToken(ctx, cfg.GHPath, nil)
		if err != nil {
			return nil, nil, err
		}
		fetcher, err = gateway.NewGateway(gateway.Config{
			Token:      token,
			APIAddress: cfg.APIAddress,
			Strategy:   strategy,
			Limit:      limit,
		}, logger.WithField("component", "api"))
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown source %q, want gh or api", source)
	}

	cleanup := func() {}
	if useCache, _ := flags.GetBool("cache"); useCache {
		path, err := cfg.cachePath()
		if err != nil {
			return nil, nil, err
		}
		store, err := cache.NewStore(path, cfg.CacheBucket)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("path", path).Debug("response cache enabled")
		fetcher = cache.NewFetcher(fetcher, store, logger.WithField("component", "cache"))
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Warn("failed to close cache file")
			}
		}
	}
	return fetcher, cleanup, nil
}

// resolveRepo takes the explicit flag when given, otherwise asks git about
// the current checkout.
func resolveRepo(ctx context.Context, repoStr string, cfg settings, logger logrus.FieldLogger) (domain.Repo, error) {
	if repoStr != "" {
		return domain.ParseRepo(repoStr)
	}
	repo, err := gateway.DetectRepo(ctx, cfg.GitPath, nil)
	if err != nil {
		return domain.Repo{}, fmt.Errorf("no --repo given and the current directory has no usable checkout: %w", err)
	}
	logger.WithField("repo", repo.String()).Debug("repository detected from checkout")
	return repo, nil
}

// buildWindow turns the two flag strings into a validated window.
func buildWindow(afterStr, beforeStr string, now time.Time) (domain.TimeWindow, error) {
	var after, before *time.Time
	if afterStr != "" {
		t, err := parseTimeArg(afterStr, now)
		if err != nil {
			return domain.TimeWindow{}, fmt.Errorf("--after: %w", err)
		}
		after = &t
	}
	if beforeStr != "" {
		t, err := parseTimeArg(beforeStr, now)
		if err != nil {
			return domain.TimeWindow{}, fmt.Errorf("--before: %w", err)
		}
		before = &t
	}
	return domain.NewTimeWindow(after, before)
}

// parseTimeArg understands absolute dates in any common layout, plus the
// relative "<duration> ago" form people actually type.
func parseTimeArg(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutSuffix(s, " ago"); ok {
		d, err := parseLooseDuration(rest)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid relative time %q: %w", s, err)
		}
		return now.Add(-d), nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t, nil
}

// parseLooseDuration accepts everything time.ParseDuration takes, plus
// spelled-out units ("2 weeks", "1 day") and the compact d/w forms that
// ParseDuration lacks. Months and years are approximated the way calendar
// arithmetic on a range tool can afford to.
func parseLooseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	value, unit := s, ""
	if i := strings.IndexByte(s, ' '); i >= 0 {
		value, unit = s[:i], strings.TrimSpace(s[i+1:])
	} else if i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }); i > 0 {
		value, unit = s[:i], s[i:]
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("unparsable duration %q", s)
	}
	switch strings.TrimSuffix(strings.ToLower(unit), "s") {
	case "second", "sec":
		return time.Duration(n) * time.Second, nil
	case "minute", "min":
		return time.Duration(n) * time.Minute, nil
	case "hour", "hr", "h":
		return time.Duration(n) * time.Hour, nil
	case "day", "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "week", "w":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case "month", "mo":
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	case "year", "y":
		return time.Duration(n) * 365 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unknown duration unit %q", unit)
}

// newLogger builds the CLI logger: quiet by default, chatty with
// --verbose, always on stderr so stdout stays parseable.
func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}
