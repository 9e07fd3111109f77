package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/mkowalczk/jobscout/internal/export"
	"github.com/mkowalczk/jobscout/internal/models"
)

type SearchCmd struct {
	Titles string `arg:"" optional:"" help:"Job titles to search (comma-separated)."`
	SearchOptions
}

type SearchOptions struct {
	Remote       bool   `help:"Remote-only roles, with strict remote verification."`
	Location     string `help:"Location for onsite/hybrid searches."`
	MinSalary    int    `help:"Minimum annual salary in dollars."`
	MaxSalary    int    `help:"Maximum annual salary in dollars."`
	DatePosted   string `help:"Posting window: all, today, 3days, week, month." enum:"all,today,3days,week,month" default:"all"`
	SkipScraping bool   `help:"Skip salary backfill scraping of job pages."`
	DebugTrace   bool   `name:"debug-trace" help:"Print the filter trace to stderr."`
	Format       string `help:"Output format: csv, json, md." enum:",csv,json,md" default:""`
	Links        string `help:"Table link display: short or full." enum:"short,full" default:"full"`
	Output       string `name:"output" short:"o" help:"Write output to a file."`
	Proxies      string `help:"Comma-separated proxy URLs." env:"JOBSCOUT_PROXIES"`
}

const maxTitles = 10

func (s *SearchCmd) Run(ctx *Context) error {
	titles, err := parseTitles(s.Titles)
	if err != nil {
		return err
	}

	application, err := buildApp(ctx, s.Proxies)
	if err != nil {
		return err
	}

	criteria := models.SearchCriteria{
		JobTitles:    titles,
		Location:     s.Location,
		MinSalary:    s.MinSalary,
		MaxSalary:    s.MaxSalary,
		DatePosted:   s.DatePosted,
		SkipScraping: s.SkipScraping,
	}
	if s.Remote {
		criteria.LocationType = []string{"remote"}
	} else if s.Location != "" {
		criteria.LocationType = []string{"onsite"}
	}

	stopIndicator := startSearchIndicator(ctx)
	if stopIndicator != nil {
		defer stopIndicator()
	}

	runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	result := application.orch.Search(runCtx, criteria)

	if stopIndicator != nil {
		stopIndicator()
	}

	if result.Debug.Error != "" {
		ctx.UI.Warnf("search degraded: %s", result.Debug.Error)
	}
	if s.DebugTrace {
		printTrace(ctx, result.Debug)
	}

	outputPath := strings.TrimSpace(s.Output)
	format, err := resolveFormat(ctx, s.Format, outputPath)
	if err != nil {
		return err
	}

	writer := ctx.Out
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer file.Close()
		writer = file
	}

	colorEnabled := ctx.UI != nil && ctx.UI.ColorEnabled
	hyperlinks := colorEnabled && isTTY(writer)
	linkStyle := export.LinkStyleShort
	if strings.EqualFold(s.Links, string(export.LinkStyleFull)) {
		linkStyle = export.LinkStyleFull
	}
	if err := export.WriteJobs(writer, result.Jobs, format, export.WriteOptions{
		ColorEnabled: colorEnabled,
		Hyperlinks:   hyperlinks,
		LinkStyle:    linkStyle,
	}); err != nil {
		return err
	}

	printSearchSummary(ctx, result.Debug, len(result.Jobs))
	return nil
}

func parseTitles(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	titles := make([]string, 0, len(parts))
	dupes := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		title := strings.TrimSpace(part)
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, exists := dupes[key]; exists {
			continue
		}
		dupes[key] = struct{}{}
		titles = append(titles, title)
	}

	if len(titles) == 0 {
		return nil, fmt.Errorf("at least one non-empty job title is required")
	}
	if len(titles) > maxTitles {
		return nil, fmt.Errorf("too many titles: max %d", maxTitles)
	}
	return titles, nil
}

func printTrace(ctx *Context, trace models.FilterTrace) {
	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintln(ctx.Err, string(data))
}

func printSearchSummary(ctx *Context, trace models.FilterTrace, final int) {
	if ctx == nil || ctx.Err == nil {
		return
	}
	fmt.Fprintf(ctx.Err, "summary: api=%d remote=%d salary=%d source=%d date=%d employment=%d final=%d\n",
		trace.APIReturned,
		trace.RemoteRejected,
		trace.SalaryRejected,
		trace.SourceRejected,
		trace.DateRejected,
		trace.EmploymentRejected,
		final)
}

func resolveFormat(ctx *Context, formatFlag string, outputPath string) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if formatFlag != "" {
		return parseFormat(formatFlag)
	}
	if outputPath != "" {
		return export.FormatCSV, nil
	}
	if isTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func parseFormat(value string) (export.Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return export.FormatCSV, nil
	case "json":
		return export.FormatJSON, nil
	case "md", "markdown":
		return export.FormatMarkdown, nil
	case "tsv":
		return export.FormatTSV, nil
	case "table", "":
		return export.FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format: %s", value)
	}
}

func isTTY(out io.Writer) bool {
	output := termenv.NewOutput(out)
	return output.ColorProfile() != termenv.Ascii
}

func startSearchIndicator(ctx *Context) func() {
	if ctx == nil || ctx.Err == nil || ctx.UI == nil {
		return nil
	}
	if !isTTY(ctx.Err) {
		return nil
	}

	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		start := time.Now()
		frames := []string{"|", "/", "-", "\\"}
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		index := 0

		for {
			select {
			case <-done:
				fmt.Fprint(ctx.Err, "\r\033[2K")
				return
			case <-ticker.C:
				seconds := int(time.Since(start).Seconds())
				frame := frames[index%len(frames)]
				fmt.Fprintf(ctx.Err, "\r\033[2KSearching... %ds %s", seconds, frame)
				index++
			}
		}
	}()

	var once func()
	stoppedAlready := false
	once = func() {
		if stoppedAlready {
			return
		}
		stoppedAlready = true
		close(done)
		<-stopped
	}
	return once
}
