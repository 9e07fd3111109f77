package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/muesli/termenv"

	"github.com/mkowalczk/jobscout/internal/models"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
	LinkStyle    LinkStyle
}

type LinkStyle string

const (
	LinkStyleShort LinkStyle = "short"
	LinkStyleFull  LinkStyle = "full"
)

func WriteJobs(w io.Writer, jobs []models.Job, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, jobs)
	case FormatCSV:
		return writeCSV(w, jobs, ',')
	case FormatTSV:
		return writeCSV(w, jobs, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, jobs)
	default:
		return writeTable(w, jobs, opts)
	}
}

func writeJSON(w io.Writer, jobs []models.Job) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jobs)
}

func writeCSV(w io.Writer, jobs []models.Job, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(csvHeader()); err != nil {
		return err
	}
	for _, job := range jobs {
		if err := writer.Write(csvRow(job)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeTable(w io.Writer, jobs []models.Job, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(tableHeader(), "\t"))
	output := termenv.NewOutput(w)
	for _, job := range jobs {
		fmt.Fprintln(tw, strings.Join(tableRow(job, output, opts), "\t"))
	}
	return tw.Flush()
}

func writeMarkdown(w io.Writer, jobs []models.Job) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for _, job := range jobs {
		linkLine := "  Link: -"
		if link := safe(job.Link); link != "" && link != "#" {
			linkLine = fmt.Sprintf("  Link: [Open listing](<%s>)", link)
		}
		lines := []string{
			fmt.Sprintf("- **%s** (%s)", safe(job.Title), safe(job.Company)),
			fmt.Sprintf("  Location: %s", safe(job.Location)),
			fmt.Sprintf("  Salary: %s", safe(job.Salary)),
			linkLine,
		}
		if job.EmploymentType != "" {
			lines = append(lines, fmt.Sprintf("  Type: %s", safe(job.EmploymentType)))
		}
		if job.PostingDate != "" {
			lines = append(lines, fmt.Sprintf("  Posted: %s", safe(job.PostingDate)))
		}
		if job.Source != "" {
			lines = append(lines, fmt.Sprintf("  Source: %s", safe(job.Source)))
		}
		if job.Description != "" {
			lines = append(lines, fmt.Sprintf("  Summary: %s", safe(job.Description)))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func csvHeader() []string {
	return []string{
		"source",
		"title",
		"company",
		"location",
		"link",
		"salary",
		"employment_type",
		"company_type",
		"posting_date",
		"date_pulled",
		"description",
	}
}

func csvRow(job models.Job) []string {
	return []string{
		job.Source,
		job.Title,
		job.Company,
		job.Location,
		job.Link,
		job.Salary,
		job.EmploymentType,
		job.CompanyType,
		job.PostingDate,
		job.DatePulled,
		job.Description,
	}
}

func safe(value string) string {
	return strings.TrimSpace(value)
}

func tableHeader() []string {
	return []string{
		"title",
		"company",
		"salary",
		"posted",
		"link",
	}
}

func tableRow(job models.Job, output *termenv.Output, opts WriteOptions) []string {
	const linkColor = "#87CEEB"

	link := safe(job.Link)
	displayLink := "-"
	if link != "" && link != "#" {
		displayLink = link
		if opts.LinkStyle == LinkStyleShort && opts.Hyperlinks {
			displayLink = shortLinkLabel(link)
		}
		if opts.ColorEnabled {
			displayLink = output.String(displayLink).Foreground(output.Color(linkColor)).String()
		}
		if opts.Hyperlinks {
			displayLink = hyperlink(link, displayLink)
		}
	}
	return []string{
		safe(job.Title),
		safe(job.Company),
		safe(job.Salary),
		safe(job.PostingDate),
		displayLink,
	}
}

func hyperlink(link string, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + link + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortLinkLabel(raw string) string {
	const maxLen = 60
	label := strings.TrimSpace(raw)
	if parsed, err := url.Parse(raw); err == nil {
		host := strings.TrimPrefix(parsed.Host, "www.")
		if host != "" {
			label = host + parsed.Path
		}
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = raw
	}
	if len(label) > maxLen {
		label = label[:maxLen-3] + "..."
	}
	return label
}
