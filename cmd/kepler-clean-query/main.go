package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"kepler-clean/internal/database"
	"kepler-clean/internal/exitcodes"
	"kepler-clean/internal/logging"
)

type options struct {
	dbPath     string
	recent     int
	stats      bool
	modelSet   string
	action     string
	kind       string
	limit      int
	days       int
	pruneDays  int
	jsonOutput bool
}

func parseFlags(args []string, stdout, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("kepler-clean-query", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.dbPath, "db", "/var/lib/kepler-clean/deletions.db", "Path to deletion database")
	fs.IntVar(&opts.recent, "recent", 0, "Show N most recent deletions")
	fs.BoolVar(&opts.stats, "stats", false, "Show deletion statistics")
	fs.StringVar(&opts.modelSet, "model-set", "", "Filter by model set")
	fs.StringVar(&opts.action, "action", "", "Filter by action (DELETE, ERROR)")
	fs.StringVar(&opts.kind, "kind", "", "Filter by object kind (dump, ascii, log_file, log_dir)")
	fs.IntVar(&opts.limit, "limit", 100, "Maximum records for filtered queries")
	fs.IntVar(&opts.days, "days", 30, "Number of days for statistics")
	fs.IntVar(&opts.pruneDays, "prune-days", 0, "Delete history older than N days, then vacuum")
	fs.BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: kepler-clean-query [flags]")
		fs.PrintDefaults()
		fmt.Fprintln(stdout, "\nExamples:")
		fmt.Fprintln(stdout, "  kepler-clean-query --recent 10          # Show 10 most recent deletions")
		fmt.Fprintln(stdout, "  kepler-clean-query --stats              # Show deletion statistics")
		fmt.Fprintln(stdout, "  kepler-clean-query --model-set grid1    # Show deletions in grid1")
		fmt.Fprintln(stdout, "  kepler-clean-query --action ERROR       # Show failed deletions")
		fmt.Fprintln(stdout, "  kepler-clean-query --kind dump          # Show deleted dumps")
		fmt.Fprintln(stdout, "  kepler-clean-query --prune-days 365     # Drop history older than a year")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if !opts.stats && opts.recent <= 0 && opts.modelSet == "" && opts.action == "" && opts.kind == "" && opts.pruneDays <= 0 {
		fs.Usage()
		return nil, errors.New("no query given")
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := logging.NewTo(stderr, nil)

	opts, err := parseFlags(args, stdout, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitcodes.Success
		}
		logger.Printf("ERROR: %v", err)
		return exitcodes.InvalidConfig
	}

	db, err := database.OpenDeletionDB(opts.dbPath)
	if err != nil {
		logger.Printf("ERROR: Failed to open database %s: %v", opts.dbPath, err)
		return exitcodes.RuntimeError
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	if err := query(db, opts, stdout); err != nil {
		logger.Printf("ERROR: %v", err)
		return exitcodes.RuntimeError
	}
	return exitcodes.Success
}

func query(db *database.DeletionDB, opts *options, out io.Writer) error {
	if opts.pruneDays > 0 {
		return prune(db, opts.pruneDays, out)
	}

	if opts.stats {
		s, err := db.GetDeletionStats(opts.days)
		if err != nil {
			return fmt.Errorf("failed to get statistics: %w", err)
		}
		if opts.jsonOutput {
			return printJSON(out, s)
		}
		printStats(out, s, opts.days)
		return nil
	}

	var (
		records []database.DeletionRecord
		title   string
		err     error
	)
	switch {
	case opts.recent > 0:
		records, err = db.GetRecentDeletions(opts.recent)
	case opts.modelSet != "":
		title = "Records for model set: " + opts.modelSet
		records, err = db.GetDeletionsByModelSet(opts.modelSet, opts.limit)
	case opts.action != "":
		title = "Records with action: " + opts.action
		records, err = db.GetDeletionsByAction(opts.action, opts.limit)
	case opts.kind != "":
		title = "Records of kind: " + opts.kind
		records, err = db.GetDeletionsByKind(opts.kind, opts.limit)
	}
	if err != nil {
		return fmt.Errorf("failed to query deletions: %w", err)
	}

	if opts.jsonOutput {
		return printJSON(out, records)
	}
	if title != "" {
		fmt.Fprintf(out, "%s\n\n", title)
	}
	printRecords(out, records)
	return nil
}

// prune drops old history and reclaims the file space
func prune(db *database.DeletionDB, days int, out io.Writer) error {
	n, err := db.DeleteOldRecords(days)
	if err != nil {
		return fmt.Errorf("failed to delete old records: %w", err)
	}
	if err := db.Vacuum(); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	stats, err := db.GetDatabaseStats()
	if err != nil {
		return fmt.Errorf("failed to get database stats: %w", err)
	}
	fmt.Fprintf(out, "Pruned %d records older than %d days (%d left, %s)\n",
		n, days, stats.TotalRecords, formatBytes(stats.SizeBytes))
	return nil
}

func printJSON(out io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func printStats(w io.Writer, stats *database.DeletionStats, days int) {
	fmt.Fprintf(w, "Deletion Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Deletions:  %d\n", stats.TotalDeletions)
	fmt.Fprintf(w, "Total Errors:     %d\n", stats.TotalErrors)
	fmt.Fprintf(w, "Space Freed:      %s\n", formatBytes(stats.TotalSpaceFreed))

	printCounts(w, "By Kind", stats.ByKind)
	printCounts(w, "By Action", stats.ByAction)
	printCounts(w, "By Model Set", stats.ByModelSet)
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\n%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-15s %d\n", k, counts[k])
	}
}

func printRecords(out io.Writer, records []database.DeletionRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTimestamp\tAction\tKind\tModel Set\tModel\tDump\tSize\tPath")
	_, _ = fmt.Fprintln(w, "--\t---------\t------\t----\t---------\t-----\t----\t----\t----")

	for _, r := range records {
		dump := "-"
		if r.DumpIndex != nil {
			dump = fmt.Sprintf("%d", *r.DumpIndex)
		}
		model := r.Model
		if model == "" {
			model = "-"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Timestamp.Local().Format("2006-01-02 15:04:05"), r.Action, r.ObjectType,
			r.ModelSet, model, dump, formatBytes(r.Size), r.Path)
	}
	_ = w.Flush()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
