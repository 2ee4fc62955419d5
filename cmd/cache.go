package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hollowdene/mojorun/internal/cache"
	"github.com/hollowdene/mojorun/internal/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the binary cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show cache location, entry count and total size",
	RunE:         runCacheStats,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var cacheListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List cached binaries with build provenance",
	RunE:         runCacheList,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var cacheClearCmd = &cobra.Command{
	Use:          "clear",
	Short:        "Remove every cached binary",
	RunE:         runCacheClear,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// openStore loads the configuration and opens the directory store the
// cached binaries live under.
func openStore(cmd *cobra.Command) (*cache.DirStore, error) {
	cfg, err := config.NewLoader().LoadForCommand(cmd, nil)
	if err != nil {
		return nil, err
	}

	return cache.NewDirStore(cfg.CacheDir)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	entries, err := store.Entries()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Cache directory: %s\n", store.Root())
	fmt.Fprintf(w, "Cached binaries: %d\n", len(entries))
	fmt.Fprintf(w, "Total size: %s\n", humanize.Bytes(uint64(cache.TotalSize(entries))))

	return nil
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	entries, err := store.Entries()
	if err != nil {
		return err
	}

	return writeEntries(cmd.OutOrStdout(), entries, loadRecords(store))
}

// loadRecords pulls journal provenance for listings. A missing or broken
// journal just means emptier columns.
func loadRecords(store *cache.DirStore) map[string]cache.Record {
	journal, err := cache.OpenJournal(filepath.Join(store.Root(), cache.JournalFile))
	if err != nil {
		return nil
	}
	defer journal.Close()

	recs, err := journal.Records()
	if err != nil {
		return nil
	}

	byKey := make(map[string]cache.Record, len(recs))
	for _, rec := range recs {
		byKey[rec.Key] = rec
	}

	return byKey
}

// writeEntries renders one line per artifact, with provenance columns
// filled in for builds the journal knows about.
func writeEntries(w io.Writer, entries []cache.Entry, records map[string]cache.Record) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "cache is empty")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSIZE\tTOOLCHAIN\tBUILT\tHITS")

	for _, e := range entries {
		tool, built, hits := "-", "-", "-"

		if rec, ok := records[e.Key.String()]; ok {
			tool = rec.ToolchainVersion
			built = rec.CreatedAt.Format("2006-01-02 15:04")
			hits = strconv.Itoa(rec.Hits)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Key, humanize.Bytes(uint64(e.Size)), tool, built, hits)
	}

	return tw.Flush()
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}

	removed, err := store.Clear()
	if err != nil {
		return err
	}

	// Drop the provenance along with the artifacts it described.
	if journal, jerr := cache.OpenJournal(filepath.Join(store.Root(), cache.JournalFile)); jerr == nil {
		_ = journal.Clear()
		journal.Close()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s (%d binaries removed)\n", store.Root(), removed)

	return nil
}
