// Command arjournal prints the events an AR session recorded to its
// sqlite journal. Without -session it lists the recorded sessions.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/arlayer/internal/ar/journal"
	"github.com/banshee-data/arlayer/internal/version"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("arjournal: %v", err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("arjournal", flag.ContinueOnError)
	var dbPath string
	var sessionID string
	var kind string
	var showVersion bool

	fs.StringVar(&dbPath, "db", "ar_journal.db", "path to the sqlite journal")
	fs.StringVar(&sessionID, "session", "", "session id to print (lists sessions when empty)")
	fs.StringVar(&kind, "kind", "", "only print events of this kind")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showVersion {
		fmt.Fprintf(out, "arjournal %s\n", version.Short())
		return nil
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("journal %s: %w", dbPath, err)
	}

	store, err := journal.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if sessionID == "" {
		return printSessions(ctx, store, out)
	}
	return printEvents(ctx, store, sessionID, journal.Kind(kind), out)
}

func printSessions(ctx context.Context, store *journal.Store, out io.Writer) error {
	sessions, err := store.Sessions(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tEVENTS\tFIRST\tLAST")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.SessionID, s.Events,
			s.First.UTC().Format(time.RFC3339), s.Last.UTC().Format(time.RFC3339))
	}
	return w.Flush()
}

func printEvents(ctx context.Context, store *journal.Store, sessionID string, kind journal.Kind, out io.Writer) error {
	events, err := store.ListBySession(ctx, sessionID, kind)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tGEN\tKIND\tINDEX\tHANDLE\tDETAIL")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\n",
			ev.RecordedAt.UTC().Format("15:04:05.000"), ev.Generation, ev.Kind,
			ev.Index, ev.Handle, formatDetail(ev.Detail))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	counts, err := store.CountByKind(ctx, sessionID)
	if err != nil {
		return err
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[journal.Kind(k)]))
	}
	fmt.Fprintf(out, "\n%d events: %s\n", len(events), strings.Join(parts, " "))
	return nil
}

func formatDetail(d map[string]any) string {
	if len(d) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := d[k].(type) {
		case float64:
			parts = append(parts, fmt.Sprintf("%s=%.3f", k, v))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, " ")
}
