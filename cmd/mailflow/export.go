package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mhoang/mailflow/internal/store"
	"github.com/mhoang/mailflow/internal/tabular"
)

// runExport writes stored message metadata as CSV to a file or to
// stdout.
func (a *app) runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	folder := fs.String("folder", "", "restrict to one folder")
	query := fs.String("query", "", "match subject or sender address")
	sortBy := fs.String("sort", "date", "sort column: date, subject, from_addr, fetched_at")
	desc := fs.Bool("desc", false, "sort descending")
	limit := fs.Int("limit", 0, "maximum rows (0 = no limit)")
	out := fs.String("out", "", "output file path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	acct, err := a.selectedAccount()
	if err != nil {
		return err
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	filter := store.MessageFilter{
		Account:  &acct.Name,
		SortBy:   *sortBy,
		SortDesc: *desc,
		Limit:    *limit,
	}
	if *folder != "" {
		filter.Folder = folder
	}
	if *query != "" {
		filter.Query = query
	}

	records, err := st.GetMessages(ctx, filter)
	if err != nil {
		return err
	}

	table := &tabular.Table{
		Header: []string{"folder", "uid", "date", "from", "to", "subject", "flags", "attachments"},
	}
	for _, r := range records {
		table.Rows = append(table.Rows, []string{
			r.Folder,
			fmt.Sprintf("%d", r.UID),
			r.Date.Format("2006-01-02 15:04:05"),
			r.FromAddr,
			strings.Join(r.ToAddrs, "; "),
			r.Subject,
			strings.Join(r.Flags, " "),
			fmt.Sprintf("%d", r.AttachmentCount),
		})
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := table.WriteCSV(w); err != nil {
		return err
	}
	a.log.Info().Int("rows", len(records)).Msg("export written")
	return nil
}
