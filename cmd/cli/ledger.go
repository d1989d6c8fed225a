package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
	"github.com/Yuan922/MoneyMemoAI/internal/report"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print a user's ledger",
		RunE:  runList,
	}
	cmd.Flags().Bool("json", false, "Print records as JSON")
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	user, err := userFlag(cmd)
	if err != nil {
		return err
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	l, err := a.Store.Load(ctx, user)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, l.Records)
	}
	printLedger(out, l)
	return nil
}

func printLedger(w io.Writer, l ledger.Ledger) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDATE\tCATEGORY\tNAME\tAMOUNT\tPAYMENT")
	for i, r := range l.Records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", i, r.Date, r.Category, r.Name, r.Amount, r.PaymentMethod)
	}
	_ = tw.Flush()
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show spending totals by category and payment method",
		Long: `Show spending totals. Deposits (stored-value top-ups) are left out unless
--include-deposit is given, since the spending happens when the card is used.`,
		RunE: runSummary,
	}
	cmd.Flags().Bool("include-deposit", false, "Count deposit records as spending")
	cmd.Flags().String("month", "", "Only include records from this month (YYYY-MM)")
	cmd.Flags().String("currency", "", "Currency code (default: ledger.currency)")
	cmd.Flags().Bool("json", false, "Print the summary as JSON")
	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	user, err := userFlag(cmd)
	if err != nil {
		return err
	}
	includeDeposit, _ := cmd.Flags().GetBool("include-deposit")
	month, _ := cmd.Flags().GetString("month")
	currency, _ := cmd.Flags().GetString("currency")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if currency == "" {
		currency = a.Config.Ledger.Currency
	}

	l, err := a.Store.Load(ctx, user)
	if err != nil {
		return err
	}

	s, err := report.Summarize(l, report.Options{IncludeDeposit: includeDeposit, Currency: currency, Month: month})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, s)
	}
	printSummary(out, s)
	return nil
}

func printSummary(w io.Writer, s report.Summary) {
	fmt.Fprintf(w, "Total: %s (%d records)\n", s.TotalDisplay, s.Count)
	for _, section := range []struct {
		title   string
		buckets []report.Bucket
	}{
		{"By category", s.ByCategory},
		{"By payment method", s.ByPaymentMethod},
	} {
		fmt.Fprintf(w, "\n%s:\n", section.title)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		for _, b := range section.buckets {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t\n", b.Key, b.Display, b.Count)
		}
		_ = tw.Flush()
	}
}

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy every ledger to a dated backup",
		RunE:  runBackup,
	}
	cmd.Flags().String("dest", "", "Backup directory or object prefix (default: storage.backup_dir)")
	return cmd
}

func runBackup(cmd *cobra.Command, _ []string) error {
	dest, _ := cmd.Flags().GetString("dest")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if dest == "" {
		dest = a.Config.Storage.BackupDir
	}

	names, err := a.Store.Backup(ctx, dest, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	fmt.Fprintf(out, "Backed up %d ledgers to %s\n", len(names), dest)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
