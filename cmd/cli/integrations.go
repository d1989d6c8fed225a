package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Yuan922/MoneyMemoAI/internal/notionsync"
)

func mirrorNotionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror-notion",
		Short: "Mirror a user's ledger into a Notion database",
		Long: `Mirror a user's ledger into a Notion database. The database needs the
properties Name (title), Row Key (text), User, Category and Payment Method
(select), Date (date) and Amount (number). Notion-side edits are overwritten.`,
		RunE: runMirrorNotion,
	}
	cmd.Flags().String("database-id", "", "Notion database id (default: notion.database_id)")
	cmd.Flags().Bool("dry-run", false, "Report changes without writing to Notion")
	return cmd
}

func runMirrorNotion(cmd *cobra.Command, _ []string) error {
	user, err := userFlag(cmd)
	if err != nil {
		return err
	}
	dbID, _ := cmd.Flags().GetString("database-id")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if dbID == "" {
		dbID = a.Config.Notion.DatabaseID
	}
	if dbID == "" {
		return fmt.Errorf("--database-id or notion.database_id is required")
	}

	notion, err := a.Notion()
	if err != nil {
		return err
	}

	l, err := a.Store.Load(ctx, user)
	if err != nil {
		return err
	}

	res, err := notionsync.MirrorLedger(ctx, notion, dbID, l, dryRun)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created=%d updated=%d archived=%d failed=%d\n",
		res.Created, res.Updated, res.Archived, res.Failed)
	return nil
}

func auditInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit-init",
		Short: "Create the BigQuery audit dataset and tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Audit == nil {
				return fmt.Errorf("audit.project is not configured")
			}
			if err := a.Audit.EnsureTables(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Audit tables ready.")
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a user's recent submissions from the audit log",
		RunE:  runHistory,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of submissions")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	user, err := userFlag(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Audit == nil {
		return fmt.Errorf("audit.project is not configured")
	}

	rows, err := a.Audit.ListSubmissions(ctx, user, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tKIND\tSTATUS\tAPPLIED\tUNMATCHED\tREJECTED\tTEXT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.CreatedTS.Format("2006-01-02 15:04"), r.Kind, r.Status, r.Applied, r.Unmatched, r.Rejected, r.InputText)
	}
	return tw.Flush()
}
