package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yuan922/MoneyMemoAI/internal/pipeline"
)

func submitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit [text...]",
		Short: "Add or edit records from a free-text note",
		Long: `Send a note to the model and apply the resulting commands to the ledger.

Examples:
  # Record two expenses
  moneymemo submit -u alice "lunch onigiri 150 cash, dinner ramen 980 paypay"

  # Edit an existing record
  moneymemo submit -u alice --kind update "change yesterday's ramen to credit card"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSubmit,
	}

	cmd.Flags().String("kind", "auto", "Submission kind (auto, add, update)")
	cmd.Flags().Bool("json", false, "Print the batch result as JSON")

	return cmd
}

func runSubmit(cmd *cobra.Command, args []string) error {
	user, err := userFlag(cmd)
	if err != nil {
		return err
	}
	kindFlag, _ := cmd.Flags().GetString("kind")
	kind, ok := pipeline.ParseSubmissionKind(kindFlag)
	if !ok {
		return fmt.Errorf("invalid --kind %q (want auto, add or update)", kindFlag)
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.Service(ctx)
	if err != nil {
		return err
	}

	res, err := svc.Submit(ctx, pipeline.Submission{
		UserID: user,
		Text:   strings.Join(args, " "),
		Kind:   kind,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printBatchResult(out, res)
	return nil
}

func printBatchResult(w io.Writer, res pipeline.BatchResult) {
	fmt.Fprintf(w, "%s: applied=%d unmatched=%d rejected=%d\n", res.Kind, res.Applied, res.Unmatched, res.Rejected)
	for _, o := range res.Outcomes {
		fmt.Fprintf(w, "  [%d] %-9s %s\n", o.Index, o.State, o.Message)
	}
}
