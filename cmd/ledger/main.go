package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"ledger-service/internal/ledger"
	"ledger-service/internal/localledger"
	"ledger-service/internal/model"
	"ledger-service/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn string

	root := &cobra.Command{
		Use:          "ledger",
		Short:        "Keep a personal ledger in a local SQLite file",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", envOr("LEDGER_DSN", localledger.DefaultDSN), "ledger database DSN")

	open := func(ctx context.Context) (*localledger.Store, error) {
		store, err := localledger.Open(ctx, dsn, logger.GetLogger())
		if err != nil {
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	}

	root.AddCommand(newInitCmd(open), newAddCmd(open), newListCmd(open))
	return root
}

type openFunc func(ctx context.Context) (*localledger.Store, error)

func newInitCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the ledger table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Ledger ready")
			return nil
		},
	}
}

func newAddCmd(open openFunc) *cobra.Command {
	var (
		in             ledger.TransactionInput
		company, notes string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a credit or debit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("company") {
				in.Company = &company
			}
			if cmd.Flags().Changed("notes") {
				in.Notes = &notes
			}

			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			txn, err := store.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added transaction %d\n", txn.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Date, "date", "", "transaction date (YYYY-MM-DD, default today)")
	f.StringVar(&in.ItemName, "item", "", "item name")
	f.StringVar(&company, "company", "", "company")
	f.Float64Var(&in.Amount, "amount", 0, "amount, greater than 0")
	f.StringVar(&in.Type, "type", "", "credit or debit")
	f.StringVar(&notes, "notes", "", "free-form notes")
	cmd.MarkFlagRequired("item")
	cmd.MarkFlagRequired("amount")
	cmd.MarkFlagRequired("type")
	return cmd
}

func newListCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			txns, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return printTransactions(cmd.OutOrStdout(), txns)
		},
	}
}

func printTransactions(out io.Writer, txns []model.Transaction) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tITEM\tCOMPANY\tAMOUNT\tTYPE\tNOTES")
	for _, t := range txns {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.2f\t%s\t%s\n",
			t.ID, t.Date, t.ItemName, deref(t.Company), t.Amount, t.Type, deref(t.Notes))
	}
	return w.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
