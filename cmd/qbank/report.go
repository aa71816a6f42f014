package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the completion report for a user session",
	Args:  cobra.NoArgs,
	RunE:  withApp(runReport),
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export questions (or a session report) as an Excel workbook",
	Args:  cobra.NoArgs,
	RunE:  withApp(runExport),
}

var (
	reportUser    string
	reportSession string
	reportCountry string
	exportOut     string
)

func init() {
	for _, c := range []*cobra.Command{reportCmd, exportCmd} {
		c.Flags().StringVarP(&reportCountry, "country", "c", "", "country (required)")
		c.Flags().StringVarP(&reportUser, "user", "u", "", "user id")
		c.Flags().StringVarP(&reportSession, "session", "s", "", "session id")
		_ = c.MarkFlagRequired("country")
	}
	_ = reportCmd.MarkFlagRequired("user")
	_ = reportCmd.MarkFlagRequired("session")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default <country>.xlsx)")
	rootCmd.AddCommand(reportCmd, exportCmd)
}

func runReport(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	r, err := a.svc.Report(ctx, reportUser, reportSession, reportCountry)
	if err != nil {
		return err
	}
	cmd.Printf("Country:    %s\n", r.Country)
	cmd.Printf("Answered:   %d / %d (%.1f%%)\n\n", r.AnsweredQuestions, r.TotalQuestions, r.CompletionRate)
	for _, c := range r.CategoryStats {
		cmd.Printf("  %-28s %3d / %-3d %5.1f%%\n", c.Category, c.Answered, c.Total, c.CompletionRate)
	}
	if len(r.MissingQuestions) > 0 {
		cmd.Println("\nMissing:")
		for _, m := range r.MissingQuestions {
			cmd.Printf("  - %s\n", m)
		}
	}
	return nil
}

func runExport(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	var (
		data []byte
		err  error
	)
	switch {
	case reportUser != "" && reportSession != "":
		data, err = a.exports.SessionReportXLSX(ctx, reportUser, reportSession, reportCountry)
	case reportUser != "" || reportSession != "":
		return fmt.Errorf("--user and --session must be given together")
	default:
		data, err = a.exports.QuestionsXLSX(ctx, reportCountry)
	}
	if err != nil {
		return err
	}

	out := exportOut
	if out == "" {
		out = reportCountry + ".xlsx"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	cmd.Printf("Wrote %s (%d bytes)\n", out, len(data))
	return nil
}
