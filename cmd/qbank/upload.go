package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/entity"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/ingest"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <document-or-directory>",
	Short: "Extract questions from a document (or every document in a directory)",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runUpload),
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent uploads",
	Args:  cobra.NoArgs,
	RunE:  withApp(runJobs),
}

var (
	uploadSkipHidden bool
	jobsLimit        int
)

func init() {
	uploadCmd.Flags().BoolVar(&uploadSkipHidden, "skip-hidden", true, "skip hidden files and directories")
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "number of jobs to show")
	rootCmd.AddCommand(uploadCmd, jobsCmd)
}

func runUpload(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	if !info.IsDir() {
		sum := a.svc.Upload(ctx, args[0])
		printSummary(cmd, args[0], sum)
		if !sum.Success {
			return fmt.Errorf("%s", sum.Message)
		}
		return nil
	}

	res, err := a.svc.UploadDirectory(ctx, args[0], ingest.WalkOptions{SkipHidden: uploadSkipHidden})
	if err != nil {
		return err
	}
	for _, sum := range res.Summaries {
		printSummary(cmd, "", sum)
	}
	cmd.Printf("\nScanned: %d  Matched: %d  Uploaded: %d  Failed: %d\n",
		res.Stats.Scanned, res.Stats.Matched, res.Succeeded, len(res.Summaries)-res.Succeeded)
	return nil
}

func printSummary(cmd *cobra.Command, path string, sum entity.UploadSummary) {
	if path != "" {
		cmd.Printf("%s\n", path)
	}
	cmd.Printf("  %s\n", sum.Message)
	if !sum.Success {
		return
	}
	cats := make([]string, 0, len(sum.Categories))
	for c := range sum.Categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		cmd.Printf("    %-28s %d\n", c, sum.Categories[c])
	}
	if sum.NeedsCuration > 0 {
		cmd.Printf("  %d question(s) need curation before they are served\n", sum.NeedsCuration)
	}
}

func runJobs(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	jobs, err := a.svc.Jobs(ctx, jobsLimit)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		cmd.Println("No uploads recorded.")
		return nil
	}
	for _, j := range jobs {
		country := "-"
		if j.Country != nil {
			country = *j.Country
		}
		cmd.Printf("%s  %-7s  %-20s  pages=%d fallback=%d questions=%d  %s\n",
			j.StartedAt.Format("2006-01-02 15:04:05"), j.Status, country,
			j.Pages, j.FallbackPages, j.TotalQuestions, j.SourcePath)
		if j.ErrorMessage != nil {
			cmd.Printf("    error: %s\n", *j.ErrorMessage)
		}
	}
	return nil
}
