package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/questionnaire-tracker/internal/classify"
	"github.com/joseph-ayodele/questionnaire-tracker/internal/questionnaire"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List stored questions for a country",
	Args:  cobra.NoArgs,
	RunE:  withApp(runQuestions),
}

var pagesCmd = &cobra.Command{
	Use:   "pages <document>",
	Short: "Print the page text extracted from a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runPages,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <line>",
	Short: "Show how the heuristics classify a line of text",
	Args:  cobra.MinimumNArgs(1),
	Run:   runClassify,
}

var curateCmd = &cobra.Command{
	Use:   "curate <question-id>",
	Short: "Attach options to a question awaiting curation",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runCurate),
}

var (
	questionsCountry  string
	questionsCategory string
	questionsFilter   string
	curateOptions     []string
)

func init() {
	questionsCmd.Flags().StringVarP(&questionsCountry, "country", "c", "", "country (required)")
	questionsCmd.Flags().StringVar(&questionsCategory, "category", "", "only this category")
	questionsCmd.Flags().StringVarP(&questionsFilter, "filter", "f", "", `filter expression, e.g. 'required = true AND type = "yes_no"'`)
	_ = questionsCmd.MarkFlagRequired("country")

	curateCmd.Flags().StringSliceVarP(&curateOptions, "option", "o", nil, "option value (repeatable or comma separated)")
	_ = curateCmd.MarkFlagRequired("option")

	rootCmd.AddCommand(questionsCmd, pagesCmd, classifyCmd, curateCmd)
}

func runQuestions(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	qs, err := a.svc.ListQuestions(ctx, questionsCountry, questionsCategory, questionsFilter)
	if err != nil {
		return err
	}
	if len(qs) == 0 {
		cmd.Println("No questions found.")
		return nil
	}
	for _, q := range qs {
		flag := " "
		if q.NeedsCuration {
			flag = "!"
		}
		cmd.Printf("%s %3d  %-12s %-24s %s\n", flag, q.Position, q.Type, q.Category, q.Text)
		cmd.Printf("         id=%s", q.ID)
		if len(q.Options) > 0 {
			cmd.Printf(" options=[%s]", strings.Join(q.Options, ", "))
		}
		cmd.Println()
	}
	cmd.Printf("\n%d question(s)\n", len(qs))
	return nil
}

func runPages(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	res, err := questionnaire.NewOCRExtractor(cfg, logger).ExtractPages(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	for i, page := range res.Pages {
		cmd.Printf("--- page %d ---\n%s\n", i+1, page)
	}
	cmd.Printf("\nsource=%s method=%s pages=%d took=%s\n", res.SourceType, res.Method, len(res.Pages), res.Duration)
	for _, w := range res.Warnings {
		cmd.Printf("warning: %s\n", w)
	}
	return nil
}

func runClassify(cmd *cobra.Command, args []string) {
	line := strings.Join(args, " ")
	cmd.Printf("question:           %t\n", classify.IsQuestionLine(line))
	cmd.Printf("type:               %s\n", classify.InferQuestionType(line))
	cmd.Printf("category:           %s\n", classify.Categorize(line))
	cmd.Printf("compliance area:    %s\n", classify.ComplianceArea(line))
	cmd.Printf("regulatory context: %s\n", classify.RegulatoryContext(line))
}

func runCurate(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	q, err := a.svc.CurateQuestion(ctx, args[0], curateOptions)
	if err != nil {
		return err
	}
	cmd.Printf("Curated %q: %s\n", q.Text, strings.Join(q.Options, ", "))
	return nil
}
