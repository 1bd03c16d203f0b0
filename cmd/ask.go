/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tieubaoca/research-assistant/repl"
	"github.com/tieubaoca/research-assistant/types"
)

type askOptions struct {
	user     string
	mode     string
	question string
	save     bool
	asJSON   bool
}

func (o *askOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.user, "user", "u", "", "Account to log in as (password is prompted)")
	cmd.Flags().StringVarP(&o.mode, "mode", "m", "query", "query, summarize or challenge")
	cmd.Flags().StringVarP(&o.question, "question", "q", "", "Question for query mode")
	cmd.Flags().BoolVar(&o.save, "save", false, "Save each result through the configured report store")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Print results as JSON")
	_ = cmd.MarkFlagRequired("user")
}

// askCmd represents the ask command
var (
	askOpts askOptions
	askCmd  = &cobra.Command{
		Use:   "ask",
		Short: "Run one research action on a single document",
		Long: `Logs in, loads the document given with --file and prints the model's answer.
Without --question, query mode falls back to a summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			return runAsk(cmd.Context(), &askOpts, []string{path}, cmd.OutOrStdout())
		},
	}
)

// runAsk authenticates once and then handles each path in turn. Failures on
// one document are reported and the rest still run.
func runAsk(ctx context.Context, opts *askOptions, paths []string, out io.Writer) error {
	mode, err := types.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	password, err := repl.GetPassword(os.Stderr)
	if err != nil {
		return err
	}
	_, err = a.users.Authenticate(ctx, opts.user, string(password))
	for i := range password {
		password[i] = 0
	}
	if err != nil {
		return err
	}

	var failed int
	for _, path := range paths {
		if err := askOne(ctx, a, opts, mode, path, out); err != nil {
			log.Error(ctx, "research failed", "file", path, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	return nil
}

func askOne(ctx context.Context, a *app, opts *askOptions, mode types.Mode, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := a.docs.LoadReader(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	res, err := a.research.Run(ctx, doc.Text, mode, opts.question)
	if err != nil {
		return err
	}

	if opts.save {
		loc, err := a.saver.Save(ctx, res.Output)
		if err != nil {
			return err
		}
		a.log.Info(ctx, "report saved", "file", path, "location", loc)
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			File string `json:"file"`
			*types.ResearchResult
		}{File: path, ResearchResult: res})
	}
	fmt.Fprintf(out, "== %s (%s)\n", doc.Name, res.EffectiveMode.Label())
	if res.ParseError != "" {
		fmt.Fprintln(out, "Error parsing response:", res.ParseError)
	}
	fmt.Fprintln(out, res.Output)
	return nil
}

func init() {
	rootCmd.AddCommand(askCmd)
	askOpts.bind(askCmd)
	askCmd.Flags().StringP("file", "f", "", "Path to the PDF or TXT document")
	_ = askCmd.MarkFlagRequired("file")
}
