package cmd

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/tieubaoca/research-assistant/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive terminal session",
	Long: `Log in or register, open a PDF or TXT document, then run Query,
Just Summarize or Challenge Me against it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		return repl.New(a.users, a.docs, a.research, os.Stdin, os.Stdout, log).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
