/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "research-assistant",
	Short: "Smart research assistant for PDF and TXT documents",
	Long: `Upload a PDF or TXT document, then ask questions about it, get a short
summary, or let the assistant quiz you and grade your answers.

Serve it over HTTP with "start", use it from the terminal with "repl",
or run one-off questions with "ask" and "batch-ask".`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config/config.yaml", "config file (empty for defaults and environment only)")
}
