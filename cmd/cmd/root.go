package cmd

import (
	"github.com/kantai/fatrescue/internal/env"
	"github.com/spf13/cobra"
)

func Execute() error {
	rootCmd := &cobra.Command{
		Use:   env.AppName,
		Short: env.AppName + " - FAT12/16/32 volume analysis and recovery tool",
	}

	rootCmd.PersistentFlags().String("log-level", "INFO", "log level: DEBUG, INFO, WARN, ERROR")

	rootCmd.AddCommand(DefineAnalyzeCommand())
	rootCmd.AddCommand(DefineTreeCommand())
	rootCmd.AddCommand(DefineExtractCommand())
	rootCmd.AddCommand(DefineRecoverBootCommand())
	rootCmd.AddCommand(DefineRecoverFATCommand())
	rootCmd.AddCommand(DefineScanDeletedCommand())
	rootCmd.AddCommand(DefineRecoverDeletedCommand())
	rootCmd.AddCommand(DefineCarveCommand())
	rootCmd.AddCommand(DefineFormatsCommand())
	rootCmd.AddCommand(DefineMountCommand())
	rootCmd.AddCommand(DefineMergeCommand())

	return rootCmd.Execute()
}
