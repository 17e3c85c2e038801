package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "tidyfin",
		Short:         "Identify video files and organize them into a movie and show library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	pf.StringVarP(&flags.source, "source", "s", "", "Directory to scan for video files")
	pf.StringVarP(&flags.movies, "movies", "m", "", "Movie library root")
	pf.StringVarP(&flags.shows, "shows", "t", "", "TV show library root")
	pf.StringVarP(&flags.review, "review", "r", "", "Manual review directory")
	pf.StringVar(&flags.apiKey, "api-key", "", "TMDB API key (overrides config and TMDB_API_KEY)")
	pf.BoolVar(&flags.noTMDB, "no-tmdb", false, "Skip catalog lookups and plan from filenames only")
	pf.BoolVar(&flags.noRecursive, "no-recursive", false, "Only scan the top level of the source directory")
	pf.IntVar(&flags.concurrency, "concurrency", 0, "Number of files identified in parallel")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "Only log errors")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newPreviewCommand(ctx))
	rootCmd.AddCommand(newOrganizeCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
