package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/armory/internal/common"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "armory",
		Short: "Armory - Battle.net character sync",
		Long: `Armory keeps linked Battle.net characters enriched and stored:
equipment, media, summary and talents per character, plus the journal
instance catalogue.`,
		Version:       common.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(fmt.Sprintf(
		"Armory version %s\nBuild: %s\nCommit: %s\n",
		common.Version, common.Build, common.GitCommit,
	))
	root.PersistentFlags().String("config", "", "config file (default: $ARMORY_CONFIG, ./armory.toml or config/armory.toml)")

	root.AddCommand(
		newSyncCmd(),
		newUpdateUserCmd(),
		newImportCmd(),
		newCharactersCmd(),
		newEvictCmd(),
		newInstancesCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}
