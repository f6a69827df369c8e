package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "afvalalert",
	Short: "Litter report service with asynchronous waste classification",
	Long: `afvalalert lets citizens report litter with a photo and location.
Uploaded images are classified in the background by an external
classification service; staff track reports through a status workflow.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
