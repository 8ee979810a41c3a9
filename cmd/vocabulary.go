package main

import (
	"github.com/spf13/cobra"

	"github.com/nyulibraries/ultraviolet-cli/internal/console"
)

var updateVocabularyCmd = &cobra.Command{
	Use:   "update-vocabulary VOCAB_KEY JSON_PAYLOAD",
	Short: "Add a new entry to the specified vocabulary",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, data := args[0], args[1]

		name, err := vocabService.Update(cmd.Context(), key, []byte(data))
		if err != nil {
			return err
		}
		console.Successf("Entry added to '%s' vocabulary and index refreshed.", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateVocabularyCmd)
}
