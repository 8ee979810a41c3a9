package main

import (
	"github.com/spf13/cobra"

	"github.com/nyulibraries/ultraviolet-cli/internal/console"
)

var (
	draftOwner    string
	draftData     string
	draftLocation string
)

var deleteRecordCmd = &cobra.Command{
	Use:   "delete-record PID",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := args[0]
		if err := recordService.Delete(cmd.Context(), pid); err != nil {
			return err
		}
		console.Successf("Deleted record %s successfully", pid)
		return nil
	},
}

var createDraftRecordCmd = &cobra.Command{
	Use:   "create-draft-record",
	Short: "Create a draft record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		draft, err := recordService.CreateDraft(cmd.Context(), draftOwner, []byte(draftData), draftLocation)
		if err != nil {
			return err
		}

		if draft.BucketLocation == cfg.DefaultLocation {
			console.Successf("Draft record created with default bucket location.")
		} else {
			console.Successf("Draft record created with bucket location: %s.", draft.BucketLocation)
		}
		console.Successf("Draft record PID: %s.", draft.ID)
		console.Successf("Operation completed successfully.")
		return nil
	},
}

func init() {
	createDraftRecordCmd.Flags().StringVarP(&draftOwner, "owner", "o", "owner@nyu.edu", "Email address of the user who creates the draft record")
	createDraftRecordCmd.Flags().StringVarP(&draftData, "data", "d", "", "The data of the draft record")
	createDraftRecordCmd.Flags().StringVarP(&draftLocation, "name", "n", "default", "Location name for the bucket. Use default location if not provided")
	createDraftRecordCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(deleteRecordCmd)
	rootCmd.AddCommand(createDraftRecordCmd)
}
