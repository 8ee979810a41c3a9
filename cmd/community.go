package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/nyulibraries/ultraviolet-cli/internal/console"
	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
	"github.com/nyulibraries/ultraviolet-cli/internal/service"
)

var (
	communityDesc       string
	communityType       string
	communityVisibility string
	communityPolicy     string
	communityOwner      string
	communityAddGroup   string
)

var createCommunityCmd = &cobra.Command{
	Use:   "create-community NAME",
	Short: "Create a community",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		ctx := cmd.Context()

		console.Warnf("Creating community...")

		payload, err := buildCommunityPayload(name)
		if err != nil {
			return err
		}
		console.Successf("Created community data:\n%s", payload)

		community, err := communityService.Create(ctx, payload, communityOwner)
		if err != nil {
			return err
		}
		console.Successf("Created community %s successfully with ID: %s. "+
			"Optionally, you can append this ID to COMMUNITIES_AUTO_UPDATE "+
			"list in invenio.cfg to setup automatic update of community "+
			"group members.", name, community.ID)

		if communityAddGroup != "" {
			console.Warnf("Adding group %s to community...", communityAddGroup)
			if err := communityService.AddGroup(ctx, community.ID, communityAddGroup); err != nil {
				return err
			}
			console.Successf("Added group %s successfully", communityAddGroup)
		}
		return nil
	},
}

// buildCommunityPayload validates the enum flags and assembles the community
// creation payload.
func buildCommunityPayload(name string) (json.RawMessage, error) {
	if err := checkChoice("type", communityType, "organization", "event", "topic", "project"); err != nil {
		return nil, err
	}
	if err := checkChoice("visibility", communityVisibility, "public", "restricted"); err != nil {
		return nil, err
	}
	if err := checkChoice("policy", communityPolicy, "open", "closed"); err != nil {
		return nil, err
	}
	return service.BuildCommunityData(name, communityDesc, communityType, communityVisibility, communityPolicy)
}

func checkChoice(flag, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	quoted := ""
	for i, a := range allowed {
		if i > 0 {
			quoted += ", "
		}
		quoted += "'" + a + "'"
	}
	return uverrors.Validationf("Invalid value for --%s: '%s' is not one of %s.", flag, value, quoted)
}

func init() {
	createCommunityCmd.Flags().StringVarP(&communityDesc, "desc", "d", "", "A description of the community to be created")
	createCommunityCmd.Flags().StringVarP(&communityType, "type", "t", "organization", "Type of the community: organization, event, topic or project")
	createCommunityCmd.Flags().StringVarP(&communityVisibility, "visibility", "v", "public", "Visibility of the community: public or restricted")
	createCommunityCmd.Flags().StringVarP(&communityPolicy, "policy", "p", "open", "Member and record policy of the community: open or closed")
	createCommunityCmd.Flags().StringVarP(&communityOwner, "owner", "o", "owner@nyu.edu", "Email address of the designated owner of the community")
	createCommunityCmd.Flags().StringVarP(&communityAddGroup, "add-group", "g", "", "Add an existing group to the community as a reader")
	createCommunityCmd.MarkFlagRequired("desc")
	rootCmd.AddCommand(createCommunityCmd)
}
