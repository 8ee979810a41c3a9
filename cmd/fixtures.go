package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"

	"github.com/nyulibraries/ultraviolet-cli/internal/api"
	"github.com/nyulibraries/ultraviolet-cli/internal/console"
	"github.com/nyulibraries/ultraviolet-cli/internal/ledger"
	"github.com/nyulibraries/ultraviolet-cli/internal/repository/objectstore"
	"github.com/nyulibraries/ultraviolet-cli/internal/schema"
	"github.com/nyulibraries/ultraviolet-cli/internal/service"
)

var (
	fixturesAPIURL  string
	fixturesDir     string
	fixturesOutput  string
	fixturesToken   string
	fixturesSchema  string
	fixturesPublish bool
	fixturesQuiet   bool
)

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Fixture subcommands: ingest, purge, validate",
}

var fixturesIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Post a local directory of fixture draft records via the REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := fixturesClient(ctx)
		if err != nil {
			return err
		}

		console.Labelf("REST API: ", "%s", client.RecordsURL())
		console.Labelf("Fixtures directory: ", "%s", fixturesDir)

		led, err := ledger.Load(fixturesOutput)
		if err != nil {
			return err
		}

		var itemSchema *gojsonschema.Schema
		if fixturesSchema != "" {
			itemSchema, err = schema.FromFile(fixturesSchema)
			if err != nil {
				return err
			}
			console.Labelf("JSON Schema: ", "%s", fixturesSchema)
		}

		uploader := service.NewUploadService(cfg.ChunkSize, fixturesQuiet, nil)
		fixtures := service.NewFixtureService(client, uploader, func() (objectstore.BucketStore, error) {
			return storeFactory.Open(cfg.Locations[cfg.DefaultLocation])
		})

		summary, err := fixtures.Ingest(ctx, service.IngestOptions{
			RootDir: fixturesDir,
			Ledger:  led,
			Schema:  itemSchema,
			Publish: fixturesPublish,
		})
		if err != nil {
			return err
		}

		console.Successf("\nCreated %d of %d records (%d files uploaded)",
			summary.Created, summary.Found, summary.Uploaded)
		if failed := summary.Failed(); len(failed) > 0 {
			console.Warnf("%d items failed; see messages above", len(failed))
		}
		return nil
	},
}

var fixturesPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all fixture draft records tracked by the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := fixturesClient(ctx)
		if err != nil {
			return err
		}

		console.Labelf("REST API: ", "%s", client.RecordsURL())

		led, err := ledger.Load(fixturesOutput)
		if err != nil {
			return err
		}

		fixtures := service.NewFixtureService(client, nil, nil)
		summary, err := fixtures.Purge(ctx, led)
		if err != nil {
			return err
		}

		console.Successf("Deleted %d draft records, %d remaining", summary.Deleted, summary.Remaining)
		return nil
	},
}

var fixturesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a local directory of fixture records against a JSON schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if fixturesDir == "" {
			fixturesDir = cfg.FixturesDir
		}
		console.Labelf("Fixtures directory: ", "%s", fixturesDir)
		console.Labelf("JSON Schema: ", "%s", fixturesSchema)

		fileSchema, err := schema.FromFile(fixturesSchema)
		if err != nil {
			return err
		}

		records, err := findRecordFiles(fixturesDir)
		if err != nil {
			return err
		}
		console.Infof("\nFound %d records", len(records))

		for _, file := range records {
			payload, err := os.ReadFile(file)
			if err != nil {
				console.Errorf("%s fails", file)
				console.Errorf("%v", err)
				continue
			}
			if err := schema.Validate(payload, fileSchema); err != nil {
				console.Errorf("%s fails", file)
				console.Errorf("%v", err)
				continue
			}
			console.Infof("%s passes", file)
		}
		return nil
	},
}

// fixturesClient builds the API client for fixture commands, honoring the
// per-command flag overrides and filling unset flags from config.
func fixturesClient(ctx context.Context) (*api.Client, error) {
	if fixturesAPIURL == "" {
		fixturesAPIURL = cfg.APIURL
	}
	if fixturesDir == "" {
		fixturesDir = cfg.FixturesDir
	}
	if fixturesOutput == "" {
		fixturesOutput = cfg.LedgerPath
	}
	if fixturesToken == "" {
		fixturesToken = cfg.APIToken
	}

	token, err := api.ResolveToken(ctx, fixturesToken, cfg.AwsConfig)
	if err != nil {
		return nil, err
	}
	return api.NewClient(fixturesAPIURL, token, cfg.RequestPacing, cfg.InsecureSkipVerify), nil
}

// findRecordFiles collects every .json file below root, recursively.
func findRecordFiles(root string) ([]string, error) {
	var records []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			records = append(records, path)
		}
		return nil
	})
	return records, err
}

func init() {
	for _, c := range []*cobra.Command{fixturesIngestCmd, fixturesPurgeCmd} {
		c.Flags().StringVarP(&fixturesAPIURL, "api", "a", "", "Repository REST API base URL")
		c.Flags().StringVarP(&fixturesOutput, "output", "o", "", "Where fixture pid mappings are written")
		c.Flags().StringVarP(&fixturesToken, "token", "t", "", "REST API token")
	}
	fixturesIngestCmd.Flags().StringVarP(&fixturesDir, "dir", "d", "", "Path to directory of fixtures")
	fixturesIngestCmd.Flags().StringVarP(&fixturesSchema, "schema-file", "s", "", "Path to a JSON schema to check items against")
	fixturesIngestCmd.Flags().BoolVar(&fixturesPublish, "publish", false, "Publish each record after creation")
	fixturesIngestCmd.Flags().BoolVarP(&fixturesQuiet, "quiet", "q", false, "Suppress progress bars")

	fixturesValidateCmd.Flags().StringVarP(&fixturesDir, "dir", "d", "", "Path to directory of fixtures")
	fixturesValidateCmd.Flags().StringVarP(&fixturesSchema, "schema-file", "s", "", "Path to json schema")
	fixturesValidateCmd.MarkFlagRequired("schema-file")

	fixturesCmd.AddCommand(fixturesIngestCmd)
	fixturesCmd.AddCommand(fixturesPurgeCmd)
	fixturesCmd.AddCommand(fixturesValidateCmd)
	rootCmd.AddCommand(fixturesCmd)
}
