package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nyulibraries/ultraviolet-cli/internal/api"
	"github.com/nyulibraries/ultraviolet-cli/internal/config"
	"github.com/nyulibraries/ultraviolet-cli/internal/console"
	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
	"github.com/nyulibraries/ultraviolet-cli/internal/logging"
	"github.com/nyulibraries/ultraviolet-cli/internal/repository/objectstore"
	"github.com/nyulibraries/ultraviolet-cli/internal/service"
)

var (
	cfg              *config.Config
	apiClient        *api.Client
	storeFactory     *objectstore.Factory
	locationRegistry *objectstore.LocationRegistry
	recordService    *service.RecordService
	communityService *service.CommunityService
	vocabService     *service.VocabularyService
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "uv-cli",
	Short:         "Administrative commands for the UltraViolet repository",
	Long:          "CLI for UltraViolet repository administration: communities, records, vocabularies and fixture ingestion",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().String("api_url", "", "Repository REST API base URL")
	rootCmd.PersistentFlags().String("api_token", "", "REST API token (or ssm:/parameter/path)")
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.Init(cfg.LogLevel)

	token, err := api.ResolveToken(context.Background(), cfg.APIToken, cfg.AwsConfig)
	if err != nil {
		log.Fatalf("Error resolving API token: %v", err)
	}

	apiClient = api.NewClient(cfg.APIURL, token, cfg.RequestPacing, cfg.InsecureSkipVerify)
	storeFactory = objectstore.NewFactory(cfg.AwsConfig, cfg.GcsClient)

	locationRegistry, err = objectstore.NewLocationRegistry(cfg.LocationsPath, cfg.Locations)
	if err != nil {
		log.Fatalf("Error loading location registry: %v", err)
	}

	recordService = service.NewRecordService(
		apiClient, locationRegistry, cfg.DefaultLocation, cfg.Locations[cfg.DefaultLocation],
	)
	communityService = service.NewCommunityService(apiClient)
	vocabService = service.NewVocabularyService(apiClient)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		console.Errorf("%v", err)
		os.Exit(uverrors.ExitCode(err))
	}
}
