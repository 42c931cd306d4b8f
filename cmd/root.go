package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/curate/internal/catalog"
	"github.com/joescharf/curate/internal/feedback"
	"github.com/joescharf/curate/internal/inspect"
	"github.com/joescharf/curate/internal/llm"
	"github.com/joescharf/curate/internal/output"
	"github.com/joescharf/curate/internal/page"
	"github.com/joescharf/curate/internal/policy"
	"github.com/joescharf/curate/internal/record"
	"github.com/joescharf/curate/internal/store"
	"github.com/joescharf/curate/internal/xref"
	"github.com/joescharf/curate/internal/zenodo"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "curate",
	Short: "Curation checklist - review repository records before accepting them",
	Long: `curate pre-fills the curation checklist of a research-data record.
It fetches the record from Zenodo, DataCite, InvenioRDM, or DSpace,
infers a verdict for every criterion, and drafts the feedback e-mail
to its authors.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/curate/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "curate")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CURATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	setDefaults(filepath.Join(home, ".config", "curate"))

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers the default of every config key.
func setDefaults(stateDir string) {
	pol := policy.DefaultConfig()

	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "curate.db"))
	viper.SetDefault("port", 8080)

	viper.SetDefault("mail.to", "")
	viper.SetDefault("mail.greeting", "Dear")
	viper.SetDefault("mail.subject", "Infoscience bibliographic check")
	viper.SetDefault("mail.signature", "")

	viper.SetDefault("institution.name", "EPFL")
	viper.SetDefault("institution.collection", "")
	viper.SetDefault("institution.curation_url", "")

	viper.SetDefault("policy.institution_pattern", pol.InstitutionPattern)
	viper.SetDefault("policy.email_pattern", pol.EmailPattern)
	viper.SetDefault("policy.allowed_licenses", pol.AllowedLicenses)
	viper.SetDefault("policy.restricted_phrases", pol.RestrictedPhrases)
	viper.SetDefault("policy.funding_phrases", pol.FundingPhrases)
	viper.SetDefault("policy.thesis_phrases", pol.ThesisPhrases)
	viper.SetDefault("policy.proprietary_extensions", pol.ProprietaryExtensions)
	viper.SetDefault("policy.repository_doi_prefix", pol.RepositoryDOIPrefix)
	viper.SetDefault("policy.max_file_size", pol.MaxFileSize)

	viper.SetDefault("xref.search_url", xref.DefaultSearchURL)
	viper.SetDefault("xref.total_path", xref.DefaultTotalPath)
	viper.SetDefault("xref.concurrency", xref.DefaultConcurrency)

	viper.SetDefault("zenodo.base_url", zenodo.DefaultBaseURL)
	viper.SetDefault("zenodo.token", "")
	viper.SetDefault("zenodo.community", "epfl")

	viper.SetDefault("http.user_agent", record.DefaultUserAgent)
	viper.SetDefault("http.timeout", "20s")

	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", llm.DefaultModel)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	// Initialize store lazily, only when commands actually need it.
	// This allows config/version commands to run without a db.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// policyConfig builds the curation policy from config.
func policyConfig() policy.Config {
	return policy.Config{
		InstitutionPattern:    viper.GetString("policy.institution_pattern"),
		EmailPattern:          viper.GetString("policy.email_pattern"),
		AllowedLicenses:       viper.GetStringSlice("policy.allowed_licenses"),
		RestrictedPhrases:     viper.GetStringSlice("policy.restricted_phrases"),
		FundingPhrases:        viper.GetStringSlice("policy.funding_phrases"),
		ThesisPhrases:         viper.GetStringSlice("policy.thesis_phrases"),
		ProprietaryExtensions: viper.GetStringSlice("policy.proprietary_extensions"),
		RepositoryDOIPrefix:   viper.GetString("policy.repository_doi_prefix"),
		MaxFileSize:           viper.GetInt64("policy.max_file_size"),
	}
}

// mailContext returns the configured defaults of drafted messages.
func mailContext() feedback.Context {
	return feedback.Context{
		Greeting:    viper.GetString("mail.greeting"),
		Subject:     viper.GetString("mail.subject"),
		Signature:   viper.GetString("mail.signature"),
		Institution: viper.GetString("institution.name"),
		Collection:  viper.GetString("institution.collection"),
		CurationURL: viper.GetString("institution.curation_url"),
	}
}

// newInspector wires every collaborator of an inspection from config.
// The description assessor is only set when an API key is configured.
func newInspector() (*inspect.Inspector, error) {
	eval, err := policy.New(policyConfig())
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}

	ua := viper.GetString("http.user_agent")
	timeout := viper.GetDuration("http.timeout")

	idx := xref.NewHTTPIndex(viper.GetString("xref.search_url"), viper.GetString("xref.total_path"), ua, timeout)

	in := &inspect.Inspector{
		Catalog:   catalog.Default(),
		Evaluator: eval,
		Records:   record.NewFetcher(ua, timeout),
		Pages:     page.NewFetcher(ua, timeout),
		CrossRef:  xref.NewChecker(idx, viper.GetInt("xref.concurrency")),
	}
	if c := newLLMClient(); c != nil {
		in.Assessor = c
	}
	return in, nil
}
