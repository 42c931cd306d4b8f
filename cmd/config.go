package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/curate/internal/output"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "curate"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage curate configuration.

Running bare 'curate config' is the same as 'curate config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# curate configuration
# See: curate config show (for effective values and sources)

# State/data directory (default: ~/.config/curate)
# state_dir: {{ .StateDir }}

# SQLite review ledger path (default: ~/.config/curate/curate.db)
# db_path: {{ .DBPath }}

# REST API port for 'curate serve'
port: {{ .Port }}

# Feedback e-mails
mail:
  # Default recipient address of the mailto link
  to: "{{ .MailTo }}"
  greeting: "{{ .MailGreeting }}"
  subject: "{{ .MailSubject }}"
  # Name signed at the bottom of every message
  signature: "{{ .MailSignature }}"

institution:
  name: "{{ .InstitutionName }}"
  # Collection name used in messages (default: "<name> Community on Zenodo")
  collection: "{{ .InstitutionCollection }}"
  # Link to the published curation procedure
  curation_url: "{{ .InstitutionCurationURL }}"

# Publication lookup for related identifiers
xref:
  search_url: "{{ .XrefSearchURL }}"
  total_path: "{{ .XrefTotalPath }}"
  concurrency: {{ .XrefConcurrency }}

# Zenodo community inbox
zenodo:
  base_url: "{{ .ZenodoBaseURL }}"
  community: "{{ .ZenodoCommunity }}"
  # Personal access token, or set CURATE_ZENODO_TOKEN
  # token: ""

# Description assessment (optional, or set ANTHROPIC_API_KEY)
anthropic:
  model: "{{ .AnthropicModel }}"
  # api_key: ""

# The curation policy (institution pattern, licenses, phrases) can be
# overridden under "policy:"; see 'curate config show' for the keys.
`

type configTemplateData struct {
	StateDir               string
	DBPath                 string
	Port                   int
	MailTo                 string
	MailGreeting           string
	MailSubject            string
	MailSignature          string
	InstitutionName        string
	InstitutionCollection  string
	InstitutionCurationURL string
	XrefSearchURL          string
	XrefTotalPath          string
	XrefConcurrency        int
	ZenodoBaseURL          string
	ZenodoCommunity        string
	AnthropicModel         string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		StateDir:               viper.GetString("state_dir"),
		DBPath:                 viper.GetString("db_path"),
		Port:                   viper.GetInt("port"),
		MailTo:                 viper.GetString("mail.to"),
		MailGreeting:           viper.GetString("mail.greeting"),
		MailSubject:            viper.GetString("mail.subject"),
		MailSignature:          viper.GetString("mail.signature"),
		InstitutionName:        viper.GetString("institution.name"),
		InstitutionCollection:  viper.GetString("institution.collection"),
		InstitutionCurationURL: viper.GetString("institution.curation_url"),
		XrefSearchURL:          viper.GetString("xref.search_url"),
		XrefTotalPath:          viper.GetString("xref.total_path"),
		XrefConcurrency:        viper.GetInt("xref.concurrency"),
		ZenodoBaseURL:          viper.GetString("zenodo.base_url"),
		ZenodoCommunity:        viper.GetString("zenodo.community"),
		AnthropicModel:         viper.GetString("anthropic.model"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeys lists the keys shown by config show, grouped by section.
var configKeys = []string{
	"state_dir",
	"db_path",
	"port",

	"mail.to",
	"mail.greeting",
	"mail.subject",
	"mail.signature",

	"institution.name",
	"institution.collection",
	"institution.curation_url",

	"policy.institution_pattern",
	"policy.allowed_licenses",
	"policy.repository_doi_prefix",
	"policy.max_file_size",

	"xref.search_url",
	"xref.total_path",
	"xref.concurrency",

	"zenodo.base_url",
	"zenodo.community",
	"zenodo.token",

	"http.user_agent",
	"http.timeout",

	"anthropic.model",
	"anthropic.api_key",
}

// envVar returns the environment variable that overrides key.
func envVar(key string) string {
	return "CURATE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// secretKeys are masked in config show.
var secretKeys = map[string]bool{"zenodo.token": true, "anthropic.api_key": true}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	section := ""
	for _, key := range configKeys {
		if sec, _, ok := strings.Cut(key, "."); ok && sec != section {
			section = sec
			fmt.Fprintf(ui.Out, "\n  %s\n", output.Cyan(section))
		}
		val := viper.Get(key)
		if secretKeys[key] && viper.GetString(key) != "" {
			val = "********"
		}
		fmt.Fprintf(ui.Out, "  %-28s %v  %s\n", key, val, detectSource(key, envVar(key), fileValues))
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'curate config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
