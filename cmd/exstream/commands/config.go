package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/pkg/exclient"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// ConfigDirName is the directory under $HOME holding config.yml.
const ConfigDirName = ".exstream"

// Viper keys. Environment variables use the EXSTREAM_ prefix with dots
// replaced by underscores.
const (
	KeyOutput              = "output"
	KeyVerbose             = "verbose"
	KeyToken               = "token"
	KeyMode                = "deployment.type"
	KeyIdentityURL         = "otds.url"
	KeyTenant              = "otds.tenant"
	KeyUsername            = "otds.username"
	KeyPassword            = "otds.password"
	KeyClientID            = "otds.client_id"
	KeyServiceClientID     = "otds.service_client_id"
	KeyServiceClientSecret = "otds.service_client_secret"
	KeySubscription        = "otds.subscription_name"
	KeyDesignURL           = "das.url"
	KeyOrchestrationURL    = "orchestration.url"
	KeyEmpowerURL          = "empower.url"
	KeyEntitlementURL      = "ets.url"
	KeyEntitlementPath     = "ets.path"
	KeyRetryMax            = "http.retry_max"
	KeyTimeout             = "http.timeout"
	KeyCacheType           = "cache.type"
	KeyCacheTTL            = "cache.ttl"
	KeyNATSURL             = "cache.nats_url"
	KeyNATSBucket          = "cache.nats_bucket"
)

// Static errors for err113 compliance.
var (
	ErrUnknownConfigKey         = errors.New("unknown configuration key")
	ErrLoginFailed              = errors.New("sign-in failed for grant")
	ErrCommunicationSetRequired = errors.New("pass a communication set id or --communication")
	ErrDriverRequired           = errors.New("--driver is required")
	ErrSingleDriverOnly         = errors.New("--type and --out-file take a single --driver")
	ErrSecretNotPersisted       = errors.New("secrets are not stored in the config file, use the EXSTREAM_ environment variables")
)

// settableKeys are the keys "config set" accepts.
var settableKeys = []string{
	KeyOutput, KeyMode, KeyIdentityURL, KeyTenant, KeyUsername, KeyClientID,
	KeyServiceClientID, KeySubscription, KeyDesignURL, KeyOrchestrationURL,
	KeyEmpowerURL, KeyEntitlementURL, KeyEntitlementPath, KeyRetryMax,
	KeyTimeout, KeyCacheType, KeyCacheTTL, KeyNATSURL, KeyNATSBucket,
}

var secretKeys = []string{KeyToken, KeyPassword, KeyServiceClientSecret}

// fileSystem backs config writes, input files and saved outputs.
var fileSystem afero.Fs = afero.NewOsFs()

// service names passed to newClient to check the matching URL is set.
const (
	needDesign        = "design"
	needOrchestration = "orchestration"
	needEmpower       = "empower"
	needEntitlement   = "entitlement"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in the Exstream CLI config file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigPathCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration from file, environment and flags with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := effectiveSettings()

			return renderOutput(cmd.OutOrStdout(), settings, func(w io.Writer) error {
				table := tablewriter.NewWriter(w)
				table.Header("Key", "Value")

				keys := make([]string, 0, len(settings))
				for key := range settings {
					keys = append(keys, key)
				}

				slices.Sort(keys)

				for _, key := range keys {
					_ = table.Append(key, settings[key])
				}

				return renderTable(table)
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Store a configuration value in the config file. Secrets are refused.",
		Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			err = setConfigValue(fileSystem, path, args[0], args[1])
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)

			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)

			return nil
		},
	}
}

// setConfigValue writes key=value into the YAML config file at path,
// keeping the other settings.
func setConfigValue(fs afero.Fs, path, key, value string) error {
	if slices.Contains(secretKeys, key) {
		return fmt.Errorf("%w: %s", ErrSecretNotPersisted, key)
	}

	if !slices.Contains(settableKeys, key) {
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}

	if key == KeyOutput {
		err := validateOutputFormat(value)
		if err != nil {
			return err
		}
	}

	err := fs.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	store := viper.New()
	store.SetFs(fs)
	store.SetConfigFile(path)
	store.SetConfigType("yaml")

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if exists {
		err = store.ReadInConfig()
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	store.Set(key, value)

	err = store.WriteConfigAs(path)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	err = fs.Chmod(path, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	return nil
}

func configFilePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ConfigDirName, "config.yml"), nil
}

// effectiveSettings returns every known key with secrets masked.
func effectiveSettings() map[string]string {
	settings := make(map[string]string)

	for _, key := range slices.Concat(settableKeys, secretKeys) {
		value := viper.GetString(key)
		if value == "" {
			continue
		}

		if slices.Contains(secretKeys, key) {
			value = constants.MaskedSecret
		}

		settings[key] = value
	}

	return settings
}

// buildClientConfig assembles an exstream.Config from viper.
func buildClientConfig() (*exstream.Config, error) {
	config := &exstream.Config{
		Mode:                exstream.DeploymentMode(viper.GetString(KeyMode)),
		IdentityURL:         viper.GetString(KeyIdentityURL),
		DesignURL:           viper.GetString(KeyDesignURL),
		OrchestrationURL:    viper.GetString(KeyOrchestrationURL),
		EmpowerURL:          viper.GetString(KeyEmpowerURL),
		EntitlementURL:      viper.GetString(KeyEntitlementURL),
		EntitlementPath:     viper.GetString(KeyEntitlementPath),
		Tenant:              viper.GetString(KeyTenant),
		SubscriptionName:    viper.GetString(KeySubscription),
		Username:            viper.GetString(KeyUsername),
		Password:            viper.GetString(KeyPassword),
		ClientID:            viper.GetString(KeyClientID),
		ServiceClientID:     viper.GetString(KeyServiceClientID),
		ServiceClientSecret: viper.GetString(KeyServiceClientSecret),
		AccessToken:         viper.GetString(KeyToken),
		HTTPTimeout:         viper.GetDuration(KeyTimeout),
		RetryMax:            viper.GetInt(KeyRetryMax),
		UserAgent:           "exstream-cli",
	}

	if config.Username != "" && config.Password == "" && config.AccessToken == "" {
		password, err := promptPassword(config.Username)
		if err != nil {
			return nil, err
		}

		config.Password = password
	}

	if config.AccessToken == "" && !config.HasUserCredentials() && !config.HasServiceCredentials() {
		return nil, constants.ErrNoTokenAvailable
	}

	if viper.GetBool(KeyVerbose) {
		config.Logger = NewLogger(true, os.Stderr)
		config.Debug = true
	}

	config.Cache = cacheConfig()

	return config, nil
}

func cacheConfig() *exstream.CacheConfig {
	cacheType := exstream.CacheType(strings.ToLower(viper.GetString(KeyCacheType)))

	switch cacheType {
	case "", exstream.CacheTypeNone:
		return nil
	case exstream.CacheTypeNATS:
		config := exstream.DefaultCacheConfig()
		config.Type = exstream.CacheTypeNATS
		config.NATS = &exstream.NATSKVConfig{
			URL:    viper.GetString(KeyNATSURL),
			Bucket: viper.GetString(KeyNATSBucket),
			TTL:    viper.GetDuration(KeyCacheTTL),
		}

		return config
	default:
		config := exstream.DefaultCacheConfig()
		config.Type = cacheType

		if ttl := viper.GetDuration(KeyCacheTTL); ttl > 0 {
			config.Options.TTL = ttl
		}

		return config
	}
}

// promptPassword reads a password from the terminal. Without a terminal
// the password stays empty and validation reports it.
func promptPassword(username string) (string, error) {
	fd := int(os.Stdin.Fd()) //nolint:gosec // stdin descriptor fits in int
	if !term.IsTerminal(fd) {
		return "", nil
	}

	_, _ = fmt.Fprintf(os.Stderr, "Password for %s: ", username)

	password, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}

// newClient builds a client after checking that the URLs of the services
// the command talks to are configured.
func newClient(ctx context.Context, needs ...string) (exstream.Client, error) {
	required := map[string]struct {
		key string
		err error
	}{
		needDesign:        {KeyDesignURL, constants.ErrNoDesignURL},
		needOrchestration: {KeyOrchestrationURL, constants.ErrNoOrchestrationURL},
		needEmpower:       {KeyEmpowerURL, constants.ErrNoEmpowerURL},
		needEntitlement:   {KeyEntitlementURL, constants.ErrNoEntitlementURL},
	}

	for _, need := range needs {
		if viper.GetString(required[need].key) == "" {
			return nil, required[need].err
		}
	}

	config, err := buildClientConfig()
	if err != nil {
		return nil, err
	}

	client, err := exclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// commandContext returns the command context, or a background context when
// the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
