package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/exstream-client/cmd/exstream/commands"
	"github.com/fivetwenty-io/exstream-client/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "exstream",
	Short: "Exstream design and orchestration CLI",
	Long: `A command-line interface for the Exstream design, orchestration and
Empower services.

It signs in against the OTDS identity service and gives access to domains,
resources, links, package imports, manifests and on-demand output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.exstream/config.yml)")
	flags.String("output", constants.FormatTable, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.StringP("token", "t", "", "bearer token used instead of signing in")
	flags.String("mode", "", "deployment type (ot2, local)")
	flags.String("otds-url", "", "OTDS identity service URL")
	flags.String("tenant", "", "OTDS tenant id")
	flags.StringP("username", "u", "", "user for the password grant")
	flags.String("password", "", "password for the password grant (prompted when missing)")
	flags.String("client-id", "", "public client id for the password grant")
	flags.String("service-client-id", "", "service client id for output generation")
	flags.String("service-client-secret", "", "service client secret for output generation")
	flags.String("subscription", "", "hosted subscription name")
	flags.String("das-url", "", "design service base URL")
	flags.String("orchestration-url", "", "orchestration service base URL")
	flags.String("empower-url", "", "Empower base URL")
	flags.String("ets-url", "", "entitlement service URL")
	flags.Int("retry-max", 0, "retries for transient failures (0 disables retries)")
	flags.Duration("timeout", 0, "HTTP timeout")
	flags.String("cache", "", "GET response cache (memory, nats, none)")
	flags.String("nats-url", "", "NATS server URL for the nats cache")

	bindings := map[string]string{
		"config":                "config",
		"output":                commands.KeyOutput,
		"verbose":               commands.KeyVerbose,
		"token":                 commands.KeyToken,
		"mode":                  commands.KeyMode,
		"otds-url":              commands.KeyIdentityURL,
		"tenant":                commands.KeyTenant,
		"username":              commands.KeyUsername,
		"password":              commands.KeyPassword,
		"client-id":             commands.KeyClientID,
		"service-client-id":     commands.KeyServiceClientID,
		"service-client-secret": commands.KeyServiceClientSecret,
		"subscription":          commands.KeySubscription,
		"das-url":               commands.KeyDesignURL,
		"orchestration-url":     commands.KeyOrchestrationURL,
		"empower-url":           commands.KeyEmpowerURL,
		"ets-url":               commands.KeyEntitlementURL,
		"retry-max":             commands.KeyRetryMax,
		"timeout":               commands.KeyTimeout,
		"cache":                 commands.KeyCacheType,
		"nats-url":              commands.KeyNATSURL,
	}

	for flag, key := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewTokenCommand())
	rootCmd.AddCommand(commands.NewDomainsCommand())
	rootCmd.AddCommand(commands.NewResourcesCommand())
	rootCmd.AddCommand(commands.NewLinksCommand())
	rootCmd.AddCommand(commands.NewImportCommand())
	rootCmd.AddCommand(commands.NewManifestCommand())
	rootCmd.AddCommand(commands.NewOutputCommand())
	rootCmd.AddCommand(commands.NewEditorCommand())
	rootCmd.AddCommand(commands.NewDesignCommand())
	rootCmd.AddCommand(commands.NewServiceVersionCommand())
	rootCmd.AddCommand(commands.NewEntitlementCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, commands.ConfigDirName))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// EXSTREAM_OTDS_URL maps to otds.url.
	viper.SetEnvPrefix("EXSTREAM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool(commands.KeyVerbose) {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, commands.DescribeError(err))
		os.Exit(1)
	}
}
