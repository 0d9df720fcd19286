package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagAPIURL      = "api-url"
	flagDatabaseURL = "database-url"
	flagTimeout     = "timeout"
	flagSlot        = "slot"
	flagVerbose     = "verbose"

	flagEmail        = "email"
	flagPassword     = "password"
	flagFullName     = "full-name"
	flagCNIC         = "cnic"
	flagCode         = "code"
	flagTo           = "to"
	flagAmount       = "amount"
	flagNote         = "note"
	flagYes          = "yes"
	flagName         = "name"
	flagRelationship = "relationship"
	flagPercentage   = "percentage"
	flagHash         = "hash"
	flagIndex        = "index"
	flagLatest       = "latest"
	flagListenAddr   = "listen-addr"
	flagSeedBalance  = "seed-balance"
	flagOrigins      = "allowed-origins"

	envPrefix          = "BCWALLET"
	defaultAPIURL      = "http://localhost:8080"
	defaultHTTPTimeout = 15 * time.Second
	defaultSlotName    = "default"
)

type runtimeConfig struct {
	APIURL      string
	DatabaseURL string
	Timeout     time.Duration
	Slot        string
	Verbose     bool
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bcwallet: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "bcwallet",
		Short:         "Custodial wallet client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
	}

	cmd.PersistentFlags().String(flagAPIURL, defaultAPIURL, "wallet service base URL")
	cmd.PersistentFlags().String(flagDatabaseURL, defaultDatabaseURL(), "credential database (sqlite path or postgres URL)")
	cmd.PersistentFlags().Duration(flagTimeout, defaultHTTPTimeout, "HTTP request timeout")
	cmd.PersistentFlags().String(flagSlot, defaultSlotName, "credential slot for multi-identity databases")
	cmd.PersistentFlags().Bool(flagVerbose, false, "emit operation logs")

	cmd.AddCommand(
		newRegisterCommand(cfg),
		newLoginCommand(cfg),
		newLogoutCommand(cfg),
		newWhoamiCommand(cfg),
		newProfileCommand(cfg),
		newBalanceCommand(cfg),
		newSendCommand(cfg),
		newHistoryCommand(cfg),
		newBeneficiaryCommand(cfg),
		newExplorerCommand(cfg),
		newZakatCommand(cfg),
		newDevServerCommand(cfg),
	)
	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Root().PersistentFlags()
	for _, flagName := range []string{flagAPIURL, flagDatabaseURL, flagTimeout, flagSlot, flagVerbose} {
		if err := v.BindPFlag(flagName, flags.Lookup(flagName)); err != nil {
			return err
		}
	}

	cfg.APIURL = strings.TrimSpace(v.GetString(flagAPIURL))
	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	cfg.Timeout = v.GetDuration(flagTimeout)
	cfg.Slot = strings.TrimSpace(v.GetString(flagSlot))
	cfg.Verbose = v.GetBool(flagVerbose)

	if cfg.APIURL == "" {
		return fmt.Errorf("%s is required", flagAPIURL)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("%s is required", flagDatabaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.Slot == "" {
		cfg.Slot = defaultSlotName
	}
	return nil
}

func defaultDatabaseURL() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sqlite://bcwallet.db"
	}
	return "sqlite://" + filepath.Join(home, ".bcwallet", "credentials.db")
}
