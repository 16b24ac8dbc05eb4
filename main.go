package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"bank-bots/enable-banking-auth/auth"
	"bank-bots/enable-banking-auth/banks"
	"bank-bots/enable-banking-auth/enablebanking"
	"bank-bots/enable-banking-auth/flow"
	"bank-bots/enable-banking-auth/types"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	console "github.com/phsym/console-slog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:80.0) Gecko/20100101 Firefox/80.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	verbose := false
	rootCmd := &cobra.Command{
		Use:          "enable-banking-auth",
		Short:        "Authorize access to a bank account through Enable Banking and print its data",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			godotenv.Load()
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(console.NewHandler(cmd.ErrOrStderr(), &console.HandlerOptions{
				Level:      level,
				TimeFormat: time.TimeOnly,
			})))
		},
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if err := run(ctx, cmd, v); err != nil {
				slog.Error(fmt.Sprintf("Unexpected error happened: %v", err))
			}
		},
	}

	flags := rootCmd.Flags()
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringP("config-file", "f", "config.json", "config file (json, yaml or toml)")
	flags.String("redirect-url", "", "url the PSU is sent back to after consent")
	flags.String("bank-name", "", "ASPSP name")
	flags.String("bank-country", "", "ASPSP country code")
	flags.Bool("pick-first-bank", false, "use the first bank returned by /aspsps")
	flags.String("database-url", "", "export transactions to this Postgres database")
	v.BindPFlag("config_file", flags.Lookup("config-file"))
	v.BindPFlag("redirect_url", flags.Lookup("redirect-url"))
	v.BindPFlag("bank.name", flags.Lookup("bank-name"))
	v.BindPFlag("bank.country", flags.Lookup("bank-country"))
	v.BindPFlag("bank.pick_first", flags.Lookup("pick-first-bank"))
	v.BindPFlag("database_url", flags.Lookup("database-url"))

	return rootCmd
}

func run(ctx context.Context, cmd *cobra.Command, v *viper.Viper) error {
	config, err := loadConfig(v)
	if err != nil {
		return err
	}

	token := config.Token
	if token == "" {
		token, err = auth.GetJWT(config.ApplicationID, config.KeyPath, time.Now())
		if err != nil {
			return err
		}
	}

	deps := flow.Deps{
		API: enablebanking.NewClient(config.BaseURL, token, config.HTTPTimeout),
		In:  cmd.InOrStdin(),
		Out: cmd.OutOrStdout(),
	}
	if config.DatabaseURL != "" {
		exporter, err := banks.Connect(ctx, config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer exporter.Close()
		deps.Export = exporter.Export
	}

	return flow.Run(ctx, config, deps)
}

func loadConfig(v *viper.Viper) (*types.Config, error) {
	v.SetDefault("config_file", "config.json")
	v.SetDefault("application_id", "")
	v.SetDefault("key_path", "")
	v.SetDefault("token", "")
	v.SetDefault("base_url", enablebanking.DefaultBaseURL)
	v.SetDefault("redirect_url", "http://localhost:8080/auth_redirect")
	v.SetDefault("state", "")
	v.SetDefault("bank.name", "Nordea")
	v.SetDefault("bank.country", "FI")
	v.SetDefault("bank.pick_first", false)
	v.SetDefault("psu.type", "personal")
	v.SetDefault("psu.ip_address", "10.10.10.10")
	v.SetDefault("psu.user_agent", defaultUserAgent)
	v.SetDefault("http_timeout", time.Duration(0))
	v.SetDefault("database_url", "")

	v.SetEnvPrefix("EB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(v.GetString("config_file"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config file %q: %w", v.GetString("config_file"), err)
		}
		slog.Debug("no config file", "path", v.GetString("config_file"))
	}

	config := &types.Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	if config.State == "" {
		config.State = uuid.NewString()
	}
	if config.Token == "" && (config.ApplicationID == "" || config.KeyPath == "") {
		return nil, fmt.Errorf("either token or both application_id and key_path must be configured")
	}
	return config, nil
}
