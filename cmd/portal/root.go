package main

import (
	"os"

	"github.com/66gu1/thesisportal/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type cli struct {
	cfgFile string
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "portal",
		Short:         "Thesis portal session and navigation gateway",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		Long: `portal keeps one authenticated session against the thesis portal backend.

It can be used from the command line (login, whoami, pages, sessions...) or run as a
local gateway (serve) that exposes the session signal, the role-filtered navigation
and an authenticated pass-through to the backend API.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
	}
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: config/config.yaml)")

	root.AddCommand(
		newServeCmd(c),
		newLoginCmd(c),
		newLogoutCmd(c),
		newLogoutAllCmd(c),
		newWhoamiCmd(c),
		newPagesCmd(c),
		newMenuCmd(c),
		newSessionsCmd(c),
		newRevokeCmd(c),
		newForgotPasswordCmd(c),
	)

	return root
}

func (c *cli) setup() error {
	if err := godotenv.Overload(".env"); err != nil {
		log.Debug().Err(err).Msg("failed to load .env file, using environment variables")
	}

	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(cfg.LogLevel.ZeroLog())
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.DefaultContextLogger = &log.Logger

	return nil
}
