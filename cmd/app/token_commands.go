package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/apitokens/cmd/app/commands"
	"github.com/allisson/apitokens/internal/app"
	"github.com/allisson/apitokens/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getTokenCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-token",
			Usage: "Issue a new API token",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "description",
					Aliases:  []string{"d"},
					Required: true,
					Usage:    "Human-readable token description",
				},
				&cli.StringFlag{
					Name:    "scopes",
					Aliases: []string{"s"},
					Usage:   "Comma-separated scopes: read, write, admin (default read,write)",
				},
				&cli.IntFlag{
					Name:    "expires-in-days",
					Aliases: []string{"e"},
					Value:   -1,
					Usage:   "Days until expiry, 0 for never (default TOKEN_DEFAULT_EXPIRATION_DAYS)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				tokenUseCase, err := container.TokenUseCase()
				if err != nil {
					return err
				}

				return commands.RunCreateToken(
					ctx,
					tokenUseCase,
					container.Logger(),
					cmd.String("description"),
					cmd.String("scopes"),
					int(cmd.Int("expires-in-days")),
					cmd.String("format"),
					commands.DefaultIO(),
				)
			},
		},
		{
			Name:  "list-tokens",
			Usage: "List API tokens with masked secrets",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				tokenUseCase, err := container.TokenUseCase()
				if err != nil {
					return err
				}

				return commands.RunListTokens(ctx, tokenUseCase, cmd.String("format"), commands.DefaultIO())
			},
		},
		{
			Name:  "revoke-token",
			Usage: "Revoke an API token",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Token ID (UUID)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				tokenUseCase, err := container.TokenUseCase()
				if err != nil {
					return err
				}

				return commands.RunRevokeToken(
					ctx,
					tokenUseCase,
					container.Logger(),
					cmd.String("id"),
					cmd.String("format"),
					commands.DefaultIO(),
				)
			},
		},
		{
			Name:  "rotate-token",
			Usage: "Issue a replacement token and expire the old one after a grace period",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Token ID (UUID)",
				},
				&cli.IntFlag{
					Name:    "grace-days",
					Aliases: []string{"g"},
					Value:   -1,
					Usage:   "Days the old token stays valid (default TOKEN_ROTATION_GRACE_DAYS)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				tokenUseCase, err := container.TokenUseCase()
				if err != nil {
					return err
				}

				graceDays := int(cmd.Int("grace-days"))
				if graceDays < 0 {
					graceDays = cfg.TokenRotationGraceDays
				}

				return commands.RunRotateToken(
					ctx,
					tokenUseCase,
					container.Logger(),
					cmd.String("id"),
					graceDays,
					cmd.String("format"),
					commands.DefaultIO(),
				)
			},
		},
		{
			Name:  "migrate-legacy-token",
			Usage: "Store the legacy static secret as a regular token",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "secret",
					Aliases: []string{"s"},
					Usage:   "Legacy secret (default LEGACY_API_TOKEN)",
				},
				&cli.StringFlag{
					Name:    "description",
					Aliases: []string{"d"},
					Usage:   "Description for the migrated token",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				tokenUseCase, err := container.TokenUseCase()
				if err != nil {
					return err
				}

				return commands.RunMigrateLegacyToken(
					ctx,
					tokenUseCase,
					container.Logger(),
					cmd.String("secret"),
					cmd.String("description"),
					cmd.String("format"),
					commands.DefaultIO(),
				)
			},
		},
	}
}
