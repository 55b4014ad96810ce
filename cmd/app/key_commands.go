package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/apitokens/cmd/app/commands"
	"github.com/allisson/apitokens/internal/app"
	"github.com/allisson/apitokens/internal/config"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-key",
			Usage: "Create the key file that encrypts stored token secrets",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "path",
					Aliases: []string{"p"},
					Usage:   "Key file path (defaults to TOKEN_KEY_PATH)",
				},
				&cli.BoolFlag{
					Name:    "inline",
					Aliases: []string{"i"},
					Value:   false,
					Usage:   "Print a TOKEN_ENCRYPTION_KEY value instead of writing a file",
				},
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				keyPath := cmd.String("path")
				if keyPath == "" {
					keyPath = cfg.TokenKeyPath
				}

				return commands.RunCreateKey(
					ctx,
					container.KeyMaterialManager(),
					container.Logger(),
					keyPath,
					cmd.Bool("inline"),
					cmd.String("format"),
					commands.DefaultIO(),
				)
			},
		},
	}
}
