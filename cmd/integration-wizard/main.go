package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-integration/cli"
	"github.com/goliatone/go-integration/config"
)

type rootCLI struct {
	Config   string   `help:"Config file (yaml, json or toml)." type:"path" env:"INTEGRATION_CONFIG"`
	EnvFile  []string `help:"Dotenv files loaded before the config." default:".env"`
	LogLevel string   `help:"Overrides log.level."`
}

func main() {
	registry, err := cli.NewCommandRegistry()
	if err != nil {
		die(err)
	}
	commands, err := registry.KongOptions()
	if err != nil {
		die(err)
	}

	var root rootCLI
	parser := kong.Must(&root, append([]kong.Option{
		kong.Name("integration-wizard"),
		kong.Description("Configure, verify and watch data integrations."),
		kong.UsageOnError(),
	}, commands...)...)

	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := config.LoadEnvFiles(root.EnvFile...); err != nil {
		die(err)
	}
	cfg, err := config.Load(root.Config)
	if err != nil {
		die(err)
	}
	if root.LogLevel != "" {
		cfg.Log.Level = root.LogLevel
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(cfg, cli.WithContext(ctx))
	if err != nil {
		die(err)
	}
	if err := kctx.Run(app); err != nil {
		stop()
		die(err)
	}
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "integration-wizard: %v\n", err)
	os.Exit(1)
}
