package app

import (
	"fmt"

	"github.com/spf13/viper"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/shuttlebridge/cmd/shuttlebridge/app/options"
	"github.com/autopeer-io/shuttlebridge/pkg/app"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
)

const (
	commandName = "shuttlebridge"
	commandDesc = `shuttlebridge reports the position of every rostered shuttle to the
SFMTA commuter shuttle program.

Every cycle it reads the vehicle roster, fetches fleet locations from Samsara,
matches each parked vehicle to the nearest allowed stop and pushes one
telemetry record per vehicle. The loop starts on the first call to
/push_sfmta, or at startup with --bridge.autostart.

Every flag can also be set in the config file or through the environment as
SHUTTLEBRIDGE_<FLAG>, e.g. SHUTTLEBRIDGE_BRIDGE_INTERVAL=5s.`
)

func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		commandName,
		"Report shuttle locations to the SFMTA",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithEnvAliases(options.LegacyEnv),
		app.WithConfigReload(reloadLogLevel),
		app.WithRunFunc(run(opts)),
		app.WithSubcommands(
			newRunCommand(opts),
			newStopsCommand(opts),
			newRosterCommand(opts),
		),
	)
	return application
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()
		log.Init(opts.Log)
		defer log.Sync()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create shuttlebridge server: %w", err)
		}

		return server.Run(ctx)
	}
}

// reloadLogLevel applies a log level edited in the config file.
func reloadLogLevel() {
	level := viper.GetString("log.level")
	if err := log.SetLevel(level); err != nil {
		log.Warn("Ignoring log level from config", "level", level, "error", err)
		return
	}
	log.Info("Log level changed", "level", level)
}
