package bridge

import (
	"context"
	"fmt"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/shuttlebridge/internal/bridge/alert"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/dispatch"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/notifier"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/report"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/roster"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/scheduler"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/server"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/server/http"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/sfmta"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/stops"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/storage"
	"github.com/autopeer-io/shuttlebridge/internal/bridge/telematics"
	"github.com/autopeer-io/shuttlebridge/pkg/log"
	"github.com/autopeer-io/shuttlebridge/pkg/options"
)

// alertQueueSize bounds fault alerts waiting for the mail relay.
const alertQueueSize = 8

// Config holds the completed options of every component.
type Config struct {
	HttpOptions    *options.HttpOptions
	SamsaraOptions *options.SamsaraOptions
	SfmtaOptions   *options.SfmtaOptions
	RosterOptions  *options.RosterOptions
	AlertOptions   *options.AlertOptions
	BridgeOptions  *options.BridgeOptions
	S3Options      *options.S3Options
	MqttOptions    *options.MqttOptions
}

// NewServer wires caches, clients, the loop and the HTTP server. ctx bounds
// the lifetime of background connections (the MQTT mirror).
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	loc, err := cfg.BridgeOptions.Location()
	if err != nil {
		return nil, err
	}
	clk := clock.RealClock{}

	regulator := sfmta.NewClient(cfg.SfmtaOptions.URL(), cfg.SfmtaOptions.Username, cfg.SfmtaOptions.Password, cfg.SfmtaOptions.Timeout)

	samsara, err := telematics.NewSamsaraClient(cfg.SamsaraOptions.Endpoint, cfg.SamsaraOptions.APIToken,
		cfg.SamsaraOptions.GroupID, cfg.SamsaraOptions.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to init samsara client: %w", err)
	}

	archive, err := cfg.newArchive(ctx)
	if err != nil {
		return nil, err
	}

	stopCache := stops.NewCache(regulator, archive, clk, stops.Options{
		Period:          cfg.BridgeOptions.StopRefresh,
		RetryAfter:      cfg.BridgeOptions.StopRetry,
		RequireNonEmpty: cfg.BridgeOptions.RequireNonEmpty,
	})
	rosterCache := roster.NewCache(
		roster.NewSheetClient(cfg.RosterOptions.URLTemplate, cfg.RosterOptions.SheetKey, cfg.RosterOptions.Timeout),
		cfg.BridgeOptions.RequireNonEmpty,
	)
	locations := telematics.NewStore(samsara, cfg.BridgeOptions.EvictStale)

	builder := report.NewBuilder(report.Config{
		TechProviderID:   cfg.SfmtaOptions.TechProviderID,
		ShuttleCompanyID: cfg.SfmtaOptions.ShuttleCompanyID,
		Location:         loc,
		Threshold:        cfg.BridgeOptions.StopThreshold,
	}, rosterCache, locations, stopCache)

	var (
		mirror dispatch.Mirror
		closer func(context.Context)
	)
	if cfg.MqttOptions.Enabled() {
		n, err := notifier.NewMQTTNotifierFromOptions(ctx, cfg.MqttOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to init report mirror: %w", err)
		}
		mirror, closer = n, n.Close
	}

	dispatcher := dispatch.New(builder, regulator, mirror, dispatch.Options{
		MaxRetries:      cfg.BridgeOptions.MaxRetries,
		InitialInterval: cfg.BridgeOptions.RetryInterval,
		MaxConcurrency:  cfg.BridgeOptions.MaxConcurrency,
	})

	loop := scheduler.New(rosterCache, stopCache, locations, dispatcher, cfg.newAlerts(ctx), clk, scheduler.Options{
		Interval:   cfg.BridgeOptions.Interval,
		MaxBackoff: cfg.BridgeOptions.MaxBackoff,
	})

	servers := []server.Server{http.NewServer(cfg.HttpOptions, loop, stopCache)}
	if cfg.BridgeOptions.Autostart {
		servers = append(servers, server.ServerFunc(loop.Run))
	}

	return &Server{
		serverManager: server.NewManager(servers...),
		stops:         stopCache,
		closeMirror:   closer,
	}, nil
}

func (cfg *Config) newArchive(ctx context.Context) (stops.Archive, error) {
	if !cfg.S3Options.Enabled() {
		log.Info("Stop archive disabled")
		return nil, nil
	}
	store, err := storage.NewMinIO(cfg.S3Options)
	if err != nil {
		return nil, fmt.Errorf("failed to init stop archive: %w", err)
	}
	if err := store.CheckBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (cfg *Config) newAlerts(ctx context.Context) alert.Notifier {
	o := cfg.AlertOptions
	if !o.Enabled() {
		log.Warn("Fault alerts disabled, set --alert.from and --alert.to to enable them")
		return alert.Nop{}
	}
	smtp := alert.NewSMTPNotifier(alert.SMTPConfig{
		Host:       o.SMTPHost,
		Port:       o.SMTPPort,
		From:       o.From,
		Password:   o.Password,
		To:         o.To,
		RequireTLS: o.RequireTLS,
	})
	return alert.NewRateLimited(alert.NewAsync(ctx, smtp, alertQueueSize), o.Cooldown, nil)
}
