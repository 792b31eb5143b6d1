package main

import (
	"context"
	"os"
	"time"

	"github.com/peercoin/warnd/errors"
	"github.com/peercoin/warnd/model"
	"github.com/peercoin/warnd/services/healthmonitor"
	"github.com/peercoin/warnd/services/warnings"
	"github.com/peercoin/warnd/settings"
	"github.com/peercoin/warnd/ulogger"
	"github.com/peercoin/warnd/util/health"
	"github.com/peercoin/warnd/util/servicemanager"
	"github.com/peercoin/warnd/util/tracing"
	"github.com/urfave/cli/v2"
)

const tracerShutdownTimeout = 5 * time.Second

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the warnings service and the host health monitor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "HTTP listen address, overrides warnings_httpListenAddress",
			},
		},
		Action: func(c *cli.Context) error {
			tSettings := settings.NewSettings()
			tSettings.Version = version
			tSettings.Commit = commit

			if listen := c.String("listen"); listen != "" {
				tSettings.Warnings.HTTPListenAddress = listen
			}

			if err := tSettings.Validate(); err != nil {
				return err
			}

			logger := ulogger.New(progname, ulogger.WithLevel(tSettings.LogLevel), ulogger.WithLoggerType(tSettings.LoggerType))

			logger.Infof("VERSION\n-------\n%s (%s)\n", version, commit)

			if err := tracing.InitTracer(progname, tSettings); err != nil {
				return err
			}

			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
				defer cancel()

				if err := tracing.ShutdownTracer(ctx, logger); err != nil {
					logger.Errorf("[Tracing] %v", err)
				}
			}()

			d, err := newDaemon(logger, tSettings)
			if err != nil {
				return err
			}

			sm := servicemanager.NewServiceManager(c.Context, logger.New("sm"))
			sm.HandleSignals()

			d.register(sm)

			err = sm.StartAllAndWait()

			// let in-flight alert commands finish before exiting
			d.notifier.Wait()

			return err
		},
	}
}

// daemon is the wired set of components behind `warnd serve`.
type daemon struct {
	registry *warnings.Registry
	notifier *warnings.AlertNotifier
	server   *warnings.Server
	monitor  *healthmonitor.Monitor
}

func newDaemon(logger ulogger.Logger, tSettings *settings.Settings, monitorOpts ...healthmonitor.Option) (*daemon, error) {
	translator, err := newTranslator(logger, tSettings)
	if err != nil {
		return nil, err
	}

	preRelease := tSettings.IsPreRelease()
	if preRelease {
		logger.Warnf("[Warnings] running a pre-release build %q", tSettings.Version)
	}

	registry := warnings.NewRegistry(
		warnings.WithPreRelease(preRelease),
		warnings.WithTranslator(translator),
		warnings.WithLogger(logger.New("warnings")),
	)

	notifier := warnings.NewAlertNotifier(logger.New("alertnotify"), tSettings.Warnings.AlertNotify).
		WithRateLimit(tSettings.Warnings.AlertNotifyInterval, tSettings.Warnings.AlertNotifyBurst)
	notifier.Subscribe(registry)

	warnings.SubscribeMetrics(registry)

	server := warnings.New(logger.New("warnings_http"), tSettings, registry)
	monitor := healthmonitor.New(logger.New("healthmonitor"), tSettings, registry, monitorOpts...)

	server.AddHealthCheck(health.Check{Name: "HealthMonitor", Check: monitor.Health})

	return &daemon{
		registry: registry,
		notifier: notifier,
		server:   server,
		monitor:  monitor,
	}, nil
}

func (d *daemon) register(sm *servicemanager.ServiceManager) {
	sm.AddService("Warnings", d.server)
	sm.AddService("HealthMonitor", d.monitor)
}

func newTranslator(logger ulogger.Logger, tSettings *settings.Settings) (*model.CatalogTranslator, error) {
	translator := model.NewCatalogTranslator(tSettings.Language)

	path := tSettings.Warnings.TranslationsFile
	if path == "" {
		return translator, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigurationError("cannot open warnings_translationsFile %s", path, err)
	}
	defer f.Close()

	if err = translator.LoadTranslations(f); err != nil {
		return nil, err
	}

	for _, msg := range warnings.TranslatableMessages() {
		if translator.Translate(msg) == msg {
			logger.Debugf("[Warnings] no %s translation for %q", translator.Tag(), msg)
		}
	}

	return translator, nil
}
