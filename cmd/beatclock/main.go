package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"beatclock/internal/broadcast"
	"beatclock/internal/config"
	appLog "beatclock/internal/log"
	"beatclock/internal/model"
	"beatclock/internal/reminder"
	"beatclock/internal/state"
	"beatclock/internal/store"
	"beatclock/internal/web"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 10 * time.Second
)

type flagConfig struct {
	configPath string
	listen     string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := appLog.Setup(conf.LogLevel, conf.LogFormat); err != nil {
		appLog.Error("failed to set up logging", err)
		os.Exit(1)
	}

	appLog.Info("beatclock starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"poll", conf.Poll,
		"store_path", conf.StorePath,
		"redis", conf.Redis != nil && conf.Redis.Addr != "",
		"basic_auth", conf.BasicAuth != nil,
	)

	if err := run(conf); err != nil {
		appLog.Error("beatclock exiting with error", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Info("beatclock exiting")
	appLog.Sync()
}

func run(conf *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(conf.StorePath)
	if err != nil {
		return err
	}
	defer st.Close()

	bus, err := openBus(ctx, conf)
	if err != nil {
		return err
	}
	defer bus.Close()

	notifier := reminder.NotifierFunc(func(r model.Reminder) {
		appLog.Info("reminder active", "id", r.ID, "title", r.Title)
	})
	sched := reminder.NewScheduler(notifier)
	svc := reminder.NewService(st, sched, conf.Location())

	app := state.New(st, svc, bus)
	app.Load(ctx)
	defer app.Close()

	runner := reminder.NewRunner(sched, conf.Poll)
	if err := runner.Start(); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := runner.Stop(stopCtx); err != nil {
			appLog.Warn("reminder runner did not stop cleanly", "err", err)
		}
	}()

	srv := web.NewServer(conf, app)
	if err := srv.ListenAndServe(ctx, shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openBus returns a Redis bus when one is configured, else an in-process one.
func openBus(ctx context.Context, conf *config.Config) (broadcast.Bus, error) {
	if conf.Redis == nil || conf.Redis.Addr == "" {
		return broadcast.NewLocal(), nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	bus, err := broadcast.NewRedis(dialCtx, broadcast.RedisOptions{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
		Channel:  conf.Redis.Channel,
	})
	if err != nil {
		return nil, err
	}
	appLog.Info("change bus connected", "addr", conf.Redis.Addr, "channel", conf.Redis.Channel)
	return bus, nil
}

func parseFlags() flagConfig {
	var cfg flagConfig
	flag.StringVar(&cfg.configPath, "config", "/etc/beatclock/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.Parse()
	return cfg
}
