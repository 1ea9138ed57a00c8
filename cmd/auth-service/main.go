package main

import (
	"context"
	"fmt"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"

	"github.com/goliatone/go-auth-service/config"
)

func main() {
	lgr := newLogger()

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybePrettyJSON(cfg.Raw().Masked()))
	fmt.Println("============")

	app := &App{
		cfg:    cfg.Raw(),
		logger: lgr,
	}

	steps := []func(context.Context, *App) error{
		WithPersistence,
		WithRedis,
		WithServices,
		WithHTTPServer,
	}
	for _, step := range steps {
		if err := step(ctx, app); err != nil {
			_ = app.Close()
			panic(err)
		}
	}

	logger := app.GetLogger("app")
	addr := app.Config().GetServer().GetAddress()

	go func() {
		logger.Info("listening", "address", addr)
		if err := app.srv.Listen(addr); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		ctx,
		app.Config().GetServer().GetShutdownTimeout(),
		map[string]gfshutdown.Operation{
			"auth-service": func(ctx context.Context) error {
				logger.Info("graceful shutdown initiated")
				if err := app.srv.ShutdownWithContext(ctx); err != nil {
					logger.Error("http shutdown", "error", err)
				}
				return app.Close()
			},
		},
	)

	os.Exit(<-wait)
}

func newLogger() *glog.BaseLogger {
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("auth-service"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}
