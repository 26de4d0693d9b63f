package main

import (
	"context"
	"fmt"
	"os"

	"temple-vouchers/internal/adapters/cli"
	"temple-vouchers/internal/app"
	"temple-vouchers/internal/backend"
	"temple-vouchers/internal/config"
	"temple-vouchers/internal/logging"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/sirupsen/logrus"
)

func main() {
	root := cli.NewRootCommand(newService)
	cc.Init(&cc.Config{
		RootCmd:  root,
		Headings: cc.HiCyan + cc.Bold + cc.Underline,
		Commands: cc.HiYellow + cc.Bold,
		Example:  cc.Italic,
		ExecName: cc.Bold,
		Flags:    cc.Bold,
	})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newService() (app.ApplicationService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Init("temple-vouchers-cli", cfg.LogLevel, cfg.AppEnv)
	// stdout carries command output
	logrus.SetOutput(os.Stderr)

	client := backend.NewClient(cfg.TempleAPIURL, backend.Options{
		Token:    cfg.TempleAPIToken,
		Timeout:  cfg.BackendTimeout,
		CacheTTL: cfg.ReferenceCacheTTL,
		RPS:      cfg.BackendRPS,
	})
	return app.NewAppService(client, cfg.SessionTTL), nil
}
