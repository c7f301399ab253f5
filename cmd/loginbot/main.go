package main

import (
	"context"
	"fmt"
	"log"

	appconfig "github.com/m3rciful/loginbot/app/config"
	"github.com/m3rciful/loginbot/app/wire"
	"github.com/m3rciful/loginbot/core/bootstrap"
	corecmd "github.com/m3rciful/loginbot/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := appconfig.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: func(ctx context.Context, c corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := c.(*appconfig.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", c)
			}
			infra, err := bootstrap.Run(ctx, bootstrap.Options{
				Config:   &cfg.Config,
				Database: cfg.Database,
				RedisURL: cfg.Redis.URL,
			})
			if err != nil {
				return nil, err
			}
			app, err := wire.Build(ctx, cfg, infra)
			if err != nil {
				_ = infra.Close()
				return nil, err
			}
			return app, nil
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
