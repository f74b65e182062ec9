package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"csgo-seller/internal/config"
	"csgo-seller/internal/services/seller"
	"csgo-seller/internal/services/steamauth"
)

var log = logging.Logger("main")

func main() {
	app := &cli.App{
		Name:  "csgo-seller",
		Usage: "sell and deliver CS:GO items on market.csgo.com through Steam trade offers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file loaded before reading the configuration",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
		},
		Before: func(cctx *cli.Context) error {
			// Load environment variables
			if err := godotenv.Load(cctx.String("env-file")); err != nil {
				log.Infow("no env file loaded", "path", cctx.String("env-file"))
			}
			return logging.SetLogLevel("*", cctx.String("log-level"))
		},
		Action: runSeller,
		Commands: []*cli.Command{
			{
				Name:  "code",
				Usage: "print the current Steam Guard code",
				Action: func(cctx *cli.Context) error {
					secret := config.Load().SharedSecret
					if secret == "" {
						return xerrors.New("STEAM_SHARED_SECRET is not set")
					}
					code, err := steamauth.GenerateAuthCode(secret, time.Now())
					if err != nil {
						return err
					}
					fmt.Println(code)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Errorw("exiting", "err", err)
		os.Exit(1)
	}
}

func runSeller(cctx *cli.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return seller.New(cfg).Run(ctx)
}
