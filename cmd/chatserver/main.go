package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/chatroom/internal/chat"
	"github.com/Tyrowin/chatroom/internal/history"
	"github.com/Tyrowin/chatroom/internal/server"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "chatserver"
	app.Usage = "Moderated real-time WebSocket chat server"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "addr,a",
			Usage: "Listen address (host:port), overrides CHAT_ADDR",
		},
		cli.StringFlag{
			Name:   "config,c",
			Usage:  "Path to a TOML configuration file",
			EnvVar: "CHAT_CONFIG",
		},
		cli.BoolFlag{
			Name:  "debug,d",
			Usage: "Enable debug output",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := server.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Addr = addr
	}
	if c.Bool("debug") {
		cfg.LogLevel = "debug"
	}

	logger := server.NewLogger(cfg)
	logger.Info("Starting chat server...")

	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorf("Close history store: %v", err)
		}
	}()

	hub := chat.NewHub(chat.Options{
		MessageInterval: cfg.MessageInterval,
		History:         store,
		Logger:          logger,
	})
	srv := server.New(cfg, hub, logger)
	httpServer := server.CreateServer(cfg.Addr, server.SetupRoutes(srv))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, logger)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-sigCh:
		logger.Infof("Received %s, shutting down", sig)
	}

	return server.ShutdownServer(httpServer, hub, cfg.ShutdownTimeout, logger)
}
