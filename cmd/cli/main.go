package main

import (
	"context"
	"log"
	"os"

	"github.com/navlock/navlock/internal/buildinfo"
	"github.com/navlock/navlock/internal/cli"
	"github.com/navlock/navlock/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
