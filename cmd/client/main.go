package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/saywhat/internal/client/agent"
	"github.com/dmitrijs2005/saywhat/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := agent.NewApp(ctx, cfg, os.Stdout)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
