package main

import (
	"context"
	"log"
	"os"

	"traced-user-service/cmd/api/app"
	"traced-user-service/cmd/api/server"
)

func main() {
	if err := run(); err != nil {
		log.Printf("application exited with error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	a, err := app.New(context.Background())
	if err != nil {
		return err
	}

	ctx, stop := server.WithSignal(context.Background(), a.Logger)
	defer stop()

	return a.Run(ctx)
}
