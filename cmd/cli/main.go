// cmd/cli/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/keshon/appcmd/internal/cli"
	"github.com/keshon/appcmd/internal/config"
	"github.com/keshon/appcmd/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := cli.NewApp(cfg, log)
	err = app.CreateRootCommand().ExecuteContext(context.Background())
	closer.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
