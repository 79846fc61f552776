package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alexcole/firechat/internal/app"
	"github.com/alexcole/firechat/internal/config"
	"github.com/alexcole/firechat/internal/session"
	"go.uber.org/fx"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		cfg = config.Default()
	}

	fx.New(
		app.Module(app.Params{SessionName: sessionName, Config: cfg}),
	).Run()
}
