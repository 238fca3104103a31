// Command fieldkitd serves scenegraph distance fields to remote clients
// over a websocket endpoint. With -script it instead evaluates a console
// script against a local scenegraph and exits, which is handy for
// poking at field behavior without a client.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/nlocke/fieldkit/pkg/console"
	"github.com/nlocke/fieldkit/pkg/server"
)

func main() {
	listen := flag.String("listen", "localhost:8347", "websocket listen address")
	script := flag.String("script", "", "evaluate a console script and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *script != "" {
		if err := runScript(*script); err != nil {
			log.Error("script failed", "path", *script, "err", err)
			os.Exit(1)
		}
		return
	}

	srv := server.New(log)
	if err := srv.ListenAndServe(*listen); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func runScript(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	engine, err := console.NewEngine()
	if err != nil {
		return err
	}
	out, err := engine.Evaluate(string(source))
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Println(out)
	}
	return nil
}
