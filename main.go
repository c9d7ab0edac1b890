package main

import (
	"os"

	"github.com/jkroepke/fake-fortinet-server/cmd/daemon"
)

func main() {
	os.Exit(daemon.Execute(os.Args, os.Stdout, make(chan os.Signal, 1)))
}
