package main

import (
	"fmt"
	"os"

	"github.com/CMSgov/ipcoding-app/ipcoding/ipcodingcli"
	"github.com/CMSgov/ipcoding-app/log"
)

func main() {
	app := ipcodingcli.GetApp()
	if err := app.Run(os.Args); err != nil {
		log.CLI.Error(err)
		fmt.Fprintf(app.ErrWriter, "%s\n", err)
		os.Exit(1)
	}
}
