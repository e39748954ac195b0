package main

import (
	"github.com/benleb/eventsensor-go/cmd"
	"github.com/benleb/eventsensor-go/internal/models"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	models.AppVersion = version
	models.CommitDate = buildDate
	models.Commit = commit

	cmd.Execute()
}
