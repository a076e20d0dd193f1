package main

import (
	"fmt"
	"os"
	"strings"

	"fjacquet/fin-insights/cmd/anomalies"
	"fjacquet/fin-insights/cmd/ask"
	"fjacquet/fin-insights/cmd/budget"
	"fjacquet/fin-insights/cmd/categorize"
	"fjacquet/fin-insights/cmd/debt"
	"fjacquet/fin-insights/cmd/feedback"
	"fjacquet/fin-insights/cmd/forecast"
	"fjacquet/fin-insights/cmd/goal"
	"fjacquet/fin-insights/cmd/importcsv"
	"fjacquet/fin-insights/cmd/nudges"
	"fjacquet/fin-insights/cmd/root"
	"fjacquet/fin-insights/cmd/run"
	"fjacquet/fin-insights/cmd/serve"
	"fjacquet/fin-insights/cmd/train"
	"fjacquet/fin-insights/internal/config"
	"fjacquet/fin-insights/internal/logging"

	"github.com/sirupsen/logrus"
)

var version = "dev"

func init() {
	// .env first, so FININSIGHTS_LOG_LEVEL applies before anything logs.
	config.LoadEnv()
	logging.SetAllLogLevels(logLevelFromEnv())

	root.Init()
	serve.Version = version

	root.Cmd.AddCommand(importcsv.Cmd)
	root.Cmd.AddCommand(categorize.Cmd)
	root.Cmd.AddCommand(feedback.Cmd)
	root.Cmd.AddCommand(train.Cmd)
	root.Cmd.AddCommand(run.Cmd)
	root.Cmd.AddCommand(budget.Cmd)
	root.Cmd.AddCommand(anomalies.Cmd)
	root.Cmd.AddCommand(forecast.Cmd)
	root.Cmd.AddCommand(goal.Cmd)
	root.Cmd.AddCommand(nudges.Cmd)
	root.Cmd.AddCommand(debt.Cmd)
	root.Cmd.AddCommand(ask.Cmd)
	root.Cmd.AddCommand(serve.Cmd)
}

func logLevelFromEnv() logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(config.GetEnv("FININSIGHTS_LOG_LEVEL", "info")))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
