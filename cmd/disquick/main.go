package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nais/disquick/pkg/conftools"
	"github.com/nais/disquick/pkg/disquick"
	"github.com/nais/disquick/pkg/version"
)

func main() {
	err := run()
	if err == nil {
		return
	}
	code := disquick.ErrorExitCode(err)
	if code == disquick.ExitInvocationFailure {
		flag.Usage()
	}
	log.Errorf("fatal: %s", err)
	os.Exit(int(code))
}

func run() error {
	// Configuration and context
	v := viper.GetViper()
	disquick.InitConfig(v, flag.CommandLine)
	cfg, err := disquick.Configuration(v, flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}

	// Logging
	err = disquick.SetupLogging(*cfg)
	if err != nil {
		return disquick.ErrorWrap(disquick.ExitInvocationFailure, err)
	}

	// Welcome
	log.Infof("disquick %s", version.Version())
	ts, err := version.BuildTime()
	if err == nil {
		log.Infof("This version was built %s", ts.Local())
	}

	for _, line := range conftools.Format(v, nil) {
		log.Debug(line)
	}

	err = cfg.Validate()
	if err != nil {
		return err
	}

	return disquick.Run(context.Background(), cfg)
}
