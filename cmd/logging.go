package cmd

import (
	"github.com/achilleasa/gpurt/log"
	"github.com/urfave/cli"
)

var logger = log.New("gpurt")

// setupLogging applies the global log level flags.
func setupLogging(ctx *cli.Context) error {
	level, err := logLevel(ctx.GlobalString("log-level"), ctx.GlobalBool("v"), ctx.GlobalBool("vv"))
	if err != nil {
		return err
	}
	log.SetLevel(level)
	logger.Debugf("log level set to %s", level)
	return nil
}

// logLevel resolves the level named by --log-level. The -v and -vv
// shortcuts only ever make logging more verbose.
func logLevel(name string, verbose, veryVerbose bool) (log.Level, error) {
	level := log.Notice
	if name != "" {
		var err error
		if level, err = log.ParseLevel(name); err != nil {
			return level, err
		}
	}

	switch {
	case veryVerbose:
		level = log.Debug
	case verbose && level > log.Info:
		level = log.Info
	}
	return level, nil
}
