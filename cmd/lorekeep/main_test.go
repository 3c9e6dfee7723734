package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestSetupLogger(t *testing.T) {
	newApp := func() *cli.App {
		return &cli.App{
			Name: "lorekeep",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "log-level",
					Value: "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}
	}

	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
			err := newApp().Run([]string{"lorekeep", "--log-level", level})
			require.NoError(t, err, "level %s", level)
		}
	})

	t.Run("rejects unknown levels", func(t *testing.T) {
		err := newApp().Run([]string{"lorekeep", "--log-level", "verbose"})
		assert.ErrorContains(t, err, "invalid log level")
	})
}
