package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func contextWithLogLevel(level string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("log-level", level, "")
	return cli.NewContext(nil, set, nil)
}

func TestSetupLogger(t *testing.T) {
	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "INFO", "Debug"} {
			assert.NoError(t, setupLogger(contextWithLogLevel(level)), level)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := setupLogger(contextWithLogLevel("verbose"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "verbose")
	})
}

func TestCreateIndexCommandFlags(t *testing.T) {
	app := &cli.App{
		Name: "vectorium",
		Commands: []*cli.Command{
			{
				Name: "create-index",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "provider", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.IntFlag{Name: "dimension", Required: true},
					&cli.StringFlag{Name: "metric", Value: "cosine"},
				},
				Action: func(c *cli.Context) error { return nil },
			},
		},
	}

	t.Run("provider is required", func(t *testing.T) {
		err := app.Run([]string{"vectorium", "create-index", "--name", "docs", "--dimension", "384"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider")
	})

	t.Run("metric defaults to cosine", func(t *testing.T) {
		cmd := app.Commands[0]
		var metricFlag *cli.StringFlag
		for _, f := range cmd.Flags {
			if sf, ok := f.(*cli.StringFlag); ok && sf.Name == "metric" {
				metricFlag = sf
				break
			}
		}
		require.NotNil(t, metricFlag)
		assert.Equal(t, "cosine", metricFlag.Value)
	})
}
