package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	drmworker "github.com/ikbir-singh-unisys/DRM-Worker"
	"github.com/ikbir-singh-unisys/DRM-Worker/internal/config"
)

func init() {
	command := &cobra.Command{
		Use:   "serve",
		Short: "serve the job api and process jobs",
		Long:  `serve the job api and process accepted jobs on a fixed worker pool`,
		Run:   drmworker.Service.ServeCommand,
	}

	configs := []config.Config{
		drmworker.Service.ServerConfig,
	}

	cobra.OnInitialize(func() {
		for _, cfg := range configs {
			cfg.Set()
		}
	})

	for _, cfg := range configs {
		if err := cfg.Init(command); err != nil {
			log.Panic().Err(err).Msg("unable to run serve command")
		}
	}

	rootCmd.AddCommand(command)
}
