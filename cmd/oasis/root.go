package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"oasis/internal/config"
)

type commandContext struct {
	configFlag *string
	cfg        *config.Config
	cfgPath    string
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, resolvedPath, _, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg
	c.cfgPath = resolvedPath
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := &commandContext{configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "oasis",
		Short:         "Water chemistry analysis service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))

	return rootCmd
}
