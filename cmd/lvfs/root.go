package main

import (
	"github.com/spf13/cobra"

	"github.com/lowes/lvfs/pkg/config"
	"github.com/lowes/lvfs/pkg/vfs"
)

// app carries the constructed facade into the subcommands.
type app struct {
	fs *vfs.FS
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)
	a := &app{}

	root := &cobra.Command{
		Use:           "lvfs",
		Short:         "Uniform file operations across local disk, HDFS, S3, GCS and Artifactory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			a.fs, err = config.NewFS(cfg)
			return err
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.GetDefaultConfigPath()+")")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(
		newLsCmd(a),
		newCatCmd(a),
		newWriteCmd(a),
		newCpCmd(a),
		newMvCmd(a),
		newRmCmd(a),
		newMkdirCmd(a),
		newStatCmd(a),
		newDuCmd(a),
		newWalkCmd(a),
		newChmodCmd(a),
	)
	return root
}
