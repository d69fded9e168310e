package cli

import (
	"fmt"

	"github.com/garethgeorge/hybridspace/internal/config"
	"github.com/garethgeorge/hybridspace/internal/logger"
	"github.com/garethgeorge/hybridspace/internal/spacemgr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is overridden at build time with -ldflags.
var Version = "0.1.0-dev"

// app carries state shared by the command tree.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.AppConfig
}

// NewRootCommand builds the hybridspace command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:   "hybridspace",
		Short: "Block level free space manager simulator",
		Long: `hybridspace simulates how a filesystem tracks free blocks on a fixed size
device. Free space is kept both as a per-block bitmap and as an ordered chain
of free extents that is split on allocation and coalesced on deallocation.

Commands:
  shell       interactive allocate/deallocate session
  run         execute a command script
  simulate    randomized workload with invariant checking`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is hybridspace.yaml in standard locations)")
	flags.Bool("debug", false, "enable debug logging")
	flags.String("log-format", "human", "log format: json or human")
	flags.Int("disk-size", 50, "device capacity in blocks")
	flags.Int("grid-cols", 10, "blocks per row in the block map")
	flags.Bool("strict", false, "reject deallocation of blocks that are already free")

	a.v.BindPFlag("debug", flags.Lookup("debug"))
	a.v.BindPFlag("log_format", flags.Lookup("log-format"))
	a.v.BindPFlag("disk_size", flags.Lookup("disk-size"))
	a.v.BindPFlag("grid_cols", flags.Lookup("grid-cols"))
	a.v.BindPFlag("strict_dealloc", flags.Lookup("strict"))

	rootCmd.AddCommand(
		newShellCmd(a),
		newRunCmd(a),
		newSimulateCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.InitLogger(logger.Config{
		Debug:     cfg.Debug,
		LogFormat: cfg.LogFormat,
		LogFile:   cfg.LogFile,
	}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	logger.LogDebug("configuration loaded", map[string]interface{}{
		"config_file": a.v.ConfigFileUsed(),
		"disk_size":   cfg.DiskSize,
		"strict":      cfg.StrictDealloc,
	})
	return nil
}

func (a *app) newManager() (*spacemgr.Manager, error) {
	var opts []spacemgr.Option
	if a.cfg.StrictDealloc {
		opts = append(opts, spacemgr.WithStrictDeallocation())
	}
	m, err := spacemgr.New(a.cfg.DiskSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("create space manager: %w", err)
	}
	return m, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hybridspace %s\n", Version)
		},
	}
}
