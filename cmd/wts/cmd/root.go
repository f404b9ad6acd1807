// Package cmd implements the wts command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GnosisFoundation/git-ts/internal/dag"
	"github.com/GnosisFoundation/git-ts/internal/dlogger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	configEnv  = "WTS_CONFIG"
	envPrefix  = "WTS"
	configName = "wts"

	keyLogLevel = "loglevel"
	keyBranch   = "branch"
	keyDir      = "dir"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	fs  afero.Fs
	v   *viper.Viper
	log *zap.Logger
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wts:", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree operating on the local filesystem.
func NewRootCmd() *cobra.Command {
	return newRootCmd(afero.NewOsFs())
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs, v: viper.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "wts",
		Short: "Version control for tensor snapshots",
		Long: `wts records snapshots of named tensor collections as content-addressed commits.

Snapshots are stored as safetensors containers keyed by the SHA-512 digest of their
content. Commits form a parent-linked history, and branches and tags name commits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringP(keyDir, "C", ".", "Run as if wts was started in this directory")
	flags.String(keyLogLevel, dlogger.LogLevelWarn, "Log level: "+strings.Join(dlogger.Levels, ", "))
	a.bindFlags(flags, keyDir, keyLogLevel)

	root.AddCommand(
		newInitCmd(a),
		newCommitCmd(a),
		newRefCmd(a, dag.Heads),
		newRefCmd(a, dag.Tags),
		newShowCmd(a),
		newCatFileCmd(a),
		newLogCmd(a),
		newHeadCmd(a),
		newExportCmd(a),
		newMountCmd(a),
	)
	return root
}

// initConfig reads wts.yaml and WTS_* variables, then builds the logger.
func (a *app) initConfig() error {
	a.v.SetDefault(keyBranch, dag.DefaultBranch)
	a.v.SetEnvPrefix(envPrefix)
	a.v.AutomaticEnv()
	a.v.SetFs(a.fs)

	if path := os.Getenv(configEnv); path != "" {
		a.v.SetConfigFile(path)
	} else {
		a.v.SetConfigName(configName)
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME/.wts")
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	logger, err := dlogger.GetLogger(a.v.GetString(keyLogLevel))
	if err != nil {
		return err
	}
	a.log = logger
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Debug("using config file", zap.String("path", used))
	}
	return nil
}

// bindFlags makes the named flags the command line source of the viper keys
// of the same name.
func (a *app) bindFlags(flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := a.v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func (a *app) dir() string {
	return a.v.GetString(keyDir)
}

// openRepo finds the repository enclosing the working directory.
func (a *app) openRepo() (*dag.Repository, error) {
	repo, err := dag.Discover(a.fs, a.dir(), dag.WithLogger(a.log))
	if errors.Is(err, dag.ErrEmptyRepository) {
		return nil, fmt.Errorf("%s: not a wts repository (or any parent up to /); run 'wts init'", a.dir())
	}
	return repo, err
}

// resolveRev resolves a revision, defaulting to HEAD.
func resolveRev(repo *dag.Repository, args []string) (dag.Digest, error) {
	rev := "HEAD"
	if len(args) > 0 {
		rev = args[0]
	}
	d, err := repo.Resolve(rev)
	if err != nil {
		return dag.Digest{}, fmt.Errorf("resolve %s: %w", rev, err)
	}
	return d, nil
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
