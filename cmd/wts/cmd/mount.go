package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	wtsfuse "github.com/GnosisFoundation/git-ts/internal/fuse"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMountCmd(a *app) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "Mount a read-only view of the repository",
		Long: `Mount the repository with FUSE. The view contains HEAD, heads/, tags/ and commits/;
each commit is a directory with its message, timestamp, parent, metadata.json, cid and
the raw bytes of its tensors under tensors/.

The command blocks until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepo()
			if err != nil {
				return err
			}
			mountpoint := args[0]
			if err := os.MkdirAll(mountpoint, 0755); err != nil {
				return fmt.Errorf("create mountpoint: %w", err)
			}

			server, err := wtsfuse.MountFS(mountpoint, repo, debug)
			if err != nil {
				return fmt.Errorf("mount: %w", err)
			}
			a.log.Info("mounted", zap.String("mountpoint", mountpoint), zap.String("repository", repo.Root()))

			// Unmount on signal
			done := make(chan os.Signal, 1)
			signal.Notify(done, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(done)
			go func() {
				<-done
				a.log.Info("unmounting", zap.String("mountpoint", mountpoint))
				if err := server.Unmount(); err != nil {
					a.log.Error("unmount failed", zap.Error(err))
				}
			}()

			fmt.Fprintf(out(cmd), "mounted at %s (pid %d)\n", mountpoint, os.Getpid())
			server.Wait()
			return nil
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "Log FUSE requests")
	return cmd
}
