package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/preflightvcs/preflight/pkg/classify"
	"github.com/preflightvcs/preflight/pkg/gitrepo"
	"github.com/preflightvcs/preflight/pkg/remotesync"
)

func newCheckCmd() *cobra.Command {
	var (
		opName     string
		remoteName string
		timeout    time.Duration
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Check whether a commit, push, or pull would succeed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := parseOp(opName)
			if err != nil {
				return err
			}

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			repo, err := gitrepo.Open(dir)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(dir, configPath)
			if err != nil {
				return err
			}

			cacheDir := cfg.Cache
			if cacheDir == "" {
				home, err := os.UserCacheDir()
				if err == nil {
					cacheDir = filepath.Join(home, "preflight", "refs")
				} else {
					cacheDir = filepath.Join(os.TempDir(), "preflight-refs")
				}
			}

			sync := remotesync.New(repo, remotesync.NewRefCache(cacheDir))
			if timeout > 0 {
				sync.Timeout = timeout
			} else if cfg.Timeout != "" {
				d, err := time.ParseDuration(cfg.Timeout)
				if err != nil {
					return fmt.Errorf("config timeout: %w", err)
				}
				sync.Timeout = d
			}

			checker := classify.NewChecker(repo, sync, cfg.credentials())
			if remoteName != "" {
				checker.DefaultRemote = remoteName
			} else if cfg.Remote != "" {
				checker.DefaultRemote = cfg.Remote
			}
			if cfg.Cap > 0 {
				checker.Cap = cfg.Cap
			}

			st := checker.Check(cmd.Context(), op)
			render(cmd.OutOrStdout(), st)

			if st.HasActualConflicts {
				os.Exit(2)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opName, "op", "push", "operation to check: commit, push, or pull")
	cmd.Flags().StringVar(&remoteName, "remote", "", "remote to check against (default: upstream, then origin)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "remote access timeout (default 30s)")
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	return cmd
}

func parseOp(name string) (classify.Op, error) {
	switch name {
	case "commit":
		return classify.OpCommit, nil
	case "push":
		return classify.OpPush, nil
	case "pull":
		return classify.OpPull, nil
	default:
		return 0, fmt.Errorf("unknown operation %q (want commit, push, or pull)", name)
	}
}
