package main

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/shyim/backup-pruner/internal/discovery"
	"github.com/shyim/backup-pruner/internal/grouping"
	"github.com/shyim/backup-pruner/internal/notification"
	"github.com/shyim/backup-pruner/internal/pruner"
	"github.com/shyim/backup-pruner/internal/retention"
	"github.com/shyim/backup-pruner/internal/storage"
	"github.com/spf13/cobra"
)

// localPool is the name of the pool created for a plain directory argument
const localPool = "local"

// pruneSetup bundles everything a prune run needs
type pruneSetup struct {
	pruner   *pruner.Pruner
	options  pruner.Options
	pipeline retention.Pipeline
	pool     string
}

// addPruneFlags registers the flags shared by the prune and daemon commands
func addPruneFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVarP(&cfg.Extensions, "extension", "e", nil, "File extension to process, repeat for more than one (e.g. -e tar -e zip)")
	fs.BoolVarP(&cfg.Recursive, "recursive", "r", false, "Process subdirectories of the backup path")
	fs.BoolVarP(&cfg.DryRun, "dry-run", "d", false, "Compute and report decisions without deleting anything")
	fs.StringArrayVar(&cfg.Policy, "policy", cfg.Policy, "Retention strategy, repeat in order of precedence (e.g. --policy last-n=7 --policy delete-unset)")
	fs.StringVar(&cfg.Pool, "pool", "", "Storage pool holding the backups (the path argument becomes a prefix inside it)")
	fs.StringVar(&cfg.TimeSource, "time-source", cfg.TimeSource, "Backup timestamp source (mtime, name)")
	fs.StringVar(&cfg.Output, "output", cfg.Output, "Report format (text, json)")
	fs.BoolVar(&cfg.FailOnError, "fail-on-error", false, "Exit with an error when a backup could not be deleted")
}

// newPruneSetup validates the configuration and wires storage, notifications and the pipeline
func newPruneSetup() (*pruneSetup, error) {
	if err := cfg.ParseStoragePools(); err != nil {
		return nil, err
	}

	if err := cfg.ParseNotifyConfigs(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pipeline, err := retention.ParsePipeline(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	poolManager, err := storage.NewPoolManager(cfg.StoragePools, cfg.DefaultStorage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage pools: %w", err)
	}

	store, poolName, prefix, groupRoot, err := resolveStore(poolManager)
	if err != nil {
		return nil, err
	}

	notifyMgr, err := notification.NewManagerFromConfig(cfg.NotifyConfigs)
	if err != nil {
		return nil, err
	}

	slog.Debug("prune configured",
		"pool", poolName,
		"prefix", prefix,
		"extensions", cfg.Extensions,
		"recursive", cfg.Recursive,
		"policy", pipeline.String(),
		"notifiers", notifyMgr.NotifierCount(),
	)

	return &pruneSetup{
		pruner: pruner.New(store, grouping.FilenameGrouper{Root: groupRoot}, pipeline,
			pruner.WithNotifier(notifyMgr)),
		options: pruner.Options{
			Discovery: discovery.Options{
				Prefix:     prefix,
				Extensions: cfg.Extensions,
				Recursive:  cfg.Recursive,
			},
			TimeSource: cfg.TimeSource,
			DryRun:     cfg.DryRun,
		},
		pipeline: pipeline,
		pool:     poolName,
	}, nil
}

// resolveStore picks the storage to prune. Without a configured pool the
// backup path is a local directory; with one it is a prefix inside the pool.
func resolveStore(pm *storage.PoolManager) (store storage.Storage, poolName, prefix, groupRoot string, err error) {
	if cfg.Pool == "" && cfg.DefaultStorage == "" {
		localType, ok := storage.Get(localPool)
		if !ok {
			return nil, "", "", "", fmt.Errorf("local storage backend is not registered")
		}

		store, err = localType.Create(localPool, map[string]string{"path": cfg.Root})
		if err != nil {
			return nil, "", "", "", err
		}
		pm.Add(localPool, store)

		absRoot, absErr := filepath.Abs(cfg.Root)
		if absErr != nil {
			return nil, "", "", "", fmt.Errorf("failed to resolve backup path: %w", absErr)
		}
		return store, localPool, "", filepath.Base(absRoot), nil
	}

	store, err = pm.Resolve(cfg.Pool)
	if err != nil {
		return nil, "", "", "", err
	}

	poolName = cfg.Pool
	if poolName == "" {
		poolName = cfg.DefaultStorage
	}

	prefix = strings.Trim(filepath.ToSlash(cfg.Root), "/")
	groupRoot = poolName
	if prefix != "" && prefix != "." {
		groupRoot = path.Base(prefix)
	} else {
		prefix = ""
	}

	return store, poolName, prefix, groupRoot, nil
}
