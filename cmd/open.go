package cmd

import (
	"context"
	"fmt"

	"chunk-mender/core/config"
	"chunk-mender/core/reconcile"
	"chunk-mender/core/storage"
	"chunk-mender/feature/world"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// addSelectorFlags registers -n/--nether and -e/--end on c. -N and -E are
// accepted as hidden aliases.
func addSelectorFlags(c *cobra.Command, verb string) {
	c.Flags().BoolVarP(&netherFlag, "nether", "n", false, verb+" the nether (DIM-1)")
	c.Flags().BoolVarP(&endFlag, "end", "e", false, verb+" the end (DIM1)")
	c.Flags().BoolVarP(&netherFlag, "NETHER", "N", false, "")
	c.Flags().BoolVarP(&endFlag, "END", "E", false, "")
	_ = c.Flags().MarkHidden("NETHER")
	_ = c.Flags().MarkHidden("END")

	for _, nether := range []string{"nether", "NETHER"} {
		for _, end := range []string{"end", "END"} {
			c.MarkFlagsMutuallyExclusive(nether, end)
		}
	}
}

func selectorFromFlags() world.Selector {
	switch {
	case netherFlag:
		return world.Nether
	case endFlag:
		return world.End
	default:
		return world.Overworld
	}
}

// opener opens the primary world and its backups.
type opener struct {
	cfg    *config.Config
	logger *zap.Logger

	// newClient is replaced in tests.
	newClient func(storage.Config) (storage.Client, error)
	client    storage.Client
}

func newOpener(cfg *config.Config, l *zap.Logger) *opener {
	return &opener{cfg: cfg, logger: l, newClient: storage.NewClient}
}

func (o *opener) openPrimary(path string, sel world.Selector) (*world.Dimension, error) {
	dim, err := world.OpenDimension(path, sel, world.OpenOptions{SavesDir: o.cfg.Repair.SavesDir})
	if err != nil {
		return nil, fmt.Errorf("failed to open world %s: %w", path, err)
	}
	return dim, nil
}

// openBackups opens every backup read-only. On failure the backups opened so
// far are closed.
func (o *opener) openBackups(ctx context.Context, paths []string, sel world.Selector) ([]reconcile.Store, error) {
	backups := make([]reconcile.Store, 0, len(paths))
	for _, path := range paths {
		b, err := o.openBackup(ctx, path, sel)
		if err != nil {
			for _, opened := range backups {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("failed to open backup %s: %w", path, err)
		}
		backups = append(backups, b)
	}
	return backups, nil
}

func (o *opener) openBackup(ctx context.Context, path string, sel world.Selector) (*world.Dimension, error) {
	bucket, prefix, remote := storage.ParseURL(path)
	if !remote {
		return world.OpenDimension(path, sel, world.OpenOptions{SavesDir: o.cfg.Repair.SavesDir, ReadOnly: true})
	}

	if o.client == nil {
		client, err := o.newClient(o.cfg.Storage)
		if err != nil {
			return nil, err
		}
		o.client = client
	}

	o.logger.Info("Downloading backup", zap.String("bucket", bucket), zap.String("prefix", prefix))
	return world.OpenRemote(ctx, o.client, bucket, prefix, sel)
}
