package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pbnkron/kron/internal/core/ports"
	"github.com/pbnkron/kron/internal/core/service"
	"github.com/pbnkron/kron/internal/infrastructure/queue"
	"github.com/pbnkron/kron/pkg/logger"
)

// ── reconcile ────────────────────────────────────────────────────────────────

var (
	reconcileOwner   string
	reconcileAll     bool
	reconcileWorkers int
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile (--owner <uid> | --all)",
	Short: "Repair missing, orphaned and stale public mirrors",
	Long: `Reconcile brings public mirrors back in line with private goals: every
public goal gets an up-to-date mirror and every mirror whose goal is gone or
private is deleted. Runs are idempotent.

  kronctl reconcile --owner 5kq2XbYv
  kronctl reconcile --all --workers 8`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileOwner, "owner", "", "Reconcile a single owner uid")
	reconcileCmd.Flags().BoolVar(&reconcileAll, "all", false, "Reconcile every owner with a profile")
	reconcileCmd.Flags().IntVar(&reconcileWorkers, "workers", 0, "Sharded workers for --all (default RECONCILE_WORKERS)")
	reconcileCmd.MarkFlagsMutuallyExclusive("owner", "all")
	reconcileCmd.MarkFlagsOneRequired("owner", "all")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, cfg, log, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close(ctx, log)

	store := b.Store
	svc := service.NewReconcileService(store.Goals, store.Mirrors, store.Profiles, logger.Component("reconcile"))

	if reconcileOwner != "" {
		plan, err := svc.Reconcile(ctx, reconcileOwner)
		printPlan(cmd.OutOrStdout(), reconcileOwner, plan)
		return err
	}

	workers := reconcileWorkers
	if workers <= 0 {
		workers = cfg.Reconcile.Workers
	}
	d := queue.NewDispatcher(workers, svc, logger.Component("dispatcher"))
	d.Start(ctx)

	n, err := d.Sweep(ctx, store.Profiles.ListUIDs)
	d.Close()
	d.Wait()
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "reconciled %d owners\n", n)
	return ctx.Err()
}

func printPlan(out io.Writer, ownerUID string, plan ports.ReconcilePlan) {
	if plan.Empty() {
		fmt.Fprintf(out, "%s: mirrors already in sync\n", ownerUID)
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTION\tGOAL")
	for _, m := range plan.Upsert {
		fmt.Fprintf(w, "upsert\t%s\n", m.ID)
	}
	for _, id := range plan.Delete {
		fmt.Fprintf(w, "delete\t%s\n", id)
	}
	_ = w.Flush()
}

// ── rename ───────────────────────────────────────────────────────────────────

var renameCmd = &cobra.Command{
	Use:   "rename <uid> <username>",
	Short: "Change a user's display name and propagate it to their public goals",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	b, _, log, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close(ctx, log)

	svc := service.NewProfileService(b.Store.Profiles, b.Store.Mirrors, logger.Component("profiles"))
	renamed, err := svc.Rename(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if !renamed {
		return errors.New("username must not be blank")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %q\n", args[0], args[1])
	return nil
}
