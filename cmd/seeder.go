package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/frahmantamala/cost-tracker/internal/cost"
	"github.com/frahmantamala/cost-tracker/internal/cost/sqlstore"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the cost store with sample data",
	Long:  `Seed the cost store with sample data for development and testing purposes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		s, err := openSession(ctx, os.Stderr)
		if err != nil {
			return err
		}
		defer s.Close()

		if clearData {
			removed, err := clearCosts(ctx, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d costs\n", removed)
		}

		added, err := seedCosts(ctx, s.manager, sampleCosts())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d costs, total %s\n", added, s.manager.CurrentTotal().StringFixed(2))
		return nil
	},
}

const seedConcurrency = 4

// seedCosts adds every draft through the manager. Insertion order is not preserved.
func seedCosts(ctx context.Context, manager *cost.Manager, drafts []cost.Cost) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)

	for _, d := range drafts {
		d := d
		g.Go(func() error {
			if _, err := manager.AddNewItem(gctx, d); err != nil {
				return fmt.Errorf("seed %q: %w", d.Item, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(drafts), nil
}

func clearCosts(ctx context.Context, s *session) (int64, error) {
	handle, err := s.opener.Open(ctx)
	if err != nil {
		return 0, err
	}
	store, ok := handle.(*sqlstore.Store)
	if !ok {
		return 0, fmt.Errorf("store does not support clearing")
	}

	removed, err := store.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	return removed, s.manager.Reload(ctx)
}

func sampleCosts() []cost.Cost {
	sample := func(date, item, sum string, category cost.Category, description string) cost.Cost {
		return cost.NewCost(date, item, decimal.RequireFromString(sum), category, description)
	}

	return []cost.Cost{
		sample("2024-01-05", "Groceries", "54.20", cost.CategoryFood, "weekly shop"),
		sample("2024-01-15", "Lunch", "12.50", cost.CategoryFood, ""),
		sample("2024-01-20", "Dentist", "80.00", cost.CategoryHealth, "check-up"),
		sample("2024-02-01", "Rent", "950.00", cost.CategoryHousing, "February"),
		sample("2024-02-11", "Online course", "29.99", cost.CategoryEducation, ""),
		sample("2024-02-20", "Train tickets", "64.00", cost.CategoryTravel, "weekend trip"),
		sample("2024-03-01", "Rent", "950.00", cost.CategoryHousing, "March"),
		sample("2024-03-08", "Pharmacy", "15.75", cost.CategoryHealth, ""),
		sample("2023-12-24", "Gifts", "120.00", cost.CategoryOther, "holidays"),
		sample("2023-01-10", "Books", "42.00", cost.CategoryEducation, ""),
	}
}
