package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/frahmantamala/cost-tracker/internal/cost"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Add, list and change costs from the command line",
}

var (
	viewYear  string
	viewMonth string
	viewSort  string

	costDate        string
	costItem        string
	costSum         string
	costCategory    string
	costDescription string
)

var listCostsCmd = &cobra.Command{
	Use:   "list",
	Short: "List costs matching the filter",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		if err := applyView(s.manager); err != nil {
			return err
		}
		printView(cmd.OutOrStdout(), s.manager.Snapshot())
		return nil
	}),
}

var totalCostsCmd = &cobra.Command{
	Use:   "total",
	Short: "Print the total of the costs matching the filter",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		if err := applyView(s.manager); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.manager.CurrentTotal().StringFixed(2))
		return nil
	}),
}

var addCostCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a cost",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		sum, err := parseSum(costSum)
		if err != nil {
			return err
		}

		dto := cost.CreateCostDTO{
			Date:        costDate,
			Item:        costItem,
			Sum:         sum,
			Category:    costCategory,
			Description: costDescription,
		}
		if err := dto.Validate(); err != nil {
			return err
		}

		created, err := s.manager.AddNewItem(ctx, dto.ToCost())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added cost %d\n", created.ID)
		return nil
	}),
}

var updateCostCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change fields of a cost; unset flags keep their value",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		existing, err := lookupCost(s.manager, args[0])
		if err != nil {
			return err
		}

		dto := cost.UpdateCostDTO{
			Date:        existing.Date,
			Item:        existing.Item,
			Sum:         &existing.Sum,
			Category:    string(existing.Category),
			Description: existing.Description,
			Starred:     existing.Starred,
		}

		flags := cmd.Flags()
		if flags.Changed("date") {
			dto.Date = costDate
		}
		if flags.Changed("item") {
			dto.Item = costItem
		}
		if flags.Changed("sum") {
			if dto.Sum, err = parseSum(costSum); err != nil {
				return err
			}
		}
		if flags.Changed("category") {
			dto.Category = costCategory
		}
		if flags.Changed("description") {
			dto.Description = costDescription
		}

		if err := dto.Validate(); err != nil {
			return err
		}

		updated, err := s.manager.UpdateItem(ctx, dto.ToCost(existing.ID))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated cost %d\n", updated.ID)
		return nil
	}),
}

var deleteCostCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a cost",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := s.manager.DeleteItem(ctx, cost.Cost{ID: id}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted cost %d\n", id)
		return nil
	}),
}

var starCostCmd = &cobra.Command{
	Use:   "star ID",
	Short: "Toggle the star on a cost",
	Args:  cobra.ExactArgs(1),
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		updated, err := s.manager.ToggleStar(ctx, id)
		if err != nil {
			return err
		}
		state := "unstarred"
		if updated.Starred {
			state = "starred"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cost %d %s\n", id, state)
		return nil
	}),
}

// withSession opens the store for the duration of one command.
func withSession(run func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		s, err := openSession(ctx, os.Stderr)
		if err != nil {
			return err
		}
		defer s.Close()

		return run(ctx, cmd, s, args)
	}
}

func applyView(manager *cost.Manager) error {
	filter, err := cost.ParseFilter(viewYear, viewMonth)
	if err != nil {
		return err
	}
	order, err := cost.ParseSortOrder(viewSort)
	if err != nil {
		return err
	}
	manager.SetFilter(filter)
	manager.SetSort(order)
	return nil
}

func printView(out io.Writer, view cost.View) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tITEM\tCATEGORY\tSUM\tSTAR\tDESCRIPTION")
	for _, c := range view.Costs {
		star := ""
		if c.Starred {
			star = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Date, c.Item, c.Category, c.Sum.StringFixed(2), star, c.Description)
	}
	fmt.Fprintf(tw, "\t\t\tTOTAL\t%s\t\t\n", view.Total.StringFixed(2))
	_ = tw.Flush()
}

func lookupCost(manager *cost.Manager, raw string) (cost.Cost, error) {
	id, err := parseID(raw)
	if err != nil {
		return cost.Cost{}, err
	}
	c, ok := manager.Get(id)
	if !ok {
		return cost.Cost{}, fmt.Errorf("cost %d not found", id)
	}
	return c, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid cost ID %q", raw)
	}
	return id, nil
}

func parseSum(raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid sum %q: %w", raw, err)
	}
	return &sum, nil
}

func init() {
	for _, c := range []*cobra.Command{listCostsCmd, totalCostsCmd} {
		c.Flags().StringVar(&viewYear, "year", "", "only costs from this year")
		c.Flags().StringVar(&viewMonth, "month", "", "only costs from this month (1-12)")
	}
	listCostsCmd.Flags().StringVar(&viewSort, "sort", "none", "order by amount: none, asc or desc")

	for _, c := range []*cobra.Command{addCostCmd, updateCostCmd} {
		c.Flags().StringVar(&costDate, "date", "", "date as YYYY-MM-DD")
		c.Flags().StringVar(&costItem, "item", "", "what the money was spent on")
		c.Flags().StringVar(&costSum, "sum", "", "amount, for example 12.50")
		c.Flags().StringVar(&costCategory, "category", "", "one of FOOD, HEALTH, EDUCATION, TRAVEL, HOUSING, OTHER")
		c.Flags().StringVar(&costDescription, "description", "", "free text note")
	}

	costsCmd.AddCommand(listCostsCmd, totalCostsCmd, addCostCmd, updateCostCmd, deleteCostCmd, starCostCmd)
}
