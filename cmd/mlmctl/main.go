package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mlmcommerce/supplychain/internal/app"
	"github.com/mlmcommerce/supplychain/internal/config"
	"github.com/mlmcommerce/supplychain/internal/db"
	"github.com/mlmcommerce/supplychain/internal/model"
	"github.com/mlmcommerce/supplychain/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "mlmctl",
		Short:        "Operator tool for the purchase and commission engine",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(supplyPathCmd())
	rootCmd.AddCommand(authorizeCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, wires the engine and closes it after fn.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.AutoMigrate = false
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func previewCmd() *cobra.Command {
	var (
		seller string
		rank   string
		amount string
		depth  int
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the commission a sale would pay without writing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := model.ParseRank(rank)
			if err != nil {
				return err
			}
			total, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", amount, err)
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				preview, err := a.Engine.PreviewCommission(cmd.Context(), seller, r, total, depth)
				if err != nil {
					return err
				}
				return printJSON(cmd, preview)
			})
		},
	}

	cmd.Flags().StringVarP(&seller, "seller", "s", "", "Seller participant id")
	cmd.Flags().StringVarP(&rank, "rank", "r", "", "Seller rank (NORMAL, VIP, STAR_1..STAR_5, DIRECTOR)")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Order total")
	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum commission levels (0 uses the configured default)")
	_ = cmd.MarkFlagRequired("seller")
	_ = cmd.MarkFlagRequired("rank")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func supplyPathCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "supply-path [participant-id]",
		Short: "List the uplines a participant may buy from, nearest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				opts, err := a.Engine.FindOptimalSupplyPath(cmd.Context(), args[0], depth)
				if err != nil {
					return err
				}
				return printJSON(cmd, opts)
			})
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "Maximum hops (0 uses the configured default)")

	return cmd
}

func authorizeCmd() *cobra.Command {
	var req service.AuthorizeRequest
	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Check whether a restock purchase would be allowed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				auth, err := a.Engine.Authorize(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd, auth)
			})
		},
	}

	cmd.Flags().StringVar(&req.BuyerID, "buyer", "", "Buyer participant id")
	cmd.Flags().StringVar(&req.SellerID, "seller", "", "Nominal seller participant id")
	cmd.Flags().StringVar(&req.ProductID, "product", "", "Product id")
	cmd.Flags().StringVar(&req.SpecID, "spec", "", "Product spec id")
	cmd.Flags().IntVarP(&req.Quantity, "quantity", "q", 1, "Quantity")
	_ = cmd.MarkFlagRequired("buyer")
	_ = cmd.MarkFlagRequired("seller")
	_ = cmd.MarkFlagRequired("product")

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the engine tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			conn, err := db.Connect(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := conn.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := db.Migrate(conn); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}
