package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/example/gramstore/internal/auth"
	"github.com/example/gramstore/internal/command"
	"github.com/example/gramstore/internal/config"
	"github.com/example/gramstore/internal/infrastructure/store"
	"github.com/example/gramstore/internal/logger"
	"github.com/example/gramstore/internal/query"
	"github.com/spf13/cobra"
)

var errOwnerRequired = errors.New("--owner is required")

// bootStore loads config and opens the catalog store.
func bootStore(ctx context.Context) (config.Config, store.CatalogStore, error) {
	cfg := config.Load()
	if err := cfg.ValidateStore(); err != nil {
		return cfg, nil, err
	}
	catalog, err := store.OpenCatalog(ctx, cfg)
	return cfg, catalog, err
}

func ownerFlag(cmd *cobra.Command) (string, error) {
	owner, _ := cmd.Flags().GetString("owner")
	if owner == "" {
		return "", errOwnerRequired
	}
	return owner, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// gramctl sell --owner o --product p --quantity n
func newSellCmd() *cobra.Command {
	var productID string
	var quantity int

	cmd := &cobra.Command{
		Use:   "sell",
		Short: "Record a sale, decrementing stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg, catalog, err := bootStore(ctx)
			if err != nil {
				return err
			}
			defer catalog.Close(context.Background())

			coordinator := command.NewCoordinator(catalog, command.CoordinatorConfig{
				MaxAttempts:  cfg.SellMaxAttempts,
				SellTimeout:  cfg.SellTimeout,
				WriteTimeout: cfg.WriteTimeout,
				BackoffBase:  command.DefaultCoordinatorConfig().BackoffBase,
			}, command.WithLogger(logger.NewWithWriter(cfg.IsProduction(), cmd.ErrOrStderr())))

			ev, err := coordinator.Sell(ctx, owner, productID, quantity)
			if ev != nil {
				if perr := printJSON(cmd.OutOrStdout(), ev); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&productID, "product", "", "product id")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "units to sell")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

// gramctl sales --owner o [--product p]
func newSalesCmd() *cobra.Command {
	var productID string

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "List the sale log",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg, catalog, err := bootStore(ctx)
			if err != nil {
				return err
			}
			defer catalog.Close(context.Background())

			sales, err := query.NewHandler(catalog, nil, cfg.ExpiryHorizonDays).ListSales(ctx, owner, productID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sales)
		},
	}
	cmd.Flags().StringVar(&productID, "product", "", "only this product")
	return cmd
}

// gramctl analytics --owner o [--horizon-days n]
func newAnalyticsCmd() *cobra.Command {
	var horizon int

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Classify the catalog into low stock, expiring and expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg, catalog, err := bootStore(ctx)
			if err != nil {
				return err
			}
			defer catalog.Close(context.Background())

			report, err := query.NewHandler(catalog, nil, cfg.ExpiryHorizonDays).GetAnalytics(ctx, owner, horizon)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().IntVar(&horizon, "horizon-days", -1, "expiring-soon window in days (default from EXPIRY_HORIZON_DAYS)")
	return cmd
}

// gramctl token --owner o
func newTokenCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := ownerFlag(cmd)
			if err != nil {
				return err
			}
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}

			token, expiresAt, err := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL).Issue(owner, name)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"token":      token,
				"expires_at": expiresAt.UTC().Format(time.RFC3339),
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name embedded in the token")
	return cmd
}
