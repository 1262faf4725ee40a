// ABOUTME: Root Cobra command and global state for the fitfeed CLI.
// ABOUTME: Sets up lifecycle hooks for config loading, API client, cache, and cart.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/onlyfashion/fitfeed/internal/api"
	"github.com/onlyfashion/fitfeed/internal/cart"
	"github.com/onlyfashion/fitfeed/internal/config"
	"github.com/onlyfashion/fitfeed/internal/imagecache"
)

var globalConfig *config.Config
var globalClient *api.Client
var globalCache *imagecache.Cache
var globalCart *cart.Store

var rootCmd = &cobra.Command{
	Use:   "fitfeed",
	Short: "Outfit feed and outfit shopping from the terminal",
	Long: `
███████╗██╗████████╗███████╗███████╗███████╗██████╗
██╔════╝██║╚══██╔══╝██╔════╝██╔════╝██╔════╝██╔══██╗
█████╗  ██║   ██║   █████╗  █████╗  █████╗  ██║  ██║
██╔══╝  ██║   ██║   ██╔══╝  ██╔══╝  ██╔══╝  ██║  ██║
██║     ██║   ██║   ██║     ███████╗███████╗██████╔╝
╚═╝     ╚═╝   ╚═╝   ╚═╝     ╚══════╝╚══════╝╚═════╝

   ONLYFASHION

Browse outfit posts, shop tagged items, and publish your own fits.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg

		if cfg.HasAPI() {
			globalClient = api.NewClient(cfg.API.BaseURL, func() (string, error) {
				return cfg.GetToken(), nil
			})
		}

		cacheDir, err := cfg.GetCacheDir()
		if err != nil {
			return fmt.Errorf("failed to resolve cache dir: %w", err)
		}
		globalCache = imagecache.New(cacheDir)

		maxAge := time.Duration(cfg.GetCacheMaxAgeHours()) * time.Hour
		if _, err := globalCache.EvictExpired(maxAge); err != nil {
			log.Printf("cache sweep failed: %v", err)
		}

		dataDir, err := config.GetDataDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data dir: %w", err)
		}
		cartStore, err := cart.NewStore(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open cart: %w", err)
		}
		globalCart = cartStore

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalCart != nil {
			if err := globalCart.Save(); err != nil {
				return fmt.Errorf("failed to save cart: %w", err)
			}
			globalCart = nil
		}
		return nil
	},
}

// requireClient fails commands that need the remote API before setup has run.
func requireClient() (*api.Client, error) {
	if globalClient == nil {
		return nil, fmt.Errorf("no API configured - run 'fitfeed setup' first")
	}
	return globalClient, nil
}
