// ABOUTME: Cobra command for interactive fitfeed account setup.
// ABOUTME: Launches a bubbletea TUI wizard to collect and validate API credentials.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/onlyfashion/fitfeed/internal/config"
	"github.com/onlyfashion/fitfeed/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Connect your fitfeed account",
	Long:  "Interactive wizard to configure the feed API endpoint and access token.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	model := tui.NewSetupModel(cfg.API.BaseURL, cfg.API.Token)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	apiURL, token := final.Result()
	cfg.API.BaseURL = apiURL
	cfg.API.Token = token

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		fmt.Println("Config saved successfully.")
	} else {
		fmt.Printf("Config saved to %s\n", configPath)
	}
	return nil
}
