// ABOUTME: CLI commands for browsing the outfit feed.
// ABOUTME: Runs the interactive TUI browser or prints posts non-interactively.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/onlyfashion/fitfeed/internal/feed"
	"github.com/onlyfashion/fitfeed/internal/models"
	"github.com/onlyfashion/fitfeed/internal/tui"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Browse the outfit feed",
	Long:  "Open the interactive feed browser with grid and full-post modes.",
	RunE:  runFeed,
}

var feedListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print feed posts",
	Long:  "List feed posts without the interactive browser.",
	RunE:  runFeedList,
}

var feedListLimit int

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.AddCommand(feedListCmd)

	feedListCmd.Flags().IntVar(&feedListLimit, "limit", 20, "Maximum number of posts to show")
}

func runFeed(cmd *cobra.Command, args []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}

	store := feed.NewStore(client, globalConfig.GetPageSize())
	model := tui.NewFeedModel(store, globalCache, client, globalCart)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func runFeedList(cmd *cobra.Command, args []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}

	page, err := client.Feed(context.Background(), feedListLimit, "")
	if err != nil {
		return fmt.Errorf("failed to load feed: %w", err)
	}

	if len(page.Posts) == 0 {
		fmt.Println("No posts found.")
		return nil
	}

	now := time.Now()
	for _, post := range page.Posts {
		fmt.Printf("--- %s @%s [%s]", post.Title, post.Author.Handle, models.RelativeTime(post.CreatedAt, now))
		if len(post.Tags) > 0 {
			fmt.Printf(" #%s", strings.Join(post.Tags, " #"))
		}
		fmt.Printf("\n    ♥ %d", post.LikeCount)
		if len(post.Items) > 0 {
			names := make([]string, 0, len(post.Items))
			for _, it := range post.Items {
				names = append(names, fmt.Sprintf("%s %s", it.Name, it.Price))
			}
			fmt.Printf("  |  %s", strings.Join(names, ", "))
		}
		fmt.Printf("\n")
	}
	return nil
}
