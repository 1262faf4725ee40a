// ABOUTME: CLI command for publishing a new outfit post.
// ABOUTME: Launches the composer TUI wizard, optionally pre-seeded with image paths.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/onlyfashion/fitfeed/internal/tui"
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Publish a new outfit post",
	Long:  "Interactive wizard to upload outfit photos with tagged shopping items.",
	RunE:  runPost,
}

var postImages []string

func init() {
	rootCmd.AddCommand(postCmd)

	postCmd.Flags().StringArrayVar(&postImages, "image", nil, "Image file to attach (repeatable)")
}

func runPost(cmd *cobra.Command, args []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}

	for _, path := range postImages {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("cannot read image %s: %w", path, err)
		}
	}

	model := tui.NewComposerModel(client.UploadPost, postImages)

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.ComposerModel)
	if final.Cancelled() {
		fmt.Println("Post cancelled.")
		return nil
	}
	if created := final.Result(); created != nil {
		fmt.Printf("Post created (ID: %s)\n", created.PostID)
	}
	return nil
}
