// ABOUTME: CLI commands for viewing and editing user profiles.
// ABOUTME: Shows a profile with recent posts, and applies partial profile edits.
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/onlyfashion/fitfeed/internal/api"
	"github.com/onlyfashion/fitfeed/internal/models"
)

var profileCmd = &cobra.Command{
	Use:   "profile [user-id]",
	Short: "Show a user profile",
	Long:  "Show a profile with measurements and recent posts. Defaults to your own.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfileShow,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit your profile",
	Long:  "Update profile fields. Only the flags you pass are changed.",
	RunE:  runProfileEdit,
}

// Flags
var (
	profilePostsLimit int
	editUsername      string
	editBio           string
	editHeight        int
	editChest         int
	editWaist         int
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileEditCmd)

	profileCmd.Flags().IntVar(&profilePostsLimit, "posts", 5, "Number of recent posts to show")

	profileEditCmd.Flags().StringVar(&editUsername, "username", "", "New username")
	profileEditCmd.Flags().StringVar(&editBio, "bio", "", "New bio")
	profileEditCmd.Flags().IntVar(&editHeight, "height", 0, "Height in cm")
	profileEditCmd.Flags().IntVar(&editChest, "chest", 0, "Chest in cm")
	profileEditCmd.Flags().IntVar(&editWaist, "waist", 0, "Waist in cm")
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}

	userID := "me"
	if len(args) == 1 {
		userID = args[0]
	}

	ctx := context.Background()
	profile, err := client.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	fmt.Printf("@%s\n", profile.Username)
	if profile.Bio != "" {
		fmt.Printf("%s\n", profile.Bio)
	}
	var measurements []string
	if profile.HeightCM != nil {
		measurements = append(measurements, fmt.Sprintf("height %dcm", *profile.HeightCM))
	}
	if profile.ChestCM != nil {
		measurements = append(measurements, fmt.Sprintf("chest %dcm", *profile.ChestCM))
	}
	if profile.WaistCM != nil {
		measurements = append(measurements, fmt.Sprintf("waist %dcm", *profile.WaistCM))
	}
	if len(measurements) > 0 {
		fmt.Printf("%s\n", strings.Join(measurements, " · "))
	}

	if profilePostsLimit <= 0 {
		return nil
	}
	page, err := client.UserPosts(ctx, profile.UserID, profilePostsLimit, "")
	if err != nil {
		return fmt.Errorf("failed to load posts: %w", err)
	}
	if len(page.Posts) == 0 {
		fmt.Println("\nNo posts yet.")
		return nil
	}

	fmt.Println()
	now := time.Now()
	for _, post := range page.Posts {
		fmt.Printf("--- %s [%s]  ♥ %d\n", post.Title, models.RelativeTime(post.CreatedAt, now), post.LikeCount)
	}
	return nil
}

func runProfileEdit(cmd *cobra.Command, args []string) error {
	client, err := requireClient()
	if err != nil {
		return err
	}

	var update api.ProfileUpdate
	changed := false
	if cmd.Flags().Changed("username") {
		update.Username = &editUsername
		changed = true
	}
	if cmd.Flags().Changed("bio") {
		update.Bio = &editBio
		changed = true
	}
	if cmd.Flags().Changed("height") {
		update.HeightCM = &editHeight
		changed = true
	}
	if cmd.Flags().Changed("chest") {
		update.ChestCM = &editChest
		changed = true
	}
	if cmd.Flags().Changed("waist") {
		update.WaistCM = &editWaist
		changed = true
	}
	if !changed {
		return fmt.Errorf("nothing to update - pass at least one flag")
	}

	profile, err := client.UpdateProfile(context.Background(), update)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	fmt.Printf("Profile updated (@%s)\n", profile.Username)
	return nil
}
