// ABOUTME: CLI commands for managing the local shopping cart.
// ABOUTME: Provides list, remove, quantity, clear, and checkout subcommands.
package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/onlyfashion/fitfeed/internal/models"
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage your shopping cart",
	Long:  "List, adjust, and check out items added from the feed browser.",
	RunE:  runCartList,
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cart items",
	RunE:  runCartList,
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <item-id>",
	Short: "Remove an item from the cart",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartRemove,
}

var cartQuantityCmd = &cobra.Command{
	Use:   "quantity <item-id> <count>",
	Short: "Set the quantity of a cart line",
	Long:  "Set the quantity for an item. A count of 0 removes the line.",
	Args:  cobra.ExactArgs(2),
	RunE:  runCartQuantity,
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	RunE:  runCartClear,
}

var cartCheckoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Review the order total",
	Long:  "Print an order summary with per-line and total prices.",
	RunE:  runCartCheckout,
}

var cartSize string

func init() {
	rootCmd.AddCommand(cartCmd)
	cartCmd.AddCommand(cartListCmd)
	cartCmd.AddCommand(cartRemoveCmd)
	cartCmd.AddCommand(cartQuantityCmd)
	cartCmd.AddCommand(cartClearCmd)
	cartCmd.AddCommand(cartCheckoutCmd)

	cartRemoveCmd.Flags().StringVar(&cartSize, "size", "", "Size of the line to remove")
	cartQuantityCmd.Flags().StringVar(&cartSize, "size", "", "Size of the line to adjust")
}

func runCartList(cmd *cobra.Command, args []string) error {
	items := globalCart.Items()
	if len(items) == 0 {
		fmt.Println("Cart is empty.")
		return nil
	}

	for _, item := range items {
		fmt.Printf("--- %s", item.Name)
		if item.Brand != "" {
			fmt.Printf(" (%s)", item.Brand)
		}
		fmt.Printf("\n    id: %s", item.ItemID)
		if item.Size != "" {
			fmt.Printf("  size: %s", item.Size)
		}
		fmt.Printf("  qty: %d  %s\n", item.Quantity, item.Price)
	}
	fmt.Printf("\n%d items, total %s\n", globalCart.Count(), models.FormatPrice(globalCart.TotalCents(), "JPY"))
	return nil
}

func runCartRemove(cmd *cobra.Command, args []string) error {
	globalCart.Remove(args[0], cartSize)
	fmt.Println("Removed.")
	return nil
}

func runCartQuantity(cmd *cobra.Command, args []string) error {
	count, err := strconv.Atoi(args[1])
	if err != nil || count < 0 {
		return fmt.Errorf("invalid count %q", args[1])
	}
	globalCart.SetQuantity(args[0], cartSize, count)
	fmt.Println("Updated.")
	return nil
}

func runCartClear(cmd *cobra.Command, args []string) error {
	globalCart.Clear()
	fmt.Println("Cart cleared.")
	return nil
}

func runCartCheckoutPrintLine(item models.CartItem) {
	line := item.PriceCents * item.Quantity
	fmt.Printf("  %dx %-24s %s\n", item.Quantity, item.Name, models.FormatPrice(line, "JPY"))
}

func runCartCheckout(cmd *cobra.Command, args []string) error {
	items := globalCart.Items()
	if len(items) == 0 {
		return fmt.Errorf("cart is empty")
	}

	fmt.Println("Order summary:")
	for _, item := range items {
		runCartCheckoutPrintLine(item)
	}
	fmt.Printf("Total: %s\n", models.FormatPrice(globalCart.TotalCents(), "JPY"))
	fmt.Println("\nOpen each item's shop link to complete the purchase.")
	return nil
}
