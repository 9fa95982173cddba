package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-shop-client/cart"
)

var addQty int

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show the shopping cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := shop.cart.FetchCart(cmd.Context()); err != nil {
			return err
		}
		lines := shop.cart.Lines()
		if len(lines) == 0 {
			fmt.Println("cart is empty")
			return nil
		}
		for _, l := range lines {
			fmt.Printf("%s  %-40s  x%d  %10.0f  %s\n", l.ProductID, l.Name, l.Quantity, l.Price, l.Attributes.Color)
		}
		fmt.Printf("total items: %d\n", shop.cart.Count())
		return nil
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id>",
	Short: "Add a product to the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result := shop.cart.AddToCart(cmd.Context(), cart.Line{ProductID: args[0], Quantity: addQty}, true)
		if !result.Success {
			return fmt.Errorf("%s", result.Message)
		}
		fmt.Printf("added, cart now holds %d item(s)\n", shop.cart.Count())
		return nil
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Remove a product from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := shop.cart.FetchCart(cmd.Context()); err != nil {
			return err
		}
		shop.cart.RemoveFromCart(cmd.Context(), args[0])
		fmt.Printf("cart now holds %d item(s)\n", shop.cart.Count())
		return nil
	},
}

var cartSetQtyCmd = &cobra.Command{
	Use:   "set-qty <product-id> <quantity>",
	Short: "Set the quantity of a cart line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := strconv.Atoi(args[1])
		if err != nil || qty < 1 {
			return fmt.Errorf("quantity must be a positive integer")
		}
		if err := shop.cart.FetchCart(cmd.Context()); err != nil {
			return err
		}
		if !shop.cart.UpdateQuantity(cmd.Context(), args[0], qty) {
			return fmt.Errorf("quantity update was rejected")
		}
		fmt.Printf("cart now holds %d item(s)\n", shop.cart.Count())
		return nil
	},
}

var checkoutInfo cart.ShippingInfo

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Check out the current cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := shop.cart.FetchCart(cmd.Context()); err != nil {
			return err
		}
		confirmation, err := shop.cart.Checkout(cmd.Context(), checkoutInfo)
		if err != nil {
			return err
		}
		if !confirmation.Success {
			return fmt.Errorf("checkout was not accepted: %s", confirmation.Message)
		}
		fmt.Printf("order placed: %d item(s), total %.0f\n",
			confirmation.OrderInfo.ItemCount, confirmation.OrderInfo.TotalAmount)
		if confirmation.EmailSent {
			fmt.Println("a confirmation email is on its way")
		}
		return nil
	},
}

func init() {
	cartAddCmd.Flags().IntVar(&addQty, "qty", 1, "quantity to add")

	checkoutCmd.Flags().StringVar(&checkoutInfo.Name, "name", "", "recipient name")
	checkoutCmd.Flags().StringVar(&checkoutInfo.Email, "email", "", "contact email")
	checkoutCmd.Flags().StringVar(&checkoutInfo.Phone, "phone", "", "contact phone")
	checkoutCmd.Flags().StringVar(&checkoutInfo.Address, "address", "", "street address")
	checkoutCmd.Flags().StringVar(&checkoutInfo.City, "city", "", "city")
	checkoutCmd.Flags().StringVar(&checkoutInfo.ZipCode, "zip", "", "postal code")
	checkoutCmd.Flags().StringVar(&checkoutInfo.Note, "note", "", "delivery note")
	for _, flag := range []string{"name", "email", "phone", "address", "city", "zip"} {
		_ = checkoutCmd.MarkFlagRequired(flag)
	}

	cartCmd.AddCommand(cartAddCmd, cartRemoveCmd, cartSetQtyCmd)
	rootCmd.AddCommand(cartCmd, checkoutCmd)
}
