package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-shop-client/catalog"
)

var (
	productsHot      bool
	productsCategory string
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List products from the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer shop.catalog.Close()

		var (
			products []catalog.Product
			err      error
		)
		switch {
		case productsHot:
			products, err = shop.catalog.Hot(cmd.Context())
		case productsCategory != "":
			products, err = shop.catalog.Search(cmd.Context(), productsCategory)
		default:
			products, err = shop.catalog.Published(cmd.Context())
		}
		if err != nil {
			return err
		}
		for _, p := range products {
			fmt.Printf("%s  %-40s  %10.0f  %s\n", p.ID, p.Name, p.Price, p.Type)
		}
		return nil
	},
}

var productCmd = &cobra.Command{
	Use:   "product <id>",
	Short: "Show one product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer shop.catalog.Close()

		p, err := shop.catalog.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\nprice: %.0f  stock: %d  colors: %v\n%s\n",
			p.Name, p.ID, p.Price, p.Quantity, p.Colors, p.Description)
		return nil
	},
}

func init() {
	productsCmd.Flags().BoolVar(&productsHot, "hot", false, "only featured products")
	productsCmd.Flags().StringVar(&productsCategory, "category", "", "filter by category")

	rootCmd.AddCommand(productsCmd, productCmd)
}
