package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-shop-client/auth"
	"github.com/jrsteele09/go-shop-client/cart"
	"github.com/jrsteele09/go-shop-client/catalog"
	"github.com/jrsteele09/go-shop-client/client"
	"github.com/jrsteele09/go-shop-client/internal/config"
	"github.com/jrsteele09/go-shop-client/kvstore"
	"github.com/jrsteele09/go-shop-client/session"
)

// app holds the wired SDK components shared by every subcommand.
type app struct {
	client  *client.Client
	auth    *auth.Manager
	cart    *cart.Engine
	catalog *catalog.Service
}

var (
	apiURL      string
	sessionFile string
	verbose     bool

	shop *app
)

var rootCmd = &cobra.Command{
	Use:   "shopctl",
	Short: "shopctl is a CLI storefront for the shop commerce API",
	Long:  `A command-line interface for browsing products, managing the shopping cart, and checking out against the shop commerce API.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

		store := session.NewStore(kvstore.NewFile(sessionFile))
		expired := client.ExpiryHandlerFunc(func() {
			fmt.Fprintln(os.Stderr, "session expired, please sign in again with 'shopctl login'")
		})
		c := client.New(apiURL, store,
			client.WithLogger(logger),
			client.WithExpiryHandler(expired),
		)
		shop = &app{
			client:  c,
			auth:    auth.NewManager(c, auth.WithLogger(logger), auth.WithExpiryHandler(expired)),
			cart:    cart.NewEngine(c, cart.WithLogger(logger)),
			catalog: catalog.NewService(c, catalog.WithLogger(logger)),
		}
		shop.auth.Hydrate(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cfg := config.New()
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", cfg.GetAPIBaseURL(), "base URL of the shop commerce API")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", cfg.GetSessionFile(), "where the CLI keeps its session")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
