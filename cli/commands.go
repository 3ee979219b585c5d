// Package cli provides the Cobra-based CLI for the storefront.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront/config"
	"storefront/domain"
	"storefront/logger"
	"storefront/notify"
	"storefront/review"
	"storefront/store"
	"storefront/storefront"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	rootCmd = &cobra.Command{
		Use:           "storefront",
		Short:         "Meme-Tee storefront: catalog, cart, checkout and reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// tests inject the storefront directly
			if app != nil {
				return nil
			}

			config.BindEnv(viper.GetViper())
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			log, err = logger.New(cfg.LogLevel, cfg.Environment)
			if err != nil {
				return err
			}

			start := time.Now()
			catalog, err := store.NewCatalog(cmd.Context(), cfg.Catalog.Source, cfg.Catalog.File)
			if err != nil {
				log.Error("catalog load failed", zap.String("source", cfg.Catalog.Source), zap.Error(err))
				return err
			}
			log.Debug("catalog loaded",
				zap.String("source", cfg.Catalog.Source),
				zap.Int("products", catalog.Len()),
				zap.Duration("duration", time.Since(start)),
			)

			app = storefront.New(catalog, cfg, storefront.WithLogger(log))
			return nil
		},
	}

	app *storefront.Storefront
	log = zap.NewNop()
)

func init() {
	config.SetDefaults(viper.GetViper())

	rootCmd.PersistentFlags().String("config", "", "config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().String("catalog", "embedded", "catalog source: embedded|file")
	rootCmd.PersistentFlags().String("catalog-file", "", "catalog seed file (.yaml or .json)")
	rootCmd.PersistentFlags().Bool("legacy-rounding", false, "round the premium discount to cents before subtracting it")

	viper.BindPFlag(config.KeyConfig, rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag(config.KeyCatalogSource, rootCmd.PersistentFlags().Lookup("catalog"))
	viper.BindPFlag(config.KeyCatalogFile, rootCmd.PersistentFlags().Lookup("catalog-file"))
	viper.BindPFlag(config.KeyLegacyRounding, rootCmd.PersistentFlags().Lookup("legacy-rounding"))

	// shell
	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive shell mode; the cart lives for the whole session",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := bufio.NewReader(cmd.InOrStdin())
			for {
				fmt.Print("storefront> ")
				line, err := r.ReadString('\n')
				line = strings.TrimSpace(line)
				if line == "exit" || line == "quit" {
					return nil
				}
				if line != "" && !strings.HasPrefix(line, "shell") {
					rootCmd.SetArgs(strings.Fields(line))
					if err := rootCmd.Execute(); err != nil {
						fmt.Fprintln(os.Stderr, err)
					}
					rootCmd.SetArgs(nil)
					resetFlags(rootCmd)
				}
				if err != nil {
					return nil
				}
			}
		},
	}
	rootCmd.AddCommand(shellCmd)

	// catalog
	var cSort, cOrder, cOutput string
	var cMin, cMax float64
	var cInStock bool
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := domain.ListFilter{InStockOnly: cInStock, SortBy: cSort, Order: cOrder}
			if cmd.Flags().Changed("min-price") {
				d := decimal.NewFromFloat(cMin)
				filter.MinPrice = &d
			}
			if cmd.Flags().Changed("max-price") {
				d := decimal.NewFromFloat(cMax)
				filter.MaxPrice = &d
			}
			out, err := app.Products(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if cOutput == "json" {
				return printJSON(out)
			}
			for _, p := range out {
				fmt.Printf("%d | %s | %s | %d\n", p.ID, p.Name, p.Price.StringFixed(2), p.TotalStock())
			}
			return nil
		},
	}
	catalogCmd.Flags().Float64Var(&cMin, "min-price", 0, "min price")
	catalogCmd.Flags().Float64Var(&cMax, "max-price", 0, "max price")
	catalogCmd.Flags().BoolVar(&cInStock, "in-stock", false, "only products with stock")
	catalogCmd.Flags().StringVar(&cSort, "sort-by", "", "sort field: id|name|price")
	catalogCmd.Flags().StringVar(&cOrder, "order", "asc", "sort order")
	catalogCmd.Flags().StringVar(&cOutput, "output", "", "output format")
	rootCmd.AddCommand(catalogCmd)

	// show
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a product with its stock, current selection and quantity menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("id", args[0])
			if err != nil {
				return err
			}
			p, err := app.Product(cmd.Context(), id)
			if err != nil {
				if domain.IsNotFoundError(err) {
					fmt.Fprintln(os.Stderr, err)
					return nil
				}
				return err
			}
			sel, err := app.Selection(cmd.Context(), id)
			if err != nil {
				return err
			}
			qtys, err := app.QuantityOptions(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(struct {
				Product   domain.Product `json:"product"`
				Selection selectionView  `json:"selection"`
				Quantity  []int          `json:"quantityOptions"`
			}{p, newSelectionView(sel), qtys})
		},
	}
	rootCmd.AddCommand(showCmd)

	// stock
	stockCmd := &cobra.Command{
		Use:   "stock <id> <colour> <size>",
		Short: "Stock on hand for one variant",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("id", args[0])
			if err != nil {
				return err
			}
			n, err := app.StockFor(cmd.Context(), id, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	rootCmd.AddCommand(stockCmd)

	// select
	var sColour, sSize, sSide string
	var sQty int
	selectCmd := &cobra.Command{
		Use:   "select <id>",
		Short: "Choose colour, size, side and quantity for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("id", args[0])
			if err != nil {
				return err
			}
			sel, err := applySelection(cmd, id, sColour, sSize, sSide, sQty)
			if err != nil {
				return err
			}
			return printJSON(newSelectionView(sel))
		},
	}
	selectionFlags(selectCmd, &sColour, &sSize, &sSide, &sQty)
	rootCmd.AddCommand(selectCmd)

	// add
	var aColour, aSize, aSide string
	var aQty int
	addCmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add the current selection to the cart; selection flags are applied first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("id", args[0])
			if err != nil {
				return err
			}
			if _, err := applySelection(cmd, id, aColour, aSize, aSide, aQty); err != nil {
				return err
			}

			start := time.Now()
			res, err := app.AddToCart(cmd.Context(), id)
			if err != nil {
				if prompt, ok := storefront.PromptFor(err); ok {
					log.Warn("add to cart refused", zap.Int("product_id", id), zap.Error(err))
					fmt.Fprintln(os.Stderr, prompt)
					return nil
				}
				return err
			}
			log.Info("added to cart",
				zap.Int("product_id", id),
				zap.Int("line", res.Index),
				zap.Int("stock_left", res.StockLeft),
				zap.Duration("duration", time.Since(start)),
			)
			printLatestNotification()
			return nil
		},
	}
	selectionFlags(addCmd, &aColour, &aSize, &aSide, &aQty)
	rootCmd.AddCommand(addCmd)

	// remove
	removeCmd := &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove a cart line by its position (0-based)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseInt("index", args[0])
			if err != nil {
				return err
			}
			line, err := app.RemoveFromCart(cmd.Context(), idx)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d x %s (%s/%s)\n", line.Qty, line.DisplayName, line.Colour, line.Size)
			return nil
		},
	}
	rootCmd.AddCommand(removeCmd)

	// clear
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart and return every unit to stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.ClearCart(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("cleared, %d units returned to stock\n", n)
			return nil
		},
	}
	rootCmd.AddCommand(clearCmd)

	// checkout
	checkoutCmd := &cobra.Command{
		Use:   "checkout",
		Short: "Buy everything in the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.Checkout(cmd.Context())
			if err != nil {
				if domain.IsEmptyCartError(err) {
					printLatestNotification()
					return nil
				}
				return err
			}
			printLatestNotification()
			return printJSON(struct {
				OrderID   string      `json:"orderId"`
				ItemCount int         `json:"itemCount"`
				Lines     interface{} `json:"lines"`
				Totals    interface{} `json:"totals"`
			}{r.OrderID, r.ItemCount, r.Lines, r.Totals.Display()})
		},
	}
	rootCmd.AddCommand(checkoutCmd)

	// cart
	var cartOutput string
	cartCmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart and its totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := app.View()
			if cartOutput == "json" {
				return printJSON(v)
			}
			if len(v.Lines) == 0 {
				fmt.Println("cart is empty")
				return nil
			}
			for i, l := range v.Lines {
				fmt.Printf("%d | %s | %s | %s | %d | %s\n", i, l.DisplayName, l.Colour, l.Size, l.Qty, l.LineTotal().StringFixed(2))
			}
			fmt.Printf("items: %d\n", v.ItemCount)
			fmt.Printf("subtotal: %s\n", v.Totals.Subtotal)
			if v.Premium {
				fmt.Printf("premium discount: -%s\n", v.Totals.Discount)
			}
			shipping := v.Totals.Shipping
			if v.ShippingWaived {
				shipping += " (waived)"
			}
			fmt.Printf("shipping x%d: %s\n", v.ShippingUnits, shipping)
			fmt.Printf("total: %s\n", v.Totals.GrandTotal)
			return nil
		},
	}
	cartCmd.Flags().StringVar(&cartOutput, "output", "", "output format")
	rootCmd.AddCommand(cartCmd)

	// review
	var rName, rText string
	var rRating int
	reviewCmd := &cobra.Command{
		Use:   "review <id>",
		Short: "Review a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("id", args[0])
			if err != nil {
				return err
			}
			_, err = app.AddReview(cmd.Context(), id, review.Draft{Name: rName, Text: rText, Rating: rRating})
			if err != nil {
				if prompt, ok := storefront.PromptFor(err); ok {
					fmt.Fprintln(os.Stderr, prompt)
					return nil
				}
				return err
			}
			printLatestNotification()
			return nil
		},
	}
	reviewCmd.Flags().StringVar(&rName, "name", "", "your name")
	reviewCmd.Flags().StringVar(&rText, "text", "", "review text")
	reviewCmd.Flags().IntVar(&rRating, "rating", 0, "rating 1-5")
	rootCmd.AddCommand(reviewCmd)

	// reviews
	reviewsCmd := &cobra.Command{
		Use:   "reviews <id>",
		Short: "List a product's reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseInt("id", args[0])
			if err != nil {
				return err
			}
			rs, err := app.Reviews(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(rs)
		},
	}
	rootCmd.AddCommand(reviewsCmd)

	// tier
	tierCmd := &cobra.Command{
		Use:       "tier <premium|standard>",
		Short:     "Switch the shopper's pricing tier",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"premium", "standard"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.SetCustomerTier(args[0] == "premium")
			fmt.Println(args[0])
			return nil
		},
	}
	rootCmd.AddCommand(tierCmd)

	// theme
	themeCmd := &cobra.Command{
		Use:   "theme [light|dark]",
		Short: "Set or toggle the colour theme",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Println(app.ToggleTheme())
				return nil
			}
			if err := app.SetTheme(args[0]); err != nil {
				return err
			}
			fmt.Println(args[0])
			return nil
		},
	}
	rootCmd.AddCommand(themeCmd)

	// notifications
	notificationsCmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show the messages currently on screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, n := range app.Notifications() {
				fmt.Printf("[%s] %s\n", n.Severity, n.Message)
			}
			return nil
		},
	}
	rootCmd.AddCommand(notificationsCmd)
}

func selectionFlags(cmd *cobra.Command, colour, size, side *string, qty *int) {
	cmd.Flags().StringVar(colour, "colour", "", "colour")
	cmd.Flags().StringVar(size, "size", "", "size")
	cmd.Flags().StringVar(side, "side", "", "image side: front|back")
	cmd.Flags().IntVar(qty, "qty", 0, "quantity")
}

// applySelection applies the changed selection flags: variant, side, then
// quantity, so the quantity menu reflects the new variant.
func applySelection(cmd *cobra.Command, id int, colour, size, side string, qty int) (domain.Selection, error) {
	ctx := cmd.Context()
	sel, err := app.Selection(ctx, id)
	if err != nil {
		return domain.Selection{}, err
	}
	if cmd.Flags().Changed("colour") || cmd.Flags().Changed("size") {
		if cmd.Flags().Changed("colour") {
			sel.Colour = colour
		}
		if cmd.Flags().Changed("size") {
			sel.Size = size
		}
		if sel, err = app.SelectVariant(ctx, id, sel.Colour, sel.Size); err != nil {
			return domain.Selection{}, err
		}
	}
	if cmd.Flags().Changed("side") {
		if sel, err = app.SelectSide(ctx, id, side); err != nil {
			return domain.Selection{}, err
		}
	}
	if cmd.Flags().Changed("qty") {
		if sel, err = app.SelectQuantity(ctx, id, qty); err != nil {
			return domain.Selection{}, err
		}
	}
	return sel, nil
}

type selectionView struct {
	Colour string `json:"colour"`
	Size   string `json:"size"`
	Side   string `json:"side"`
	Qty    string `json:"qty"`
}

func newSelectionView(sel domain.Selection) selectionView {
	size := sel.Size
	if size == "" {
		size = "Size"
	}
	return selectionView{Colour: sel.Colour, Size: size, Side: sel.Side, Qty: sel.Qty.String()}
}

func printLatestNotification() {
	ns := app.Notifications()
	if len(ns) == 0 {
		return
	}
	n := ns[len(ns)-1]
	if n.Severity == notify.SeverityError {
		fmt.Fprintln(os.Stderr, n.Message)
		return
	}
	fmt.Println(n.Message)
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func parseInt(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, domain.NewValidationError(field, "must be an integer", s)
	}
	return n, nil
}

// resetFlags puts every flag back to its default so one shell line does not
// leak into the next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// Execute runs the root command and releases the session afterwards.
func Execute() error {
	defer func() {
		if app != nil {
			app.Close()
		}
		_ = log.Sync()
	}()
	return rootCmd.ExecuteContext(context.Background())
}
