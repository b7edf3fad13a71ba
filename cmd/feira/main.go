// Command feira is a CLI client for the Feira marketplace API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/feiralivre/feira/internal/api"
	"github.com/feiralivre/feira/internal/config"
	"github.com/feiralivre/feira/internal/controller"
	"github.com/feiralivre/feira/internal/errs"
	"github.com/feiralivre/feira/internal/model"
	"github.com/feiralivre/feira/internal/service"
	"github.com/feiralivre/feira/internal/tokenstore"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `feira CLI
Usage:
  feira [-config file] [-base url] [-v] <cmd> [args]

Commands:
  version
  login        -email <email> -p <password>        (saves token)
  logout
  profile
  categories
  products     [-page N] [-limit N] [-category id] [-min N] [-max N] [-q term]
  browse       [-q term] [-category id] [-min N] [-max N] [-all]
  product      -id <id>
  by-price     [-min N] [-max N] [-page N] [-limit N]
  by-category  -id <id>
  seller       -id <userId>
  cart
  cart-add     -id <productId> [-qty N]
  cart-rm      -id <productId>
  cart-qty     -id <productId> -qty N
  checkout
`)
	os.Exit(2)
}

// app bundles everything a subcommand needs.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	tokens  *tokenstore.Store
	auth    service.AuthService
	catalog service.CatalogService
	cart    service.CartService
}

func newApp(cfgPath, baseOverride string, verbose bool) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if baseOverride != "" {
		cfg.BaseURL = baseOverride
	}

	log := zap.NewNop()
	if verbose {
		log, _ = zap.NewDevelopment()
	}

	tokens := tokenstore.New(cfg.DataDir)
	client, err := api.New(cfg.BaseURL, tokens, log, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:     cfg,
		log:     log,
		tokens:  tokens,
		auth:    service.NewAuthService(client, tokens, log),
		catalog: service.NewCatalogService(client, log),
		cart:    service.NewCartService(client, log),
	}, nil
}

func main() {
	cfgPath := flag.String("config", "", "config file (YAML), optional")
	base := flag.String("base", "", "override API base URL")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	if cmd == "version" {
		fmt.Printf("feira %s (%s)\n", version, buildDate)
		return
	}

	a, err := newApp(*cfgPath, *base, *verbose)
	if err != nil {
		fail(err)
	}
	defer func() { _ = a.log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch cmd {

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account e-mail")
		password := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *email == "" || *password == "" {
			fmt.Fprintln(os.Stderr, "need -email and -p")
			os.Exit(1)
		}
		user, err := a.auth.Login(ctx, *email, *password)
		if err != nil {
			fail(err)
		}
		fmt.Printf("ok: logado como %s\n", user.Username)

	case "logout":
		if err := a.auth.Logout(ctx); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "profile":
		user, err := a.auth.Profile(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(user)

	case "categories":
		categories, err := a.catalog.Categories(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(categories)

	case "products":
		fs := flag.NewFlagSet("products", flag.ExitOnError)
		page := fs.Int("page", 1, "page (1-based)")
		limit := fs.Int("limit", a.cfg.PageSize, "page size")
		filter := filterFlags(fs)
		_ = fs.Parse(args)
		result, err := a.catalog.Products(ctx, *page, *limit, filter())
		if err != nil {
			fail(err)
		}
		printJSON(result)

	case "browse":
		fs := flag.NewFlagSet("browse", flag.ExitOnError)
		all := fs.Bool("all", false, "fetch every page")
		filter := filterFlags(fs)
		_ = fs.Parse(args)

		ctl := controller.NewCatalog(a.catalog, a.cfg.PageSize, a.log)
		if f := filter(); f != nil {
			ctl.ApplyFilters(*f)
		}
		if err := ctl.Load(ctx); err != nil {
			fail(err)
		}
		if *all {
			for !ctl.EndOfList() {
				if err := ctl.LoadMore(ctx); err != nil {
					fail(err)
				}
			}
		}
		visible := ctl.Visible()
		fmt.Printf("%d produtos encontrados\n", len(visible))
		printJSON(visible)

	case "product":
		fs := flag.NewFlagSet("product", flag.ExitOnError)
		id := fs.String("id", "", "product id")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		detail, err := a.catalog.ProductByID(ctx, *id)
		if err != nil {
			fail(err)
		}
		printJSON(detail)

	case "by-price":
		fs := flag.NewFlagSet("by-price", flag.ExitOnError)
		min := fs.Float64("min", -1, "minimum price")
		max := fs.Float64("max", -1, "maximum price")
		page := fs.Int("page", 1, "page (1-based)")
		limit := fs.Int("limit", a.cfg.PageSize, "page size")
		_ = fs.Parse(args)
		result, err := a.catalog.ProductsByPriceRange(ctx, optFloat(*min), optFloat(*max), *page, *limit)
		if err != nil {
			fail(err)
		}
		printJSON(result)

	case "by-category":
		fs := flag.NewFlagSet("by-category", flag.ExitOnError)
		id := fs.String("id", "", "category id")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		products, err := a.catalog.ProductsByCategory(ctx, *id)
		if err != nil {
			fail(err)
		}
		printJSON(products)

	case "seller":
		fs := flag.NewFlagSet("seller", flag.ExitOnError)
		id := fs.String("id", "", "user id")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		products, err := a.catalog.ProductsByUser(ctx, *id)
		if err != nil {
			fail(err)
		}
		printJSON(products)

	case "cart":
		ctl := controller.NewCart(a.cart, a.tokens, a.log)
		if err := ctl.Load(ctx); err != nil {
			fail(err)
		}
		lines := ctl.Lines()
		if len(lines) == 0 {
			fmt.Println("Seu carrinho está vazio")
			return
		}
		printJSON(lines)
		fmt.Printf("total: %.2f\n", ctl.Total())

	case "cart-add":
		fs := flag.NewFlagSet("cart-add", flag.ExitOnError)
		id := fs.String("id", "", "product id")
		qty := fs.Int("qty", 1, "quantity (>= 1)")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		if *qty < 1 {
			fmt.Fprintln(os.Stderr, "-qty must be at least 1")
			os.Exit(1)
		}
		out, err := a.cart.Add(ctx, *id, *qty)
		if err != nil {
			fail(err)
		}
		printRaw(out)

	case "cart-rm":
		fs := flag.NewFlagSet("cart-rm", flag.ExitOnError)
		id := fs.String("id", "", "product id")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		out, err := a.cart.Remove(ctx, *id)
		if err != nil {
			fail(err)
		}
		printRaw(out)

	case "cart-qty":
		fs := flag.NewFlagSet("cart-qty", flag.ExitOnError)
		id := fs.String("id", "", "product id")
		qty := fs.Int("qty", 0, "new quantity (>= 1)")
		_ = fs.Parse(args)
		if *id == "" || *qty < 1 {
			fmt.Fprintln(os.Stderr, "need -id and -qty >= 1")
			os.Exit(1)
		}
		out, err := a.cart.UpdateQuantity(ctx, *id, *qty)
		if err != nil {
			fail(err)
		}
		printRaw(out)

	case "checkout":
		ctl := controller.NewCart(a.cart, a.tokens, a.log)
		if err := ctl.Load(ctx); err != nil {
			fail(err)
		}
		if err := ctl.Checkout(ctx); err != nil {
			fail(err)
		}
		fmt.Println("ok: pedido finalizado")

	default:
		usage()
	}
}

// ---- helpers ----

// filterFlags registers the shared filter flags and returns a builder that
// yields nil when no dimension was set.
func filterFlags(fs *flag.FlagSet) func() *model.Filter {
	category := fs.String("category", "", "category id")
	min := fs.Float64("min", -1, "minimum price")
	max := fs.Float64("max", -1, "maximum price")
	q := fs.String("q", "", "free-text search")
	return func() *model.Filter {
		f := model.Filter{
			MinPrice: optFloat(*min),
			MaxPrice: optFloat(*max),
			Search:   *q,
		}
		if *category != "" {
			f.CategoryID = category
		}
		if f.IsZero() {
			return nil
		}
		return &f
	}
}

// optFloat treats negative flag values as "not set"; prices are non-negative.
func optFloat(v float64) *float64 {
	if v < 0 {
		return nil
	}
	return &v
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printRaw(raw json.RawMessage) {
	if len(raw) == 0 {
		fmt.Println("ok")
		return
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	printJSON(v)
}

func fail(err error) {
	if errors.Is(err, errs.ErrNoToken) {
		fmt.Fprintln(os.Stderr, "faça login primeiro (feira login -email ... -p ...)")
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
