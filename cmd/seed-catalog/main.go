package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/flashsale-storefront/internal/domain/product"
	"github.com/xenking/flashsale-storefront/internal/repository"
)

// seedWorkers bounds concurrent inserts; catalog dumps can run to hundreds of
// thousands of rows for the big sale events.
const seedWorkers = 8

type productJSON struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	PercentageOff decimal.Decimal `json:"percentageOff"`
	Stock         int             `json:"stock"`
	TotalStock    int             `json:"totalStock"`
	ImageLink     string          `json:"imageLink"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.gz supported)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products, err := readProducts(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products")
	}

	slog.Info("inserting products", slog.Int("count", len(products)))

	repo := repository.NewProductRepository(pool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedWorkers)
	for _, pj := range products {
		g.Go(func() error {
			p := &product.Product{
				Name:          pj.Name,
				Description:   pj.Description,
				Price:         pj.Price,
				PercentageOff: pj.PercentageOff,
				Stock:         pj.Stock,
				TotalStock:    pj.TotalStock,
				ImageLink:     pj.ImageLink,
			}
			id, err := repo.Insert(gctx, p)
			if err != nil {
				return errors.Wrapf(err, "insert product %q", pj.Name)
			}
			slog.Info("inserted product", slog.Int64("id", id), slog.String("name", pj.Name))
			return nil
		})
	}
	return g.Wait()
}

// readProducts loads the catalog dump, transparently decompressing gzip.
func readProducts(path string) ([]productJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip stream")
		}
		defer gz.Close()
		r = gz
	}

	var products []productJSON
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	return products, nil
}
