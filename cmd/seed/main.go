package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/bookbarn/api/internal/config"
	"github.com/bookbarn/api/internal/database"
	"github.com/bookbarn/api/internal/enum"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Seeds an admin user, a small catalog and a welcome promo so a fresh
// database is usable immediately.
func main() {
	adminEmail := flag.String("admin-email", "admin@bookbarn.example", "admin login email")
	adminPassword := flag.String("admin-password", "", "admin login password (required)")
	flag.Parse()

	if *adminPassword == "" {
		log.Fatal("missing required flag: -admin-password")
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	q := database.New(tx)

	hash, err := bcrypt.GenerateFromPassword([]byte(*adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}

	admin, err := q.CreateUser(ctx, database.CreateUserParams{
		Email:        *adminEmail,
		PasswordHash: string(hash),
		FullName:     "Store Admin",
		Role:         enum.UserRoleAdmin,
	})
	if err != nil {
		log.Fatalf("create admin user: %v", err)
	}
	log.Printf("created admin user %s (%s)", admin.Email, admin.ID)

	books := []database.CreateProductParams{
		{
			Title:         "The Go Programming Language",
			Author:        "Alan A. A. Donovan",
			Price:         numeric("54.99"),
			StockQuantity: 25,
			Status:        enum.ProductStatusActive,
		},
		{
			Title:         "Designing Data-Intensive Applications",
			Author:        "Martin Kleppmann",
			Price:         numeric("44.50"),
			OfferPrice:    numeric("39.99"),
			StockQuantity: 18,
			Status:        enum.ProductStatusActive,
		},
		{
			Title:         "A Tour of C++",
			Author:        "Bjarne Stroustrup",
			Price:         numeric("49.00"),
			StockQuantity: 10,
			Status:        enum.ProductStatusActive,
		},
	}
	for _, b := range books {
		p, err := q.CreateProduct(ctx, b)
		if err != nil {
			log.Fatalf("create product %q: %v", b.Title, err)
		}
		log.Printf("created product %q (%s)", p.Title, p.ID)
	}

	promo, err := q.CreatePromoCode(ctx, database.CreatePromoCodeParams{
		Code:          "WELCOME10",
		DiscountType:  enum.DiscountTypePercentage,
		DiscountValue: numeric("10"),
		StartDate:     pgtype.Timestamptz{Time: time.Now(), Valid: true},
		EndDate:       pgtype.Timestamptz{Time: time.Now().AddDate(0, 3, 0), Valid: true},
		Status:        enum.PromoStatusActive,
	})
	if err != nil {
		log.Fatalf("create promo code: %v", err)
	}
	log.Printf("created promo code %s (%s)", promo.Code, promo.ID)

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit tx: %v", err)
	}
	log.Println("seed complete")
}

func numeric(s string) pgtype.Numeric {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatalf("invalid decimal %q: %v", s, err)
	}
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
