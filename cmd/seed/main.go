package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pasticeri/api/internal/config"
	"github.com/pasticeri/api/internal/enum"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type starterProduct struct {
	name        string
	category    string
	description string
	price       string
	priceType   string
}

var starterCatalog = []starterProduct{
	{"Croissant", "viennoiserie", "Butter croissant baked every morning", "1.80", "per piece"},
	{"Pain au chocolat", "viennoiserie", "Laminated dough with dark chocolate", "2.10", "per piece"},
	{"Sourdough loaf", "bread", "Naturally leavened country loaf", "6.50", "per loaf"},
	{"Tiramisu", "cakes", "Mascarpone, espresso and savoiardi", "4.50", "per person"},
	{"Cheesecake", "cakes", "Baked vanilla cheesecake", "4.00", "per person"},
	{"Cannolo", "pastry", "Ricotta cream, candied orange", "2.80", "per piece"},
}

func main() {
	email := flag.String("email", "", "Admin email address")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin display name")
	withCatalog := flag.Bool("catalog", true, "Seed the starter product catalog")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Fall back to defaults
	if *email == "" {
		*email = cfg.AdminEmail
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}
	if *name == "" {
		*name = "Bakery Admin"
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Admin and catalog are seeded together or not at all.
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	adminID, err := seedAdmin(ctx, tx, *email, *password, *name)
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	created := 0
	if *withCatalog {
		created, err = seedCatalog(ctx, tx)
		if err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Admin ID: %s", adminID)
	log.Printf("Products created: %d", created)
}

// seedAdmin creates the admin account, or promotes it if it already exists.
func seedAdmin(ctx context.Context, tx pgx.Tx, email, password, name string) (uuid.UUID, error) {
	var existingID uuid.UUID
	var role string
	err := tx.QueryRow(ctx, `SELECT id, role FROM users WHERE lower(email) = lower($1) LIMIT 1`, email).Scan(&existingID, &role)
	if err == nil {
		if role != enum.UserRoleAdmin {
			if _, err := tx.Exec(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, existingID, enum.UserRoleAdmin); err != nil {
				return uuid.Nil, fmt.Errorf("promote user: %w", err)
			}
			log.Printf("Promoted existing user '%s' to ADMIN", email)
		} else {
			log.Printf("Admin '%s' already exists (ID: %s), skipping", email, existingID)
		}
		return existingID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}

	var newID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO users (name, email, hashed_password, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, name, email, string(hashed), enum.UserRoleAdmin).Scan(&newID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}

	log.Printf("Created admin user '%s' (ID: %s)", email, newID)
	return newID, nil
}

// seedCatalog inserts starter products that are not present yet, matched by name.
func seedCatalog(ctx context.Context, tx pgx.Tx) (int, error) {
	created := 0
	for _, p := range starterCatalog {
		d, err := decimal.NewFromString(p.price)
		if err != nil {
			return created, fmt.Errorf("price for %s: %w", p.name, err)
		}
		var price pgtype.Numeric
		if err := price.Scan(d.StringFixed(2)); err != nil {
			return created, fmt.Errorf("price for %s: %w", p.name, err)
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO products (name, category, description, price, price_type)
			SELECT $1::text, $2::text, $3::text, $4::numeric, $5::text
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $1)
		`, p.name, p.category, p.description, price, p.priceType)
		if err != nil {
			return created, fmt.Errorf("insert %s: %w", p.name, err)
		}
		if tag.RowsAffected() == 1 {
			created++
		} else {
			log.Printf("Product '%s' already exists, skipping", p.name)
		}
	}
	return created, nil
}
