package main

import (
	"context"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedUsers(ctx, pool)
	seedCatalog(ctx, pool)
	seedPromos(ctx, pool)
	seedPlans(ctx, pool)
	seedPages(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedUsers(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding users...")
	users := []struct {
		Email    string
		Password string
		Role     string
	}{
		{"admin@comptamatch.fr", "admin-password-123", "admin"},
		{"test@comptamatch.fr", "test-password-123", "customer"},
		{"marie.dupont@example.fr", "password-123456", "customer"},
		{"jean.martin@example.fr", "password-123456", "customer"},
	}
	for _, u := range users {
		hash, err := argon2id.CreateHash(u.Password, argon2id.DefaultParams)
		if err != nil {
			log.Fatalf("Failed to hash password for %s: %v", u.Email, err)
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, role)
			VALUES (gen_random_uuid(), $1, $2, $3)
			ON CONFLICT (email) DO NOTHING`, u.Email, hash, u.Role)
		if err != nil {
			log.Printf("Failed to seed user %s: %v", u.Email, err)
		}
	}
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding categories...")
	categories := []struct {
		Name string
		Slug string
	}{
		{"Logiciels", "logiciels"},
		{"Formations", "formations"},
		{"Services", "services"},
	}
	for _, c := range categories {
		_, err := pool.Exec(ctx, `
			INSERT INTO categories (id, name, slug)
			VALUES (gen_random_uuid(), $1, $2)
			ON CONFLICT (slug) DO NOTHING`, c.Name, c.Slug)
		if err != nil {
			log.Printf("Failed to seed category %s: %v", c.Slug, err)
		}
	}

	log.Println("Seeding products...")
	products := []struct {
		Title        string
		Slug         string
		PriceCents   int64
		CategorySlug string
	}{
		{"ComptaMatch Essentiel", "comptamatch-essentiel", 29900, "logiciels"},
		{"ComptaMatch Pro", "comptamatch-pro", 59900, "logiciels"},
		{"Module Liasse fiscale", "module-liasse-fiscale", 19900, "logiciels"},
		{"Formation prise en main", "formation-prise-en-main", 15000, "formations"},
		{"Formation bilan annuel", "formation-bilan-annuel", 25000, "formations"},
		{"Accompagnement migration", "accompagnement-migration", 49000, "services"},
	}
	for _, p := range products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, title, slug, price_cents, category_id, is_active)
			SELECT gen_random_uuid(), $1, $2, $3, c.id, TRUE
			FROM categories c WHERE c.slug = $4
			ON CONFLICT (slug) DO NOTHING`, p.Title, p.Slug, p.PriceCents, p.CategorySlug)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Slug, err)
		}
	}
}

func seedPromos(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding promo codes...")
	promos := []struct {
		Code         string
		TargetType   string
		DiscountType string
		Value        int64
		CategorySlug string
	}{
		{"BIENVENUE10", "ALL", "PERCENT", 10, ""},
		{"COMPTA20", "CATEGORY", "PERCENT", 20, "logiciels"},
		{"FORMATION50", "CATEGORY", "AMOUNT", 5000, "formations"},
	}
	for _, p := range promos {
		var err error
		if p.CategorySlug == "" {
			_, err = pool.Exec(ctx, `
				INSERT INTO promo_codes (id, code, target_type, discount_type, discount_value, is_active)
				VALUES (gen_random_uuid(), $1, $2, $3, $4, TRUE)
				ON CONFLICT (code) DO NOTHING`, p.Code, p.TargetType, p.DiscountType, p.Value)
		} else {
			_, err = pool.Exec(ctx, `
				INSERT INTO promo_codes (id, code, target_type, discount_type, discount_value, product_category_id, is_active)
				SELECT gen_random_uuid(), $1, $2, $3, $4, c.id, TRUE
				FROM categories c WHERE c.slug = $5
				ON CONFLICT (code) DO NOTHING`, p.Code, p.TargetType, p.DiscountType, p.Value, p.CategorySlug)
		}
		if err != nil {
			log.Printf("Failed to seed promo %s: %v", p.Code, err)
		}
	}
}

func seedPlans(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding plans...")
	plans := []struct {
		Slug       string
		Name       string
		PriceCents int64
		Interval   string
		Features   string
	}{
		{"decouverte", "Découverte", 0, "month", `["1 dossier", "Support par email"]`},
		{"independant", "Indépendant", 1900, "month", `["5 dossiers", "Liasse fiscale", "Support prioritaire"]`},
		{"cabinet", "Cabinet", 9900, "month", `["Dossiers illimités", "Multi-collaborateurs", "Support dédié"]`},
	}
	for _, p := range plans {
		_, err := pool.Exec(ctx, `
			INSERT INTO plans (id, slug, name, price_cents, billing_interval, features, is_active)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, TRUE)
			ON CONFLICT (slug) DO NOTHING`, p.Slug, p.Name, p.PriceCents, p.Interval, p.Features)
		if err != nil {
			log.Printf("Failed to seed plan %s: %v", p.Slug, err)
		}
	}
}

func seedPages(ctx context.Context, pool *pgxpool.Pool) {
	log.Println("Seeding pages...")
	pages := []struct {
		Slug   string
		Title  string
		Blocks string
	}{
		{"mentions-legales", "Mentions légales", `[{"type":"text","value":"ComptaMatch SAS, 10 rue de la Paix, 75002 Paris."}]`},
		{"cgv", "Conditions générales de vente", `[{"type":"text","value":"Les présentes conditions régissent les ventes du site."}]`},
	}
	for _, p := range pages {
		_, err := pool.Exec(ctx, `
			INSERT INTO pages (id, slug, title, blocks, published)
			VALUES (gen_random_uuid(), $1, $2, $3, TRUE)
			ON CONFLICT (slug) DO NOTHING`, p.Slug, p.Title, p.Blocks)
		if err != nil {
			log.Printf("Failed to seed page %s: %v", p.Slug, err)
		}
	}
}
