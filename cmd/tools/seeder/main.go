// Seeder loads a starter dataset: an admin account, a small greengrocer
// catalog, and opening stock. Safe to re-run; duplicates are skipped.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/shopspring/decimal"

	"github.com/kasapos/backend-kasa/internal/common"
	"github.com/kasapos/backend-kasa/internal/config"
	"github.com/kasapos/backend-kasa/internal/db"
	"github.com/kasapos/backend-kasa/internal/store"
	"github.com/kasapos/backend-kasa/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, "kasa-seeder")
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	st := postgres.New(pool)

	admin := seedAdmin(ctx, st)
	seedCatalog(ctx, st, admin)

	log.Println("seeding complete")
}

func seedAdmin(ctx context.Context, st store.Store) store.User {
	existing, err := st.GetUserByUsername(ctx, "admin")
	if err == nil {
		log.Println("admin account already present")
		return existing
	}
	if !errors.Is(err, store.ErrNotFound) {
		log.Fatalf("look up admin: %v", err)
	}
	hash, err := argon2id.CreateHash("admin12345", argon2id.DefaultParams)
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}
	admin, err := st.CreateUser(ctx, store.User{
		Email:          "admin@kasa.local",
		Username:       "admin",
		FullName:       "Administrator",
		Role:           common.RoleAdmin,
		Status:         store.UserActive,
		HashedPassword: hash,
	})
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}
	log.Println("created admin account (password admin12345, change it)")
	return admin
}

type seedItem struct {
	name     string
	sku      string
	unitType string
	price    string
	taxRate  string
	stock    string
}

func seedCatalog(ctx context.Context, st store.Store, admin store.User) {
	catalog := map[string][]seedItem{
		"Fruit": {
			{"Apples", "FR-APPLE", "kg", "2.40", "1.00", "120"},
			{"Bananas", "FR-BANANA", "kg", "1.80", "1.00", "80"},
			{"Lemons", "FR-LEMON", "kg", "3.10", "1.00", "45"},
		},
		"Vegetables": {
			{"Tomatoes", "VG-TOMATO", "kg", "2.90", "1.00", "90"},
			{"Cucumbers", "VG-CUCUMBER", "kg", "1.95", "1.00", "60"},
			{"Potatoes", "VG-POTATO", "kg", "1.20", "1.00", "200"},
		},
		"Drinks": {
			{"Espresso", "DR-ESPRESSO", "piece", "1.50", "10.00", "500"},
			{"Fresh Orange Juice", "DR-OJ", "piece", "3.50", "10.00", "100"},
			{"Sparkling Water", "DR-WATER", "piece", "1.00", "10.00", "240"},
		},
	}

	for categoryName, items := range catalog {
		category, err := st.CreateCategory(ctx, store.Category{
			Name:      categoryName,
			CreatedBy: admin.ID,
			UpdatedBy: admin.ID,
		})
		if errors.Is(err, store.ErrDuplicate) {
			log.Printf("category %s already present, skipping its items", categoryName)
			continue
		}
		if err != nil {
			log.Fatalf("create category %s: %v", categoryName, err)
		}
		for _, si := range items {
			price, _ := decimal.NewFromString(si.price)
			tax, _ := decimal.NewFromString(si.taxRate)
			qty, _ := decimal.NewFromString(si.stock)
			err := st.Atomic(ctx, func(tx store.Store) error {
				item, err := tx.CreateItem(ctx, store.Item{
					CategoryID: category.ID,
					Name:       si.name,
					SKU:        si.sku,
					UnitPrice:  price,
					UnitType:   si.unitType,
					TaxRate:    tax,
					CreatedBy:  admin.ID,
					UpdatedBy:  admin.ID,
				})
				if err != nil {
					return err
				}
				if _, err := tx.CreateStockEntry(ctx, store.StockEntry{
					ItemID:    item.ID,
					Quantity:  qty,
					CreatedBy: admin.ID,
					UpdatedBy: admin.ID,
				}); err != nil {
					return err
				}
				return nil
			})
			if errors.Is(err, store.ErrDuplicate) {
				log.Printf("item %s already present", si.sku)
				continue
			}
			if err != nil {
				log.Fatalf("create item %s: %v", si.sku, err)
			}
		}
		log.Printf("seeded category %s with %d items", categoryName, len(items))
	}
}
