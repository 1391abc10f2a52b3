package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/zatekoja/marketdiscovery/internal/adapters/search"
	"github.com/zatekoja/marketdiscovery/internal/domain/entities"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/marketdiscovery/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/marketdiscovery/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	var index *search.TypesenseCatalog
	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err == nil {
		if err := tsClient.InitSchema(context.Background()); err != nil {
			log.Printf("Failed to init Typesense schema, seeding Postgres only: %v", err)
		} else {
			index = search.NewTypesenseCatalog(tsClient)
		}
	}

	ctx := context.Background()
	db := pgClient.DB()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := db.ExecContext(ctx, `
			TRUNCATE TABLE
				search_results,
				search_queries,
				search_sessions,
				interaction_events,
				recommendation_batches,
				trending_topics,
				products
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	now := time.Now().UTC()
	vendors := []string{"acme-electronics", "northwind-home", "trailhead-outdoors"}

	products := []entities.ProductSummary{
		{Name: "Wireless Noise Cancelling Headphones", Description: "Over-ear bluetooth headphones with 30 hour battery life", Category: "electronics", Price: 199.99, Rating: 4.6, ReviewCount: 2184, InStock: true, IsActive: true, VendorID: vendors[0], Tags: []string{"audio", "wireless", "bluetooth"}},
		{Name: "True Wireless Earbuds", Description: "Compact earbuds with charging case and water resistance", Category: "electronics", Price: 79.99, Rating: 4.3, ReviewCount: 5410, InStock: true, IsActive: true, VendorID: vendors[0], Tags: []string{"audio", "wireless", "earbuds"}},
		{Name: "14 Inch Ultrabook Laptop", Description: "Lightweight notebook with 16GB RAM and all-day battery", Category: "electronics", Price: 1099.00, Rating: 4.7, ReviewCount: 873, InStock: true, IsActive: true, VendorID: vendors[0], Tags: []string{"laptop", "notebook", "computer"}},
		{Name: "Smartphone Stand with Charger", Description: "Aluminium desk stand with built-in wireless charging", Category: "electronics", Price: 34.50, Rating: 4.1, ReviewCount: 640, InStock: true, IsActive: true, VendorID: vendors[0], Tags: []string{"phone", "charger", "desk"}},
		{Name: "Robot Vacuum Cleaner", Description: "Self-emptying robot vacuum with room mapping", Category: "home", Price: 449.00, Rating: 4.4, ReviewCount: 1522, InStock: true, IsActive: true, VendorID: vendors[1], Tags: []string{"vacuum", "cleaning", "smart-home"}},
		{Name: "Three Seat Fabric Sofa", Description: "Mid-century sofa with washable covers", Category: "home", Price: 899.00, Rating: 4.2, ReviewCount: 312, InStock: false, IsActive: true, VendorID: vendors[1], Tags: []string{"sofa", "couch", "living-room"}},
		{Name: "French Door Refrigerator", Description: "Energy efficient fridge with ice maker", Category: "home", Price: 1650.00, Rating: 4.5, ReviewCount: 208, InStock: true, IsActive: true, VendorID: vendors[1], Tags: []string{"fridge", "refrigerator", "kitchen"}},
		{Name: "Cast Iron Dutch Oven", Description: "Enamelled 5.5 quart dutch oven for slow cooking", Category: "kitchen", Price: 89.95, Rating: 4.8, ReviewCount: 4021, InStock: true, IsActive: true, VendorID: vendors[1], Tags: []string{"cookware", "kitchen"}},
		{Name: "Trail Running Sneakers", Description: "Grippy trail trainers with rock plate", Category: "sports", Price: 129.95, Rating: 4.5, ReviewCount: 987, InStock: true, IsActive: true, VendorID: vendors[2], Tags: []string{"sneakers", "running", "trail"}},
		{Name: "Hiking Backpack 40L", Description: "Ventilated rucksack with rain cover", Category: "sports", Price: 149.00, Rating: 4.6, ReviewCount: 754, InStock: true, IsActive: true, VendorID: vendors[2], Tags: []string{"backpack", "hiking", "outdoors"}},
		{Name: "Commuter Bicycle", Description: "Eight speed city bike with belt drive", Category: "sports", Price: 720.00, Rating: 4.3, ReviewCount: 156, InStock: true, IsActive: true, VendorID: vendors[2], Tags: []string{"bike", "bicycle", "commute"}},
		{Name: "Kids Balance Bike", Description: "Lightweight first bike for children aged two to five", Category: "sports", Price: 95.00, Rating: 4.7, ReviewCount: 431, InStock: true, IsActive: false, VendorID: vendors[2], Tags: []string{"kids", "bike", "children"}},
	}

	seeded := 0
	for i := range products {
		p := &products[i]
		p.ID = uuid.New().String()
		// Stagger creation dates so recency scoring has something to rank.
		p.CreatedAt = now.AddDate(0, 0, -(i * 11))

		_, err := db.ExecContext(ctx, `
			INSERT INTO products (id, name, description, category, price, rating, review_count, in_stock, is_active, vendor_id, tags, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Name, p.Description, p.Category, p.Price, p.Rating, p.ReviewCount,
			p.InStock, p.IsActive, p.VendorID, pq.Array(p.Tags), p.CreatedAt,
		)
		if err != nil {
			log.Printf("Failed to create product %s: %v", p.Name, err)
			continue
		}
		seeded++

		if index != nil {
			if err := index.Index(ctx, p); err != nil {
				log.Printf("Failed to index product %s: %v", p.Name, err)
			}
		}
	}

	log.Printf("Seeding completed: %d products across %d vendors", seeded, len(vendors))
}
