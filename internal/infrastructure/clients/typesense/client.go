package typesense

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/marketdiscovery/pkg/config"
	"github.com/zatekoja/marketdiscovery/pkg/retry"
)

const (
	ProductsCollection = "products"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	// Test connection with retry
	retryConfig := retry.DefaultConfig()
	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Printf("Typesense connection attempt %d failed: %v. Retrying in %v...", attempt, err, nextDelay)
		},
	)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Println("Successfully connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the products collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == ProductsCollection {
			log.Println("Typesense collection 'products' already exists")
			return nil
		}
	}

	schema := &api.CollectionSchema{
		Name: ProductsCollection,
		Fields: []api.Field{
			{
				Name: "id",
				Type: "string",
			},
			{
				Name: "name",
				Type: "string",
			},
			{
				Name:     "description",
				Type:     "string",
				Optional: pointer.True(),
			},
			{
				Name:  "category",
				Type:  "string",
				Facet: pointer.True(),
			},
			{
				Name:  "price",
				Type:  "float",
				Facet: pointer.True(),
			},
			{
				Name:  "rating",
				Type:  "float",
				Facet: pointer.True(),
			},
			{
				Name: "review_count",
				Type: "int32",
			},
			{
				Name: "in_stock",
				Type: "bool",
			},
			{
				Name: "is_active",
				Type: "bool",
			},
			{
				Name:  "vendor_id",
				Type:  "string",
				Facet: pointer.True(),
			},
			{
				Name:     "tags",
				Type:     "string[]",
				Facet:    pointer.True(),
				Optional: pointer.True(),
			},
			{
				Name: "created_at",
				Type: "int64",
			},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	_, err = c.client.Collections().Create(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Println("Created Typesense collection 'products'")
	return nil
}

// DropCollection deletes the products collection if it exists
func (c *Client) DropCollection(ctx context.Context) error {
	_, err := c.client.Collection(ProductsCollection).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}
