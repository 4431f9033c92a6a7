package clients

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"foodorder/internal/models"
	"foodorder/internal/services"
)

// CatalogClient reads menu items from a remote catalog that serves
// GET {base}/restaurants/{restaurantId}/menu/{itemId}.
type CatalogClient struct {
	baseURL string
	http    *http.Client
}

// NewCatalogClient creates a new CatalogClient. The policy deadline applies per call;
// timeout only guards against a missing context deadline.
func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// GetMenuItem implements services.CatalogService.
func (c *CatalogClient) GetMenuItem(ctx context.Context, restaurantID, itemID string) (services.CatalogEntry, error) {
	endpoint := c.baseURL + "/restaurants/" + url.PathEscape(restaurantID) + "/menu/" + url.PathEscape(itemID)

	var item models.MenuItem
	if err := doJSON(ctx, c.http, "catalog", http.MethodGet, endpoint, nil, &item); err != nil {
		return services.CatalogEntry{}, err
	}
	if item.ID == "" {
		item.ID = itemID
	}
	return services.CatalogEntry{
		ItemID:       item.ID,
		RestaurantID: item.RestaurantID,
		Name:         item.Name,
		Category:     item.Category,
		Price:        item.Price,
		Available:    item.Available,
	}, nil
}
