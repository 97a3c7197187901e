package recommendation

import (
	"math"
	"strings"
	"time"

	"innsight/backend/internal/domain"
)

// orderFact is one line item flattened out of an order, the unit the
// analyzer consumes.
type orderFact struct {
	productID   string
	productName string
	category    string
	description string
	imageURL    string
	unitPrice   float64
	quantity    int
	orderID     string
	orderNumber string
	orderDate   time.Time
}

// flattenOrders emits one fact per line item. Items without a product id
// cannot be aggregated and are dropped; malformed numeric fields are
// coerced to zero rather than failing the run, which skews totals but not
// frequency. This leniency is deliberate for recommendation output and must
// not be copied into billing paths.
func flattenOrders(orders []domain.OrderRecord) []orderFact {
	capacity := 0
	for _, order := range orders {
		capacity += len(order.Items)
	}

	facts := make([]orderFact, 0, capacity)
	for _, order := range orders {
		for _, item := range order.Items {
			productID := strings.TrimSpace(item.ProductID)
			if productID == "" {
				continue
			}
			facts = append(facts, orderFact{
				productID:   productID,
				productName: item.ProductName,
				category:    item.Category,
				description: item.Description,
				imageURL:    item.ImageURL,
				unitPrice:   sanePrice(item.UnitPrice),
				quantity:    saneQuantity(item.Quantity),
				orderID:     order.ID,
				orderNumber: order.OrderNumber,
				orderDate:   order.CreatedAt,
			})
		}
	}
	return facts
}

func sanePrice(price float64) float64 {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0
	}
	return price
}

func saneQuantity(qty int) int {
	if qty < 0 {
		return 0
	}
	return qty
}
