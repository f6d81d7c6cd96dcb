// Package receipt — нормализация истории заказов и текстовый чек.
package receipt

import (
	"fmt"

	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/domain"
)

// listPaths — места, где разные версии backend кладут список заказов.
var listPaths = []string{"orders", "data.orders", "data.docs", "docs", "data", "result.orders", "result"}

// NormalizeOrders разбирает ответ истории заказов.
// Берётся первое найденное место со списком; заказы без идентификатора пропускаются.
func NormalizeOrders(raw []byte, page, limit int) ([]domain.Order, domain.Pagination, error) {
	root, err := backend.Decode(raw)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("ответ истории заказов: %w", err)
	}

	var items []any
	if list, ok := root.([]any); ok {
		items = list
	} else if list, ok := backend.FirstList(root, listPaths...); ok {
		items = list
	}

	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		if _, ok := item.(map[string]any); !ok {
			continue
		}
		order := backend.NormalizeOrder(item)
		if order.ID == "" {
			continue
		}
		orders = append(orders, order)
	}

	return orders, backend.NormalizePagination(root, page, limit, len(orders)), nil
}

// FindOrder ищет заказ по id или номеру.
func FindOrder(orders []domain.Order, id string) (domain.Order, bool) {
	for _, o := range orders {
		if o.ID == id || (o.OrderNumber != "" && o.OrderNumber == id) {
			return o, true
		}
	}
	return domain.Order{}, false
}
