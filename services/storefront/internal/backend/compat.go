package backend

// Слой совместимости с разными версиями ответов backend.
//
// Одно и то же поле в разных версиях API лежит под разными ключами
// ("orderId" / "_id" / "id", "data.orders" / "orders" / "data.docs").
// Функции First* перебирают фиксированный список путей по порядку
// и берут первое структурно подходящее значение. Остальной код работает
// только с нормализованными доменными типами.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

// Decode разбирает JSON в дерево map[string]any / []any.
// Числа остаются json.Number, чтобы не терять точность сумм.
func Decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("невалидный JSON: %w", err)
	}
	return root, nil
}

// Lookup проходит по пути "a.b.c". Пустой путь — сам root.
// null считается отсутствующим значением.
func Lookup(root any, path string) (any, bool) {
	if root == nil {
		return nil, false
	}
	if path == "" {
		return root, true
	}

	cur := root
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// FirstString возвращает первое непустое строковое значение.
// Числа и bool приводятся к строке (id бывает и числом).
func FirstString(root any, paths ...string) string {
	for _, p := range paths {
		v, ok := Lookup(root, p)
		if !ok {
			continue
		}
		switch x := v.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				return s
			}
		case json.Number:
			return x.String()
		case bool:
			return strconv.FormatBool(x)
		}
	}
	return ""
}

// FirstDecimal возвращает первое значение, которое разбирается как число.
// Принимает и число, и строку ("150", "150.00").
func FirstDecimal(root any, paths ...string) (decimal.Decimal, bool) {
	for _, p := range paths {
		v, ok := Lookup(root, p)
		if !ok {
			continue
		}
		var raw string
		switch x := v.(type) {
		case json.Number:
			raw = x.String()
		case string:
			raw = strings.TrimSpace(x)
		default:
			continue
		}
		if d, err := decimal.NewFromString(raw); err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}

// FirstInt — как FirstDecimal, но с отбрасыванием дробной части.
func FirstInt(root any, paths ...string) (int, bool) {
	d, ok := FirstDecimal(root, paths...)
	if !ok {
		return 0, false
	}
	return int(d.IntPart()), true
}

// FirstBool возвращает первое bool значение. Строки "true"/"false" тоже принимаются.
func FirstBool(root any, paths ...string) (bool, bool) {
	for _, p := range paths {
		v, ok := Lookup(root, p)
		if !ok {
			continue
		}
		switch x := v.(type) {
		case bool:
			return x, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

// FirstList возвращает первый массив. Пустой массив — тоже валидное совпадение.
func FirstList(root any, paths ...string) ([]any, bool) {
	for _, p := range paths {
		v, ok := Lookup(root, p)
		if !ok {
			continue
		}
		if list, ok := v.([]any); ok {
			return list, true
		}
	}
	return nil, false
}

// FirstMap возвращает первый объект.
func FirstMap(root any, paths ...string) (map[string]any, bool) {
	for _, p := range paths {
		v, ok := Lookup(root, p)
		if !ok {
			continue
		}
		if m, ok := v.(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

// Форматы дат, которые встречаются в ответах backend.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FirstTime возвращает первое значение, которое разбирается как время.
// Числа трактуются как unix время в секундах или миллисекундах.
func FirstTime(root any, paths ...string) (time.Time, bool) {
	for _, p := range paths {
		v, ok := Lookup(root, p)
		if !ok {
			continue
		}
		switch x := v.(type) {
		case string:
			s := strings.TrimSpace(x)
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC(), true
				}
			}
		case json.Number:
			n, err := x.Int64()
			if err != nil || n <= 0 {
				continue
			}
			if n > 1e12 {
				return time.UnixMilli(n).UTC(), true
			}
			return time.Unix(n, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// NormalizePagination собирает параметры страницы из ответа.
// page и limit — запрошенные значения, используются если backend их не вернул.
func NormalizePagination(root any, page, limit, count int) domain.Pagination {
	p := domain.Pagination{Page: page, Limit: limit, Total: int64(count)}

	if v, ok := FirstInt(root, "pagination.page", "pagination.currentPage", "page", "data.page"); ok && v > 0 {
		p.Page = v
	}
	if v, ok := FirstInt(root, "pagination.limit", "pagination.pageSize", "limit", "data.limit"); ok && v > 0 {
		p.Limit = v
	}
	if v, ok := FirstInt(root, "pagination.total", "pagination.totalItems", "total", "totalDocs", "data.total", "data.totalDocs"); ok {
		p.Total = int64(v)
	}
	if v, ok := FirstInt(root, "pagination.totalPages", "totalPages", "pages", "data.totalPages"); ok {
		p.TotalPages = v
	} else if p.Limit > 0 {
		p.TotalPages = int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return p
}
