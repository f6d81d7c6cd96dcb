package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

const defaultCurrency = "INR"

var receiptTemplate = template.Must(template.New("receipt").Parse(`{{.Store}}
ЧЕК ПО ЗАКАЗУ
========================================
Номер заказа:   {{.Number}}
Дата:           {{.Date}}
{{- if .Game}}
Игра:           {{.Game}}
{{- end}}
{{- if .Package}}
Пакет:          {{.Package}}
{{- end}}
ID игрока:      {{.PlayerID}}
{{- if .ZoneID}}
Zone ID:        {{.ZoneID}}
{{- end}}
{{- if .Server}}
Сервер:         {{.Server}}
{{- end}}
Способ оплаты:  {{.PaymentMethod}}
Статус:         {{.Status}}
{{- if .Items}}
----------------------------------------
{{- range .Items}}
{{.Name}} x{{.Quantity}}  {{.Price}}
{{- end}}
{{- end}}
----------------------------------------
Итого:          {{.Total}}
{{- if .Description}}

{{.Description}}
{{- end}}
{{- if .Support}}

Поддержка: {{.Support}}
{{- end}}
`))

type receiptItem struct {
	Name     string
	Quantity int
	Price    string
}

type receiptView struct {
	Store         string
	Number        string
	Date          string
	Game          string
	Package       string
	PlayerID      string
	ZoneID        string
	Server        string
	PaymentMethod string
	Status        string
	Items         []receiptItem
	Total         string
	Description   string
	Support       string
}

// Formatter формирует текстовый чек. Результат зависит только от заказа.
type Formatter struct {
	Store   string
	Support string
}

// Render формирует чек по нормализованному заказу.
func (f Formatter) Render(order domain.Order) (string, error) {
	currency := order.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	view := receiptView{
		Store:         f.Store,
		Number:        order.DisplayNumber(),
		Date:          formatDate(order.CreatedAt),
		Game:          order.GameName,
		Package:       order.PackageName,
		PlayerID:      orDash(order.Identity.PlayerID),
		ZoneID:        order.Identity.ZoneID,
		Server:        order.Identity.Server,
		PaymentMethod: paymentMethodLabel(order.PaymentMethod),
		Status:        statusLabel(order),
		Total:         money(order.Amount, currency),
		Description:   order.Description,
		Support:       f.Support,
	}
	for _, it := range order.Items {
		view.Items = append(view.Items, receiptItem{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    money(it.Price, currency),
		})
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("ошибка формирования чека: %w", err)
	}
	return buf.String(), nil
}

// FileName — имя файла чека для скачивания.
func FileName(order domain.Order) string {
	number := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' || r == '"' {
			return '_'
		}
		return r
	}, order.DisplayNumber())
	return "receipt-" + number + ".txt"
}

func money(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + currency
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func paymentMethodLabel(m domain.PaymentMethod) string {
	switch m {
	case domain.PaymentMethodWallet:
		return "Кошелёк"
	case domain.PaymentMethodUPI:
		return "UPI"
	case "":
		return "-"
	}
	return string(m)
}

var orderStatusLabels = map[domain.OrderStatus]string{
	domain.OrderStatusInitiated:  "Создан",
	domain.OrderStatusPending:    "Ожидает оплаты",
	domain.OrderStatusProcessing: "Выполняется",
	domain.OrderStatusCompleted:  "Выполнен",
	domain.OrderStatusFailed:     "Не выполнен",
	domain.OrderStatusRefunded:   "Возвращён",
}

func statusLabel(order domain.Order) string {
	if label, ok := orderStatusLabels[order.Status]; ok {
		return label
	}
	return orDash(string(order.Status))
}
