package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

// AddFunds создаёт пополнение кошелька через платёжный шлюз и возвращает ссылку на оплату.
// POST /api/v1/wallet/add
func (c *Client) AddFunds(ctx context.Context, token, idempotencyKey string, amount decimal.Decimal, redirectURL string) (string, error) {
	body, err := c.do(ctx, call{
		name:   "wallet.add",
		method: http.MethodPost,
		path:   "/api/v1/wallet/add",
		token:  token,
		body: map[string]any{
			"amount":      json.Number(amount.String()),
			"redirectUrl": redirectURL,
		},
		idempotencyKey: idempotencyKey,
	})
	if err != nil {
		return "", err
	}

	root, err := Decode(body)
	if err != nil {
		return "", fmt.Errorf("ответ пополнения кошелька: %w", err)
	}
	return FirstString(root, "transaction.paymentUrl", "paymentUrl", "data.paymentUrl"), nil
}

// Ledger возвращает страницу журнала кошелька.
// GET /api/v1/wallet/ledger?page=&limit=
func (c *Client) Ledger(ctx context.Context, token string, page, limit int) ([]domain.WalletTransaction, domain.Pagination, error) {
	body, err := c.do(ctx, call{
		name:   "wallet.ledger",
		method: http.MethodGet,
		path:   "/api/v1/wallet/ledger",
		token:  token,
		query: map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(limit),
		},
		retry: true,
	})
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	root, err := Decode(body)
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	list, _ := FirstList(root, "transactions", "data.transactions", "ledger", "data.docs", "data")

	txs := make([]domain.WalletTransaction, 0, len(list))
	for _, item := range list {
		txs = append(txs, transactionFromJSON(item))
	}

	return txs, NormalizePagination(root, page, limit, len(txs)), nil
}

func transactionFromJSON(item any) domain.WalletTransaction {
	amount, _ := FirstDecimal(item, "amount")
	before, _ := FirstDecimal(item, "balanceBefore", "balance_before", "openingBalance")
	after, _ := FirstDecimal(item, "balanceAfter", "balance_after", "closingBalance")
	createdAt, _ := FirstTime(item, "createdAt", "created_at", "timestamp", "date")

	txType := domain.TransactionType(strings.ToLower(FirstString(item, "type", "transactionType")))
	if txType != domain.TransactionCredit && txType != domain.TransactionDebit {
		// Старые записи без типа: знак суммы определяет направление.
		txType = domain.TransactionCredit
		if amount.IsNegative() {
			txType = domain.TransactionDebit
		}
	}

	return domain.WalletTransaction{
		ID:            FirstString(item, "_id", "id", "transactionId"),
		Type:          txType,
		Amount:        amount.Abs(),
		BalanceBefore: before,
		BalanceAfter:  after,
		Reference:     FirstString(item, "reference", "referenceId", "orderId"),
		Description:   FirstString(item, "description", "remark"),
		CreatedAt:     createdAt,
	}
}
