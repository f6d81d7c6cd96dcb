package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/domain"
)

func runHandleError(err error) (*httptest.ResponseRecorder, ErrorResponse) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)

	HandleError(c, err, "Test")

	var resp ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHandleError_DomainErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "Невалидные данные",
			err:            domain.NewUserError(domain.ErrValidation, "Неверный номер телефона"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_request",
			expectedMsg:    "Неверный номер телефона",
		},
		{
			name:           "Нет авторизации",
			err:            domain.ErrAuthRequired,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "unauthorized",
			expectedMsg:    domain.ErrAuthRequired.Error(),
		},
		{
			name:           "Недостаточно средств",
			err:            domain.ErrInsufficientBalance,
			expectedStatus: http.StatusPaymentRequired,
			expectedCode:   "insufficient_balance",
		},
		{
			name:           "Аккаунт не найден — сообщение backend как есть",
			err:            domain.NewUserError(domain.ErrInvalidIdentity, "Player not found"),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "invalid_identity",
			expectedMsg:    "Player not found",
		},
		{
			name:           "Скрытая ошибка поставщика",
			err:            domain.NewUserError(domain.ErrInternalMasked, domain.MsgContactSupport),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "contact_support",
			expectedMsg:    domain.MsgContactSupport,
		},
		{
			name:           "Таймаут",
			err:            domain.NewUserError(domain.ErrRequestTimeout, domain.MsgRequestTimeout),
			expectedStatus: http.StatusGatewayTimeout,
			expectedCode:   "request_timeout",
		},
		{
			name:           "Обёрнутая ошибка",
			err:            fmt.Errorf("retry: %w", domain.ErrRetryNotAllowed),
			expectedStatus: http.StatusConflict,
			expectedCode:   "retry_not_allowed",
		},
		{
			name:           "Слишком много попыток",
			err:            domain.ErrTooManyAttempts,
			expectedStatus: http.StatusTooManyRequests,
			expectedCode:   "too_many_attempts",
		},
		{
			name:           "Игра не найдена",
			err:            domain.ErrGameNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "game_not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := runHandleError(tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, resp.Error)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, resp.Message)
			}
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestHandleError_BackendErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "Сеть",
			err:            fmt.Errorf("wallet.ledger: %w", backend.ErrNetwork),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "network_error",
			expectedMsg:    domain.MsgTryAgain,
		},
		{
			name:           "401",
			err:            &backend.APIError{StatusCode: 401, Message: "jwt expired"},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "unauthorized",
		},
		{
			name:           "404",
			err:            &backend.APIError{StatusCode: 404, Message: "Order not found"},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
			expectedMsg:    "Order not found",
		},
		{
			name:           "5xx не раскрывается",
			err:            &backend.APIError{StatusCode: 500, Message: "mongo timeout"},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "backend_error",
			expectedMsg:    domain.MsgTryAgain,
		},
		{
			name:           "Операционная ошибка скрывается",
			err:            &backend.APIError{StatusCode: 400, Message: "Insufficient balance in reseller account"},
			expectedStatus: http.StatusBadGateway,
			expectedCode:   "contact_support",
			expectedMsg:    domain.MsgContactSupport,
		},
		{
			name:           "Бизнес-отказ",
			err:            &backend.APIError{StatusCode: 400, Message: "Amount too small"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "backend_rejected",
			expectedMsg:    "Amount too small",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := runHandleError(tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, resp.Error)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, resp.Message)
			}
		})
	}
}

func TestHandleError_Unknown(t *testing.T) {
	w, resp := runHandleError(errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", resp.Error)
	assert.NotContains(t, w.Body.String(), "boom", "детали наружу не отдаются")
}

func TestHandleError_Nil(t *testing.T) {
	w, resp := runHandleError(nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal_error", resp.Error)
}
