// Package handler содержит HTTP обработчики REST API витрины.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/checkout"
	"example.com/topup-storefront/services/storefront/internal/domain"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorMapping — HTTP статус и код ошибки для доменной ошибки.
type errorMapping struct {
	kind   error
	status int
	code   string
}

// Порядок важен: первая совпавшая запись выигрывает.
var errorMappings = []errorMapping{
	{domain.ErrValidation, http.StatusBadRequest, "invalid_request"},
	{domain.ErrAuthRequired, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrNoPackageSelected, http.StatusBadRequest, "no_package_selected"},
	{domain.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance"},
	{domain.ErrIdentityIncomplete, http.StatusBadRequest, "identity_incomplete"},
	{domain.ErrVerificationFailed, http.StatusUnprocessableEntity, "verification_failed"},
	{domain.ErrInvalidIdentity, http.StatusUnprocessableEntity, "invalid_identity"},
	{domain.ErrNetwork, http.StatusServiceUnavailable, "network_error"},
	{domain.ErrBackendRejected, http.StatusBadRequest, "backend_rejected"},
	{domain.ErrInternalMasked, http.StatusBadGateway, "contact_support"},
	{domain.ErrRequestTimeout, http.StatusGatewayTimeout, "request_timeout"},
	{domain.ErrCatalogUnavailable, http.StatusServiceUnavailable, "catalog_unavailable"},
	{domain.ErrGameNotFound, http.StatusNotFound, "game_not_found"},
	{domain.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{domain.ErrMaintenance, http.StatusServiceUnavailable, "maintenance"},
	{domain.ErrRetryNotAllowed, http.StatusConflict, "retry_not_allowed"},
	{domain.ErrTooManyAttempts, http.StatusTooManyRequests, "too_many_attempts"},
}

// HandleError преобразует ошибку сервиса в HTTP ответ.
// Используется всеми handlers для единообразной обработки ошибок.
func HandleError(c *gin.Context, err error, method string) {
	if err == nil {
		logger.Error().Str("method", method).Msg("HandleError вызван с nil ошибкой — баг в коде")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	log := logger.FromContext(c.Request.Context())

	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}
		if m.status >= http.StatusInternalServerError {
			log.Warn().Err(err).Str("method", method).Str("code", m.code).Msg("Ошибка обработки запроса")
		} else {
			log.Debug().Err(err).Str("method", method).Str("code", m.code).Msg("Запрос отклонён")
		}
		c.JSON(m.status, ErrorResponse{
			Error:   m.code,
			Message: domain.UserMessage(err, m.kind.Error()),
		})
		return
	}

	if status, resp, ok := backendResponse(err); ok {
		log.Warn().Err(err).Str("method", method).Int("status", status).Msg("Ошибка backend")
		c.JSON(status, resp)
		return
	}

	if errors.Is(err, context.Canceled) {
		// Клиент ушёл, ответ никто не прочитает
		log.Debug().Str("method", method).Msg("Запрос отменён клиентом")
		c.Status(499)
		return
	}

	log.Error().Err(err).Str("method", method).Msg("Внутренняя ошибка")
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Внутренняя ошибка сервера",
	})
}

// backendResponse — ответ для ошибок backend, не прошедших через сервисный слой.
func backendResponse(err error) (int, ErrorResponse, bool) {
	if errors.Is(err, backend.ErrNetwork) {
		return http.StatusServiceUnavailable, ErrorResponse{Error: "network_error", Message: domain.MsgTryAgain}, true
	}

	apiErr, ok := backend.AsAPIError(err)
	if !ok {
		return 0, ErrorResponse{}, false
	}

	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Требуется авторизация"}, true
	case apiErr.StatusCode == http.StatusNotFound:
		return http.StatusNotFound, ErrorResponse{Error: "not_found", Message: apiErr.Message}, true
	case apiErr.StatusCode >= http.StatusInternalServerError:
		return http.StatusBadGateway, ErrorResponse{Error: "backend_error", Message: domain.MsgTryAgain}, true
	case checkout.IsOperational(apiErr.Message):
		return http.StatusBadGateway, ErrorResponse{Error: "contact_support", Message: domain.MsgContactSupport}, true
	}
	return http.StatusBadRequest, ErrorResponse{Error: "backend_rejected", Message: apiErr.Message}, true
}

// badRequest — невалидное тело или параметры запроса.
func badRequest(c *gin.Context, err error, message string) {
	logger.FromContext(c.Request.Context()).Debug().Err(err).Msg("Невалидный запрос")
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}
