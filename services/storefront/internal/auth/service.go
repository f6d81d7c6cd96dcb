package auth

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"example.com/topup-storefront/pkg/logger"
	"example.com/topup-storefront/services/storefront/internal/backend"
	"example.com/topup-storefront/services/storefront/internal/domain"
)

// Backend — методы backend для входа и профиля.
type Backend interface {
	SendOTP(ctx context.Context, phone string) (string, error)
	VerifyOTP(ctx context.Context, phone, otp string) (backend.AuthResult, error)
	CompleteRegistration(ctx context.Context, token, name, email string) (backend.AuthResult, error)
}

var (
	phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)
	otpPattern   = regexp.MustCompile(`^\d{4,8}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// Service — вход по телефону. Неудачные вводы кода ограничиваются OTPLimiter.
type Service struct {
	backend Backend
	limiter OTPLimiter
}

// NewService создаёт Service.
func NewService(b Backend, limiter OTPLimiter) *Service {
	return &Service{backend: b, limiter: limiter}
}

// NormalizePhone убирает пробелы, дефисы и скобки.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

// SendOTP отправляет код. Заблокированный телефон код не получает.
func (s *Service) SendOTP(ctx context.Context, phone string) (string, error) {
	phone = NormalizePhone(phone)
	if !phonePattern.MatchString(phone) {
		return "", domain.NewUserError(domain.ErrValidation, "Неверный номер телефона")
	}

	if err := s.checkLocked(ctx, phone); err != nil {
		return "", err
	}

	msg, err := s.backend.SendOTP(ctx, phone)
	if err != nil {
		return "", backendError(err)
	}
	return msg, nil
}

// VerifyOTP проверяет код. Отказ backend засчитывается как неудачная попытка.
func (s *Service) VerifyOTP(ctx context.Context, phone, otp string) (backend.AuthResult, error) {
	log := logger.FromContext(ctx)

	phone = NormalizePhone(phone)
	otp = strings.TrimSpace(otp)
	if !phonePattern.MatchString(phone) {
		return backend.AuthResult{}, domain.NewUserError(domain.ErrValidation, "Неверный номер телефона")
	}
	if !otpPattern.MatchString(otp) {
		return backend.AuthResult{}, domain.NewUserError(domain.ErrValidation, "Неверный формат кода")
	}

	if err := s.checkLocked(ctx, phone); err != nil {
		return backend.AuthResult{}, err
	}

	res, err := s.backend.VerifyOTP(ctx, phone, otp)
	if err != nil {
		if apiErr, ok := backend.AsAPIError(err); ok && apiErr.StatusCode < http.StatusInternalServerError {
			if lerr := s.limiter.RecordFailure(ctx, phone); lerr != nil {
				log.Warn().Err(lerr).Msg("Не удалось учесть неудачную попытку входа")
			}
			msg := apiErr.Message
			if msg == "" {
				msg = "Неверный код подтверждения"
			}
			return backend.AuthResult{}, domain.NewUserError(domain.ErrBackendRejected, msg)
		}
		return backend.AuthResult{}, backendError(err)
	}

	if res.Token == "" {
		log.Error().Msg("Backend подтвердил код, но не вернул токен")
		return backend.AuthResult{}, domain.NewUserError(domain.ErrBackendRejected, domain.MsgTryAgain)
	}

	if err := s.limiter.Reset(ctx, phone); err != nil {
		log.Warn().Err(err).Msg("Не удалось сбросить счётчик попыток входа")
	}
	return res, nil
}

// CompleteRegistration заполняет профиль после первого входа.
func (s *Service) CompleteRegistration(ctx context.Context, token, name, email string) (backend.AuthResult, error) {
	if token == "" {
		return backend.AuthResult{}, domain.ErrAuthRequired
	}
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return backend.AuthResult{}, domain.NewUserError(domain.ErrValidation, "Укажите имя")
	}
	if email != "" && !emailPattern.MatchString(email) {
		return backend.AuthResult{}, domain.NewUserError(domain.ErrValidation, "Неверный email")
	}

	res, err := s.backend.CompleteRegistration(ctx, token, name, email)
	if err != nil {
		return backend.AuthResult{}, backendError(err)
	}
	if res.Token == "" {
		res.Token = token
	}
	return res, nil
}

// checkLocked — ошибка Redis не блокирует вход.
func (s *Service) checkLocked(ctx context.Context, phone string) error {
	locked, err := s.limiter.IsLocked(ctx, phone)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Лимитер попыток недоступен, пропускаем проверку")
		return nil
	}
	if locked {
		return domain.ErrTooManyAttempts
	}
	return nil
}

// backendError переводит ошибку backend в ошибку для покупателя.
func backendError(err error) error {
	if errors.Is(err, backend.ErrNetwork) {
		return domain.NewUserError(domain.ErrNetwork, domain.MsgTryAgain)
	}
	if apiErr, ok := backend.AsAPIError(err); ok {
		if apiErr.StatusCode == http.StatusUnauthorized {
			return domain.NewUserError(domain.ErrAuthRequired, apiErr.Message)
		}
		if apiErr.StatusCode >= http.StatusInternalServerError {
			return domain.NewUserError(domain.ErrNetwork, domain.MsgTryAgain)
		}
		return domain.NewUserError(domain.ErrBackendRejected, apiErr.Message)
	}
	return domain.NewUserError(domain.ErrNetwork, domain.MsgTryAgain)
}
