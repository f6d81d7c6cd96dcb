package backend

import (
	"context"
	"net/http"

	"example.com/topup-storefront/services/storefront/internal/domain"
)

// AuthResult — результат шага авторизации по телефону.
type AuthResult struct {
	Token string
	User  domain.User
	// RequiresRegistration — телефон подтверждён, но профиль ещё не заполнен.
	RequiresRegistration bool
}

// SendOTP отправляет код подтверждения на телефон.
// POST /api/v1/user/send-otp
func (c *Client) SendOTP(ctx context.Context, phone string) (string, error) {
	body, err := c.do(ctx, call{
		name:   "user.send-otp",
		method: http.MethodPost,
		path:   "/api/v1/user/send-otp",
		body:   map[string]string{"phone": phone},
	})
	if err != nil {
		return "", err
	}
	root, err := Decode(body)
	if err != nil {
		return "", nil
	}
	return FirstString(root, "message"), nil
}

// VerifyOTP проверяет код и возвращает токен.
// POST /api/v1/user/verify-otp
func (c *Client) VerifyOTP(ctx context.Context, phone, otp string) (AuthResult, error) {
	body, err := c.do(ctx, call{
		name:   "user.verify-otp",
		method: http.MethodPost,
		path:   "/api/v1/user/verify-otp",
		body:   map[string]string{"phone": phone, "otp": otp},
	})
	if err != nil {
		return AuthResult{}, err
	}
	return authResultFromBody(body)
}

// CompleteRegistration заполняет профиль нового пользователя.
// POST /api/v1/user/complete-registration
func (c *Client) CompleteRegistration(ctx context.Context, token, name, email string) (AuthResult, error) {
	body, err := c.do(ctx, call{
		name:   "user.complete-registration",
		method: http.MethodPost,
		path:   "/api/v1/user/complete-registration",
		token:  token,
		body:   map[string]string{"name": name, "email": email},
	})
	if err != nil {
		return AuthResult{}, err
	}

	res, err := authResultFromBody(body)
	if err != nil {
		return AuthResult{}, err
	}
	if res.Token == "" {
		res.Token = token
	}
	res.RequiresRegistration = false
	return res, nil
}

// Me возвращает профиль по токену. Заодно проверяет токен на стороне backend.
// GET /api/v1/user/me
func (c *Client) Me(ctx context.Context, token string) (domain.User, error) {
	body, err := c.do(ctx, call{
		name:   "user.me",
		method: http.MethodGet,
		path:   "/api/v1/user/me",
		token:  token,
	})
	if err != nil {
		return domain.User{}, err
	}

	root, err := Decode(body)
	if err != nil {
		return domain.User{}, err
	}
	return userFromJSON(root), nil
}

// ProfileUpdate — изменяемые поля профиля.
type ProfileUpdate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// UpdateProfile обновляет профиль.
// PUT /api/v1/user/profile
func (c *Client) UpdateProfile(ctx context.Context, token string, upd ProfileUpdate) (domain.User, error) {
	body, err := c.do(ctx, call{
		name:   "user.profile",
		method: http.MethodPut,
		path:   "/api/v1/user/profile",
		token:  token,
		body:   upd,
	})
	if err != nil {
		return domain.User{}, err
	}

	root, err := Decode(body)
	if err != nil {
		return domain.User{}, err
	}
	return userFromJSON(root), nil
}

func authResultFromBody(body []byte) (AuthResult, error) {
	root, err := Decode(body)
	if err != nil {
		return AuthResult{}, err
	}

	user := userFromJSON(root)
	res := AuthResult{
		Token: FirstString(root, "token", "data.token", "accessToken", "data.accessToken"),
		User:  user,
	}

	if needs, ok := FirstBool(root, "requiresRegistration", "data.requiresRegistration", "isNewUser"); ok {
		res.RequiresRegistration = needs
	} else {
		res.RequiresRegistration = !user.IsRegistered
	}
	return res, nil
}

// userFromJSON ищет пользователя в user / data.user / data.
func userFromJSON(root any) domain.User {
	node, ok := FirstMap(root, "user", "data.user", "data")
	if !ok {
		return domain.User{}
	}

	balance, _ := FirstDecimal(node, "walletBalance", "wallet.balance", "balance")
	name := FirstString(node, "name", "fullName")

	registered, ok := FirstBool(node, "isRegistered", "registered")
	if !ok {
		registered = name != ""
	}

	return domain.User{
		ID:            FirstString(node, "_id", "id", "userId"),
		Phone:         FirstString(node, "phone", "phoneNumber", "mobile"),
		Name:          name,
		Email:         FirstString(node, "email"),
		WalletBalance: balance,
		IsRegistered:  registered,
	}
}
