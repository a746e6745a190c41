package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/kava-labs/composer-proxy-service/backend"
	"github.com/kava-labs/composer-proxy-service/logging"
)

type claims struct {
	Attributes map[string]string `json:"attrs"`
	jwt.RegisteredClaims
}

// CookieHandler reads and writes the session cookie, an HS256 signed jwt
type CookieHandler struct {
	name   string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *logging.ServiceLogger
}

func NewCookieHandler(name string, secret string, ttl time.Duration, logger *logging.ServiceLogger) *CookieHandler {
	return &CookieHandler{
		name:   name,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Read returns the session of req. a missing, expired or tampered
// cookie yields a new session
func (h *CookieHandler) Read(req *http.Request) Data {
	cookie, err := req.Cookie(h.name)
	if err != nil {
		return NewData()
	}

	data, err := h.decode(cookie.Value)
	if err != nil {
		h.logger.Debug().Err(err).Msg("discarding invalid session cookie")
		return NewData()
	}

	return data
}

func (h *CookieHandler) decode(token string) (Data, error) {
	var c claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	_, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return h.secret, nil
	})
	if err != nil {
		return Data{}, err
	}

	if c.ID == "" {
		return Data{}, errors.New("session cookie without id")
	}

	attributes := c.Attributes
	if attributes == nil {
		attributes = map[string]string{}
	}
	attributes[IDAttribute] = c.ID

	return DataFrom(attributes), nil
}

// Write returns res with a Set-Cookie header holding data
func (h *CookieHandler) Write(res *backend.Response, data Data) (*backend.Response, error) {
	now := h.now()

	attributes := data.Attributes()
	delete(attributes, IDAttribute)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Attributes: attributes,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        data.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.ttl)),
		},
	})

	signed, err := token.SignedString(h.secret)
	if err != nil {
		return res, fmt.Errorf("error signing session cookie: %w", err)
	}

	cookie := &http.Cookie{
		Name:     h.name,
		Value:    signed,
		Path:     "/",
		Expires:  now.Add(h.ttl),
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	written := res.Clone()
	written.Header.Add("Set-Cookie", cookie.String())

	return written, nil
}
