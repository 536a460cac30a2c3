// Package apitest is an in-memory rendition of the remote catalog service,
// close enough to the real wire contract for integration tests and local
// demos: cookie-based credential tokens, multipart mutation endpoints and
// tenant-scoped collections.
package apitest

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/jrsteele09/go-market-console/category"
	"github.com/jrsteele09/go-market-console/item"
	"github.com/jrsteele09/go-market-console/session"
)

const tokenTTL = time.Hour

// Server holds the in-memory state behind the HTTP handlers.
type Server struct {
	echo   *echo.Echo
	secret []byte

	mu         sync.Mutex
	accounts   map[string]*account // by user id
	emailIndex map[string]string   // email -> user id
	categories map[string]category.Category
	items      map[string]item.Item
}

type account struct {
	identity session.Identity
	password string
}

// New builds a server signing credential tokens with the given secret.
func New(secret string) *Server {
	s := &Server{
		secret:     []byte(secret),
		accounts:   make(map[string]*account),
		emailIndex: make(map[string]string),
		categories: make(map[string]category.Category),
		items:      make(map[string]item.Item),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.POST("/auth/login", s.login)

	authed := e.Group("", s.requireAuth)
	authed.GET("/users/:id", s.getUser)
	authed.PATCH("/users/:id", s.updateUser)
	authed.PATCH("/users/:id/password", s.updatePassword)

	authed.GET("/supermarket/:tenantID/categories", s.listCategories)
	authed.POST("/category/:userID", s.createCategory)
	authed.PATCH("/category/:id", s.updateCategory)
	authed.DELETE("/category/:id", s.deleteCategory)

	authed.GET("/supermarket/:tenantID/items", s.listItems)
	authed.GET("/item/:id", s.getItem)
	authed.GET("/category/:id/items", s.listItemsByCategory)
	authed.POST("/item/:tenantID", s.createItem)
	authed.PATCH("/item/:id", s.updateItem)
	authed.DELETE("/item/:id", s.deleteItem)

	s.echo = e
	return s
}

// Handler exposes the server for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// AddAccount registers a user who can log in with the given password.
func (s *Server) AddAccount(identity session.Identity, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	s.accounts[identity.ID] = &account{identity: identity, password: password}
	s.emailIndex[identity.Email] = identity.ID
}

// SeedCategory inserts a category, assigning an id when absent.
func (s *Server) SeedCategory(c category.Category) category.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.categories[c.ID] = c
	return c
}

// SeedItem inserts an item, assigning an id when absent.
func (s *Server) SeedItem(it item.Item) item.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.New().String()
	}
	s.items[it.ID] = it
	return it
}

func (s *Server) issueToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// requireAuth accepts the credential either as the login cookie or as a
// bearer header, mirroring the real service.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := ""
		if cookie, err := c.Cookie("token"); err == nil {
			raw = cookie.Value
		}
		if raw == "" {
			header := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				raw = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing credential"})
		}

		claims := jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credential"})
		}

		s.mu.Lock()
		acc, ok := s.accounts[claims.Subject]
		s.mu.Unlock()
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
		}
		c.Set("identity", acc.identity)
		return next(c)
	}
}

func currentIdentity(c echo.Context) session.Identity {
	identity, _ := c.Get("identity").(session.Identity)
	return identity
}
