package apitest

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	s.mu.Lock()
	userID, ok := s.emailIndex[req.Email]
	var acc *account
	if ok {
		acc = s.accounts[userID]
	}
	s.mu.Unlock()

	if acc == nil || acc.password != req.Password {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := s.issueToken(acc.identity.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}

	c.SetCookie(&http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(tokenTTL),
	})
	return c.JSON(http.StatusOK, echo.Map{"identity": acc.identity, "token": token})
}

func (s *Server) getUser(c echo.Context) error {
	id := c.Param("id")
	s.mu.Lock()
	acc, ok := s.accounts[id]
	s.mu.Unlock()
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, acc.identity)
}

func (s *Server) updateUser(c echo.Context) error {
	id := c.Param("id")
	if currentIdentity(c).ID != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot update another user"})
	}

	fields := map[string]string{}
	if form, err := c.MultipartForm(); err == nil {
		for name, values := range form.Value {
			if len(values) > 0 {
				fields[name] = values[0]
			}
		}
		if files := form.File["profilePicture"]; len(files) > 0 {
			fields["profilePicture"] = files[0].Filename
		}
	} else {
		body := map[string]string{}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
		}
		fields = body
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[id]
	if v, ok := fields["displayName"]; ok {
		acc.identity.DisplayName = v
	}
	if v, ok := fields["email"]; ok {
		delete(s.emailIndex, acc.identity.Email)
		acc.identity.Email = v
		s.emailIndex[v] = id
	}
	if v, ok := fields["profilePicture"]; ok {
		acc.identity.ProfileImageRef = v
	}
	acc.identity.UpdatedAt = time.Now()
	return c.JSON(http.StatusOK, echo.Map{"user": acc.identity})
}

func (s *Server) updatePassword(c echo.Context) error {
	id := c.Param("id")
	if currentIdentity(c).ID != id {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot update another user"})
	}

	var req passwordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	s.mu.Lock()
	acc := s.accounts[id]
	correct := acc.password == req.CurrentPassword
	if correct {
		acc.password = req.NewPassword
	}
	s.mu.Unlock()

	if !correct {
		return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "current password incorrect"})
	}

	token, err := s.issueToken(id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "password updated", "token": token})
}
