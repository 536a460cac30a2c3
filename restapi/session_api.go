package restapi

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-market-console/session"
	"github.com/jrsteele09/go-market-console/upload"
)

var _ session.API = (*Client)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Identity session.Identity `json:"identity"`
	Token    string           `json:"token"`
}

type identityEnvelope struct {
	User session.Identity `json:"user"`
}

type credentialRequest struct {
	CurrentSecret string `json:"currentPassword"`
	NewSecret     string `json:"newPassword"`
}

type credentialResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// Login posts the credentials; the server answers with the identity record
// and a credential token it also sets as a secure, httpOnly cookie. The
// token is primed into the client so follow-up requests carry it.
func (c *Client) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	var resp loginResponse
	if err := c.postJSON(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &session.AuthenticationError{Reason: "no credential token in login response"}
	}
	c.SetCredential(resp.Token)
	return &session.LoginResult{Identity: resp.Identity, Token: resp.Token}, nil
}

// CurrentIdentity re-derives the identity from the credential the client
// holds. The user id comes from the token's sub claim; signature
// verification stays the server's job.
func (c *Client) CurrentIdentity(ctx context.Context) (*session.Identity, error) {
	token := c.credential()
	if token == "" {
		return nil, &session.AuthenticationError{Reason: "no credential token"}
	}
	userID, err := subjectOf(token)
	if err != nil {
		return nil, &session.AuthenticationError{Reason: "malformed credential token", Err: err}
	}

	var identity session.Identity
	if err := c.getJSON(ctx, fmt.Sprintf("/users/%s", userID), &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// UpdateIdentity sends a partial profile update; multipart when an image
// is attached, JSON otherwise.
func (c *Client) UpdateIdentity(ctx context.Context, id string, update session.ProfileUpdate, image *upload.Image) (*session.Identity, error) {
	path := fmt.Sprintf("/users/%s", id)
	var envelope identityEnvelope

	if image != nil {
		fields := make(map[string]string)
		if update.DisplayName != nil {
			fields["displayName"] = *update.DisplayName
		}
		if update.Email != nil {
			fields["email"] = *update.Email
		}
		if err := c.doMultipart(ctx, "PATCH", path, fields, "profilePicture", image, &envelope); err != nil {
			return nil, err
		}
		return &envelope.User, nil
	}

	body := make(map[string]string)
	if update.DisplayName != nil {
		body["displayName"] = *update.DisplayName
	}
	if update.Email != nil {
		body["email"] = *update.Email
	}
	if err := c.patchJSON(ctx, path, body, &envelope); err != nil {
		return nil, err
	}
	return &envelope.User, nil
}

// UpdateCredential asks the server to rotate the password. An expected
// rejection comes back with Success=false; a returned token replaces the
// client credential.
func (c *Client) UpdateCredential(ctx context.Context, id, currentSecret, newSecret string) (*session.CredentialChange, error) {
	var resp credentialResponse
	path := fmt.Sprintf("/users/%s/password", id)
	if err := c.patchJSON(ctx, path, credentialRequest{CurrentSecret: currentSecret, NewSecret: newSecret}, &resp); err != nil {
		return nil, err
	}
	if resp.Success && resp.Token != "" {
		c.SetCredential(resp.Token)
	}
	return &session.CredentialChange{Success: resp.Success, Message: resp.Message, Token: resp.Token}, nil
}

func subjectOf(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", errors.Wrap(err, "ParseUnverified")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}
