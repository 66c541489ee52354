package httpserver

import (
	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/dmitrijs2005/credgate/internal/server/models"
	"github.com/gofiber/fiber/v3"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	UID string `json:"uid"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type createTokenRequest struct {
	Permission *models.Permission `json:"permission"`
}

type createTokenResponse struct {
	Token string `json:"token"`
}

type permissionResponse struct {
	Permission models.Permission `json:"permission"`
}

var errBadBody = fiber.NewError(fiber.StatusBadRequest, "invalid request body")

func (s *HTTPServer) register(c fiber.Ctx) error {
	var req credentialsRequest
	if err := c.Bind().Body(&req); err != nil {
		return errBadBody
	}

	uid, err := s.svc.Accounts.Register(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	s.logger.Info(c.Context(), "Registered", "uid", uid)
	return c.JSON(registerResponse{UID: uid})
}

func (s *HTTPServer) login(c fiber.Ctx) error {
	var req credentialsRequest
	if err := c.Bind().Body(&req); err != nil {
		return errBadBody
	}

	uid, err := s.svc.Accounts.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	pair, err := s.svc.Sessions.Issue(c.Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(pair)
}

func (s *HTTPServer) refresh(c fiber.Ctx) error {
	token := common.StripBearer(c.Get(common.AuthorizationHeaderName))
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing token")
	}

	pair, err := s.svc.Sessions.Refresh(c.Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(pair)
}

func (s *HTTPServer) requestConfirmation(c fiber.Ctx) error {
	if err := s.svc.Confirmations.RequestEmail(c.Context(), currentUID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}

func (s *HTTPServer) confirm(c fiber.Ctx) error {
	uid, key := c.Query("uid"), c.Query("key")
	if uid == "" || key == "" {
		return fiber.NewError(fiber.StatusBadRequest, "uid and key are required")
	}

	if err := s.svc.Confirmations.Confirm(c.Context(), uid, key); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}

func (s *HTTPServer) changePassword(c fiber.Ctx) error {
	var req changePasswordRequest
	if err := c.Bind().Body(&req); err != nil {
		return errBadBody
	}

	if err := s.svc.Accounts.ChangePassword(c.Context(), currentUID(c), req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}

func (s *HTTPServer) listTokens(c fiber.Ctx) error {
	keys, err := s.svc.ApiKeys.List(c.Context(), currentUID(c))
	if err != nil {
		return err
	}
	return c.JSON(keys)
}

func (s *HTTPServer) getToken(c fiber.Ctx) error {
	key, err := s.svc.ApiKeys.Get(c.Context(), currentUID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(key)
}

func (s *HTTPServer) createToken(c fiber.Ctx) error {
	var req createTokenRequest
	if err := c.Bind().Body(&req); err != nil || req.Permission == nil {
		return errBadBody
	}

	token, err := s.svc.ApiKeys.Create(c.Context(), currentUID(c), *req.Permission)
	if err != nil {
		return err
	}
	return c.JSON(createTokenResponse{Token: token})
}

func (s *HTTPServer) deleteToken(c fiber.Ctx) error {
	if err := s.svc.ApiKeys.Revoke(c.Context(), currentUID(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusOK)
}

// tokenPermission authenticates with the API key itself, not a session.
func (s *HTTPServer) tokenPermission(c fiber.Ctx) error {
	token := common.StripBearer(c.Get(common.AuthorizationHeaderName))

	perm, err := s.svc.ApiKeys.GetPermission(c.Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(permissionResponse{Permission: perm})
}
