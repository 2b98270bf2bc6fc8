package handler

import (
	"github.com/gofiber/fiber/v2"

	"marketapi/internal/auth"
	"marketapi/internal/model"
)

type registerRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	KeepLogin bool   `json:"keep_login"`
}

// register creates an account.
//
// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "account"
// @Success 201 {object} model.User
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Router /auth/register [post]
func (h *Handler) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Accounts.Register(c.UserContext(), req.Email, req.Password, req.Role)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

// login opens a session and sets the session cookie.
//
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "credentials"
// @Success 200 {object} sessionView
// @Failure 403 {object} errorPayload
// @Router /auth/login [post]
func (h *Handler) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := h.Accounts.Login(c.UserContext(), req.Email, req.Password, req.KeepLogin)
	if err != nil {
		return err
	}
	auth.SetCookie(c, h.Cookie, sess.Token, sess.ExpiresAt)
	return c.JSON(sessionView{UserID: sess.UserID, Role: sess.Role, ExpiresAt: sess.ExpiresAt})
}

func (h *Handler) logout(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.Accounts.Logout(c.UserContext(), id.Token); err != nil {
		return err
	}
	auth.ClearCookie(c, h.Cookie)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) me(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	u, err := h.Accounts.Me(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(u)
}
