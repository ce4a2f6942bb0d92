// Package respond centraliza o envelope JSON, o fluxo HTML com mensagem flash e o
// tratamento de erros do Fiber.
package respond

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const FlashCookie = "flash"

const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelWarning = "warning"
)

type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// IsForm true para corpos de formulário HTML (urlencoded ou multipart).
func IsForm(c *fiber.Ctx) bool {
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))
	return strings.HasPrefix(ct, fiber.MIMEApplicationForm) || strings.HasPrefix(ct, fiber.MIMEMultipartForm)
}

func OK(c *fiber.Ctx, message string, data any) error {
	body := fiber.Map{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(body)
}

func Created(c *fiber.Ctx, message string, data any) error {
	c.Status(fiber.StatusCreated)
	return OK(c, message, data)
}

func Fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// Redirect grava a mensagem flash em cookie e redireciona (fluxo HTML).
func Redirect(c *fiber.Ctx, to, level, message string) error {
	raw, _ := json.Marshal(Flash{Level: level, Message: message})
	c.Cookie(&fiber.Cookie{
		Name:     FlashCookie,
		Value:    url.QueryEscape(string(raw)),
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		Expires:  time.Now().Add(5 * time.Minute),
	})
	return c.Redirect(to, fiber.StatusFound)
}

// Outcome responde JSON ou redirect conforme o tipo do corpo recebido.
func Outcome(c *fiber.Ctx, status int, redirectTo, message string, data any) error {
	if IsForm(c) {
		level := LevelSuccess
		if status >= 400 {
			level = LevelError
		}
		return Redirect(c, redirectTo, level, message)
	}
	if status >= 400 {
		return Fail(c, status, message)
	}
	c.Status(status)
	return OK(c, message, data)
}

// PopFlash lê e apaga a mensagem flash pendente.
func PopFlash(c *fiber.Ctx) *Flash {
	raw := c.Cookies(FlashCookie)
	if raw == "" {
		return nil
	}
	c.ClearCookie(FlashCookie)

	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return nil
	}
	var f Flash
	if err := json.Unmarshal([]byte(decoded), &f); err != nil {
		return nil
	}
	return &f
}

// FlashHandler GET /api/mensagens
func FlashHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := PopFlash(c)
		if f == nil {
			return c.JSON(fiber.Map{"success": true, "mensagens": []Flash{}})
		}
		return c.JSON(fiber.Map{"success": true, "mensagens": []Flash{*f}})
	}
}

// ErrorHandler: *fiber.Error usa a própria mensagem; o resto vira 500 genérico.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code >= fiber.StatusInternalServerError {
			zap.L().Error("erro no handler",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("message", fe.Message),
			)
		}
		return Fail(c, fe.Code, fe.Message)
	}

	zap.L().Error("erro inesperado",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return Fail(c, fiber.StatusInternalServerError, "Erro interno do servidor")
}
