package cnes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// HTTPStatus traduz o erro da consulta em status e mensagem.
func HTTPStatus(err error) (int, string) {
	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrInvalidCode):
		return fiber.StatusBadRequest, err.Error()
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.As(err, &statusErr):
		return statusErr.Code, statusErr.Error()
	case errors.Is(err, ErrTimeout):
		return fiber.StatusRequestTimeout, err.Error()
	case errors.Is(err, ErrUnavailable):
		return fiber.StatusServiceUnavailable, err.Error()
	}
	return fiber.StatusInternalServerError, "Erro interno: " + err.Error()
}

// LookupHandler GET /api/cnes/:codigo
func LookupHandler(client *Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := client.Lookup(c.UserContext(), c.Params("codigo"))
		if err != nil {
			status, msg := HTTPStatus(err)
			return c.Status(status).JSON(fiber.Map{
				"sucesso": false,
				"erro":    msg,
			})
		}
		return c.JSON(fiber.Map{
			"sucesso": true,
			"dados":   data,
			"fonte":   Source,
		})
	}
}
