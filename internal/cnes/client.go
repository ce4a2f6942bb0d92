// Package cnes consulta a API de dados abertos do DATASUS pelo código CNES.
package cnes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const Source = "Ministério da Saúde - DATASUS"

var (
	ErrInvalidCode = errors.New("Código CNES deve ter exatamente 7 dígitos")
	ErrNotFound    = errors.New("Código CNES não encontrado na base de dados do Ministério da Saúde")
	ErrTimeout     = errors.New("Timeout na consulta à API do Ministério da Saúde. Tente novamente.")
	ErrUnavailable = errors.New("Erro de conexão com a API do Ministério da Saúde. Verifique sua internet.")
)

// StatusError resposta diferente de 200/404 da API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Erro na consulta da API: %d", e.Code)
}

// Establishment campos devolvidos pela API mais os campos de compatibilidade.
type Establishment map[string]any

type Client struct {
	http   *resty.Client
	cache  Cache
	logger *zap.Logger
}

// NewClient sem retentativas; cache pode ser nil.
func NewClient(baseURL string, timeout time.Duration, cache Cache, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8").
		SetHeader("User-Agent", "central-chamadas/1.0")

	return &Client{http: http, cache: cache, logger: logger}
}

// Normalize mantém só os dígitos e exige 7.
func Normalize(raw string) (string, error) {
	code := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
	if len(code) != 7 {
		return "", ErrInvalidCode
	}
	return code, nil
}

func (c *Client) Lookup(ctx context.Context, raw string) (Establishment, error) {
	code, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, code); ok {
			return cached, nil
		}
	}

	c.logger.Debug("consultando CNES", zap.String("codigo", code))

	resp, err := c.http.R().
		SetContext(ctx).
		Get("/cnes/estabelecimentos/" + code)
	if err != nil {
		return nil, classify(err)
	}

	switch resp.StatusCode() {
	case 200:
	case 404:
		return nil, ErrNotFound
	default:
		c.logger.Warn("API CNES respondeu com erro",
			zap.String("codigo", code),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, &StatusError{Code: resp.StatusCode()}
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("resposta inválida da API: %w", err)
	}

	data := standardize(code, payload)
	if c.cache != nil {
		c.cache.Set(ctx, code, data)
	}
	return data, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrUnavailable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrUnavailable
	}
	return err
}

var compatFields = map[string]string{
	"municipio": "descricao_municipio",
	"uf":        "sigla_uf",
	"cep":       "codigo_cep_estabelecimento",
	"endereco":  "endereco_estabelecimento",
	"numero":    "numero_estabelecimento",
	"bairro":    "bairro_estabelecimento",
	"telefone":  "numero_telefone_estabelecimento",
	"email":     "endereco_email_estabelecimento",
}

func standardize(code string, payload map[string]any) Establishment {
	out := make(Establishment, len(payload)+len(compatFields)+2)
	for k, v := range payload {
		out[k] = v
	}

	if v, ok := out["codigo_cnes"]; !ok || v == nil || v == "" {
		out["codigo_cnes"] = code
	}
	out["codigo"] = out["codigo_cnes"]
	out["nome"] = firstText(payload, "nome_fantasia", "nome_razao_social")
	if out["nome"] == "" {
		out["nome"] = "Nome não informado"
	}
	for compat, source := range compatFields {
		out[compat] = payload[source]
	}
	return out
}

func firstText(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
