package calls

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const decodeError = "Erro ao decodificar os dados da requisição."

// CallInput corpo aceito em JSON e em formulário; "nome" e "nome_contato" são sinônimos.
type CallInput struct {
	ID                    json.Number `json:"id" form:"id"`
	Nome                  string      `json:"nome" form:"nome"`
	NomeContato           string      `json:"nome_contato" form:"nome_contato"`
	Telefone              string      `json:"telefone" form:"telefone"`
	Funcao                string      `json:"funcao" form:"funcao"`
	Setor                 string      `json:"setor" form:"setor"`
	Unidade               string      `json:"unidade" form:"unidade"`
	Municipio             string      `json:"municipio" form:"municipio"`
	CNES                  string      `json:"cnes" form:"cnes"`
	ContatoTelefonicoCNES string      `json:"contato_telefonico_cnes" form:"contato_telefonico_cnes"`
	TipoChamada           string      `json:"tipo_chamada" form:"tipo_chamada"`
	Status                string      `json:"status" form:"status"`
	NomeAtendente         string      `json:"nome_atendente" form:"nome_atendente"`
	Descricao             string      `json:"descricao" form:"descricao"`
	Solucao               string      `json:"solucao" form:"solucao"`
}

func parseInput(c *fiber.Ctx) (*CallInput, error) {
	var in CallInput
	if err := c.BodyParser(&in); err != nil {
		return nil, err
	}
	in.trim()
	return &in, nil
}

func (in *CallInput) trim() {
	for _, f := range []*string{
		&in.Nome, &in.NomeContato, &in.Telefone, &in.Funcao, &in.Setor, &in.Unidade,
		&in.Municipio, &in.CNES, &in.ContatoTelefonicoCNES, &in.TipoChamada, &in.Status,
		&in.NomeAtendente, &in.Descricao, &in.Solucao,
	} {
		*f = strings.TrimSpace(*f)
	}
}

func (in *CallInput) contactName() string {
	if in.NomeContato != "" {
		return in.NomeContato
	}
	return in.Nome
}

func (in *CallInput) recordID() (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(in.ID.String()), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// validate devolve a primeira mensagem de erro, na ordem dos campos do formulário.
func (in *CallInput) validate() string {
	required := []struct {
		value string
		label string
	}{
		{in.contactName(), "Nome do contato"},
		{in.Telefone, "Telefone"},
		{in.Unidade, "Nome da unidade"},
		{in.TipoChamada, "Tipo de chamada"},
		{in.Status, "Status"},
		{in.NomeAtendente, "Nome do atendente"},
		{in.Descricao, "Descrição"},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Sprintf("%s é obrigatório", r.label)
		}
	}

	if n := len(digits(in.Telefone)); n < 10 || n > 11 {
		return "Telefone deve ter entre 10 e 11 dígitos"
	}
	if !models.ValidCallType(in.TipoChamada) {
		return "Tipo de chamada inválido"
	}
	if !models.ValidCallStatus(in.Status) {
		return "Status inválido"
	}
	if in.CNES != "" && len(in.CNES) > 7 {
		return "Código CNES deve ter no máximo 7 caracteres"
	}
	return ""
}

func (in *CallInput) apply(call *models.CallRecord) {
	call.ContactName = in.contactName()
	call.Phone = in.Telefone
	call.Role = in.Funcao
	call.Sector = in.Setor
	call.UnitName = in.Unidade
	call.Municipality = in.Municipio
	call.CNES = in.CNES
	call.CNESPhoneContact = in.ContatoTelefonicoCNES
	call.CallType = in.TipoChamada
	call.Status = in.Status
	call.AttendantName = in.NomeAtendente
	call.Description = in.Descricao
	call.Solution = in.Solucao
}
