package units

import (
	"strings"
	"unicode"

	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/respond"

	"github.com/gofiber/fiber/v2"
)

// UnitInput campos ausentes ficam nil e preservam o valor atual na edição.
type UnitInput struct {
	Nome                 *string `json:"nome" form:"nome"`
	Municipio            *string `json:"municipio" form:"municipio"`
	Tipo                 *string `json:"tipo" form:"tipo"`
	ContatoTelefonico    *string `json:"contato_telefonico" form:"contato_telefonico"`
	Endereco             *string `json:"endereco" form:"endereco"`
	Telefone             *string `json:"telefone" form:"telefone"`
	Responsavel          *string `json:"responsavel" form:"responsavel"`
	CNES                 *string `json:"cnes" form:"cnes"`
	Email                *string `json:"email" form:"email"`
	HorarioFuncionamento *string `json:"horario_funcionamento" form:"horario_funcionamento"`
	ServicosEmergencia   *bool   `json:"servicos_emergencia" form:"-"`
}

func parseInput(c *fiber.Ctx) (*UnitInput, error) {
	var in UnitInput
	if err := c.BodyParser(&in); err != nil {
		return nil, err
	}
	// checkbox do formulário chega como "on"
	if respond.IsForm(c) {
		v := c.FormValue("servicos_emergencia")
		b := v == "on" || v == "true" || v == "1"
		in.ServicosEmergencia = &b
	}
	return &in, nil
}

func set(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// apply copia para a unidade apenas os campos informados.
func (in *UnitInput) apply(u *models.HealthUnit) {
	set(&u.Name, in.Nome)
	set(&u.Municipality, in.Municipio)
	if in.Tipo != nil {
		u.Type = models.UnitType(strings.TrimSpace(*in.Tipo))
	}
	set(&u.PhoneContact, in.ContatoTelefonico)
	set(&u.Address, in.Endereco)
	set(&u.Phone, in.Telefone)
	set(&u.Manager, in.Responsavel)
	set(&u.Email, in.Email)
	set(&u.OpeningHours, in.HorarioFuncionamento)
	if in.ServicosEmergencia != nil {
		u.EmergencyServices = *in.ServicosEmergencia
	}
	if in.CNES != nil {
		if code := strings.TrimSpace(*in.CNES); code != "" {
			u.CNES = &code
		} else {
			u.CNES = nil
		}
	}
}

func onlyDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// validate roda sobre a unidade já mesclada.
func validate(u *models.HealthUnit) string {
	if u.Name == "" {
		return "Nome da unidade é obrigatório"
	}
	if !u.Type.Valid() {
		return "Tipo de unidade inválido"
	}
	if code := u.CNESValue(); code != "" && (len(code) != 7 || !onlyDigits(code)) {
		return "Código CNES deve ter exatamente 7 dígitos"
	}
	return ""
}
