package models

import "time"

const (
	StatusReceived = "chamada_recebida"
	StatusPlaced   = "chamada_efetuada"
)

// StatusResolved conta como "resolvida" na pontuação de atividade.
const StatusResolved = StatusPlaced

var CallStatuses = []Choice{
	{Code: StatusReceived, Label: "Chamada Recebida"},
	{Code: StatusPlaced, Label: "Chamada Efetuada"},
}

// CallTypes: tipos atuais do formulário seguidos dos tipos legados.
var CallTypes = []Choice{
	{Code: "outro_nao_especificado", Label: "Outro não especificado"},
	{Code: "cadastro_profissional", Label: "Cadastro de profissional"},
	{Code: "cadastro_unidade", Label: "Cadastro de Unidade"},
	{Code: "cancelamento_solicitacao", Label: "Cancelamento de Solicitacao"},
	{Code: "capacidade_operacional", Label: "Capacidade operacional de unidade"},
	{Code: "contato", Label: "Contato"},
	{Code: "contato_medico_regulador", Label: "Contato com Medico Regulador"},
	{Code: "fluxo_funcionamento", Label: "Fluxo de funcionamento do sistema"},
	{Code: "fluxo_processo_regulacao", Label: "Fluxo/processo de regulacao"},
	{Code: "insercao_unidade_perfil", Label: "Insercao de Unidade em perfil"},
	{Code: "login_sistema_core", Label: "Login sistema CORE"},
	{Code: "manuseio_uso_sistema", Label: "Manuseio/Uso do sistema"},
	{Code: "municipio_sem_internet", Label: "Município sem internet"},
	{Code: "pactuacao", Label: "Pactuacao"},
	{Code: "psiquiatria", Label: "Psiquiatria"},
	{Code: "reset_senha_usuario", Label: "Reset de senha de usuario"},
	{Code: "sistema_fora_ar", Label: "Sistema Fora do ar"},
	{Code: "sistema_lento", Label: "Sistema Lento"},
	{Code: "solicitacao_treinamento", Label: "Solicitacao de treinamento"},
	{Code: "suporte_ambulatorial", Label: "Suporte Ambulatorial"},
	{Code: "suporte_mabulatorial_leitos", Label: "suporte ao modulo MABULATORIAL E LEITOS"},
	{Code: "suporte_leitos", Label: "Suporte Leitos"},
	{Code: "unidade_sem_internet", Label: "Unidade sem internet"},
	{Code: "emergencia", Label: "Emergência"},
	{Code: "consulta", Label: "Consulta"},
	{Code: "informacao", Label: "Informação"},
	{Code: "reclamacao", Label: "Reclamação"},
	{Code: "outros", Label: "Outros"},
}

func CallTypeLabel(code string) string   { return labelOf(CallTypes, code) }
func CallStatusLabel(code string) string { return labelOf(CallStatuses, code) }
func ValidCallType(code string) bool     { return validChoice(CallTypes, code) }
func ValidCallStatus(code string) bool   { return validChoice(CallStatuses, code) }

// CallRecord unidade é texto livre, não há chave estrangeira para HealthUnit.
type CallRecord struct {
	ID               uint      `gorm:"primaryKey"`
	ContactName      string    `gorm:"size:100;not null"`
	Phone            string    `gorm:"size:20;not null"`
	Role             string    `gorm:"size:100"`
	Sector           string    `gorm:"size:100"`
	CallType         string    `gorm:"size:50;not null;index"`
	Status           string    `gorm:"size:20;not null;index"`
	AttendantName    string    `gorm:"size:100;not null"`
	Description      string    `gorm:"type:text;not null"`
	Solution         string    `gorm:"type:text"`
	UnitName         string    `gorm:"size:255;not null;index"`
	Municipality     string    `gorm:"size:100"`
	CNES             string    `gorm:"size:7"`
	CNESPhoneContact string    `gorm:"size:20"`
	CreatedAt        time.Time `gorm:"index"`
	UpdatedAt        time.Time

	CreatedByID *uint `gorm:"index"`
	CreatedBy   *User `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
}

func (c *CallRecord) TypeLabel() string   { return CallTypeLabel(c.CallType) }
func (c *CallRecord) StatusLabel() string { return CallStatusLabel(c.Status) }

func (c *CallRecord) CreatorName() string {
	if c.CreatedBy == nil {
		return "Sistema"
	}
	return c.CreatedBy.Username
}
