package admin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/export"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/respond"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	BackupVersion = "1.0"
	PageBackup    = "/backup-sistema"
)

var ErrNothingSelected = errors.New("Selecione pelo menos um tipo de dados para fazer backup.")

// KB estimados por registro.
const (
	kbPerUser = 0.5
	kbPerUnit = 1.2
	kbPerCall = 2.0
)

type BackupOptions struct {
	Users bool
	Units bool
	Calls bool
}

func (o BackupOptions) Empty() bool {
	return !o.Users && !o.Units && !o.Calls
}

type BackupUser struct {
	ID          uint    `json:"id"`
	Username    string  `json:"username"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       string  `json:"email"`
	IsStaff     bool    `json:"is_staff"`
	IsActive    bool    `json:"is_active"`
	DateJoined  string  `json:"date_joined"`
	LastLogin   *string `json:"last_login"`
	IsSuperuser bool    `json:"is_superuser"`
}

type BackupUnit struct {
	ID                   uint    `json:"id"`
	Nome                 string  `json:"nome"`
	Municipio            string  `json:"municipio"`
	Tipo                 string  `json:"tipo"`
	Endereco             string  `json:"endereco"`
	Telefone             string  `json:"telefone"`
	Responsavel          string  `json:"responsavel"`
	CNES                 *string `json:"cnes"`
	Email                string  `json:"email"`
	HorarioFuncionamento string  `json:"horario_funcionamento"`
	ServicosEmergencia   bool    `json:"servicos_emergencia"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
	UsuarioCadastranteID *uint   `json:"usuario_cadastrante_id"`
}

type BackupCall struct {
	ID                    uint   `json:"id"`
	NomeContato           string `json:"nome_contato"`
	Telefone              string `json:"telefone"`
	Funcao                string `json:"funcao"`
	Setor                 string `json:"setor"`
	Unidade               string `json:"unidade"`
	Municipio             string `json:"municipio"`
	CNES                  string `json:"cnes"`
	ContatoTelefonicoCNES string `json:"contato_telefonico_cnes"`
	TipoChamada           string `json:"tipo_chamada"`
	Status                string `json:"status"`
	NomeAtendente         string `json:"nome_atendente"`
	Descricao             string `json:"descricao"`
	Solucao               string `json:"solucao"`
	DataCriacao           string `json:"data_criacao"`
	UsuarioCriadorID      *uint  `json:"usuario_criador_id"`
}

type BackupInfo struct {
	BackupID       string           `json:"backup_id"`
	GeradoEm       string           `json:"gerado_em"`
	GeradoPor      string           `json:"gerado_por"`
	VersaoSistema  string           `json:"versao_sistema"`
	TiposIncluidos []string         `json:"tipos_incluidos"`
	Contagens      map[string]int64 `json:"contagens"`
}

// BackupDocument só as seções escolhidas aparecem no JSON, mesmo vazias.
type BackupDocument struct {
	Usuarios      []BackupUser
	UnidadesSaude []BackupUnit
	Chamadas      []BackupCall
	Info          BackupInfo

	opts BackupOptions
	at   time.Time
}

func isoTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.RFC3339)
}

// BuildBackup lê as tabelas escolhidas numa única transação de leitura.
func BuildBackup(db *gorm.DB, opts BackupOptions, generatedBy string, loc *time.Location, now time.Time) (*BackupDocument, error) {
	if opts.Empty() {
		return nil, ErrNothingSelected
	}
	doc := &BackupDocument{
		Info: BackupInfo{
			BackupID:       uuid.NewString(),
			GeradoEm:       isoTime(now, loc),
			GeradoPor:      generatedBy,
			VersaoSistema:  BackupVersion,
			TiposIncluidos: []string{},
			Contagens:      map[string]int64{},
		},
		opts: opts,
		at:   now,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if opts.Users {
			var users []models.User
			if err := tx.Order("id ASC").Find(&users).Error; err != nil {
				return fmt.Errorf("usuários: %w", err)
			}
			doc.Usuarios = make([]BackupUser, 0, len(users))
			for i := range users {
				u := &users[i]
				var last *string
				if u.LastLogin != nil {
					s := isoTime(*u.LastLogin, loc)
					last = &s
				}
				doc.Usuarios = append(doc.Usuarios, BackupUser{
					ID:          u.ID,
					Username:    u.Username,
					FirstName:   u.FirstName,
					LastName:    u.LastName,
					Email:       u.Email,
					IsStaff:     u.IsStaff,
					IsActive:    u.IsActive,
					IsSuperuser: u.IsSuperuser,
					DateJoined:  isoTime(u.DateJoined, loc),
					LastLogin:   last,
				})
			}
			doc.include("usuarios", "Usuários", len(users))
		}

		if opts.Units {
			var units []models.HealthUnit
			if err := tx.Order("id ASC").Find(&units).Error; err != nil {
				return fmt.Errorf("unidades: %w", err)
			}
			doc.UnidadesSaude = make([]BackupUnit, 0, len(units))
			for i := range units {
				u := &units[i]
				doc.UnidadesSaude = append(doc.UnidadesSaude, BackupUnit{
					ID:                   u.ID,
					Nome:                 u.Name,
					Municipio:            u.Municipality,
					Tipo:                 string(u.Type),
					Endereco:             u.Address,
					Telefone:             u.Phone,
					Responsavel:          u.Manager,
					CNES:                 u.CNES,
					Email:                u.Email,
					HorarioFuncionamento: u.OpeningHours,
					ServicosEmergencia:   u.EmergencyServices,
					CreatedAt:            isoTime(u.CreatedAt, loc),
					UpdatedAt:            isoTime(u.UpdatedAt, loc),
					UsuarioCadastranteID: u.CreatedByID,
				})
			}
			doc.include("unidades_saude", "Unidades de Saúde", len(units))
		}

		if opts.Calls {
			var calls []models.CallRecord
			if err := tx.Order("id ASC").Find(&calls).Error; err != nil {
				return fmt.Errorf("chamadas: %w", err)
			}
			doc.Chamadas = make([]BackupCall, 0, len(calls))
			for i := range calls {
				c := &calls[i]
				doc.Chamadas = append(doc.Chamadas, BackupCall{
					ID:                    c.ID,
					NomeContato:           c.ContactName,
					Telefone:              c.Phone,
					Funcao:                c.Role,
					Setor:                 c.Sector,
					Unidade:               c.UnitName,
					Municipio:             c.Municipality,
					CNES:                  c.CNES,
					ContatoTelefonicoCNES: c.CNESPhoneContact,
					TipoChamada:           c.CallType,
					Status:                c.Status,
					NomeAtendente:         c.AttendantName,
					Descricao:             c.Description,
					Solucao:               c.Solution,
					DataCriacao:           isoTime(c.CreatedAt, loc),
					UsuarioCriadorID:      c.CreatedByID,
				})
			}
			doc.include("chamadas", "Chamadas", len(calls))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *BackupDocument) include(key, label string, n int) {
	d.Info.TiposIncluidos = append(d.Info.TiposIncluidos, fmt.Sprintf("%s (%d)", label, n))
	d.Info.Contagens[key] = int64(n)
}

// Filename backup_sistema_YYYYmmdd_HHMMSS.{ext}
func (d *BackupDocument) Filename(ext string, loc *time.Location) string {
	return fmt.Sprintf("backup_sistema_%s.%s", d.at.In(loc).Format("20060102_150405"), ext)
}

func (d *BackupDocument) MarshalJSON() ([]byte, error) {
	out := map[string]any{"_info": d.Info}
	if d.opts.Users {
		out["usuarios"] = d.Usuarios
	}
	if d.opts.Units {
		out["unidades_saude"] = d.UnidadesSaude
	}
	if d.opts.Calls {
		out["chamadas"] = d.Chamadas
	}
	return json.Marshal(out)
}

func (d *BackupDocument) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// CSV bloco de cabeçalho seguido de uma seção por tabela incluída.
func (d *BackupDocument) CSV() ([]byte, error) {
	rows := [][]string{
		{"=== BACKUP DO SISTEMA ==="},
		{"Gerado em:", d.Info.GeradoEm},
		{"Gerado por:", d.Info.GeradoPor},
		{"Tipos incluídos:", strings.Join(d.Info.TiposIncluidos, ", ")},
		{"ID do backup:", d.Info.BackupID},
		{},
	}
	id := func(v uint) string { return strconv.FormatUint(uint64(v), 10) }

	if d.opts.Users {
		rows = append(rows,
			[]string{"=== USUÁRIOS ==="},
			[]string{"ID", "Username", "Nome", "Sobrenome", "Email", "É Admin", "Ativo", "Data Cadastro"},
		)
		for _, u := range d.Usuarios {
			rows = append(rows, []string{
				id(u.ID), u.Username, u.FirstName, u.LastName, u.Email,
				export.YesNo(u.IsStaff), export.YesNo(u.IsActive), u.DateJoined,
			})
		}
		rows = append(rows, []string{})
	}
	if d.opts.Units {
		rows = append(rows,
			[]string{"=== UNIDADES DE SAÚDE ==="},
			[]string{"ID", "Nome", "Município", "Tipo", "CNES", "Telefone", "Data Cadastro"},
		)
		for _, u := range d.UnidadesSaude {
			cnes := ""
			if u.CNES != nil {
				cnes = *u.CNES
			}
			rows = append(rows, []string{id(u.ID), u.Nome, u.Municipio, u.Tipo, cnes, u.Telefone, u.CreatedAt})
		}
		rows = append(rows, []string{})
	}
	if d.opts.Calls {
		rows = append(rows,
			[]string{"=== CHAMADAS ==="},
			[]string{"ID", "Contato", "Telefone", "Unidade", "Tipo", "Status", "Data"},
		)
		for _, c := range d.Chamadas {
			rows = append(rows, []string{id(c.ID), c.NomeContato, c.Telefone, c.Unidade, c.TipoChamada, c.Status, c.DataCriacao})
		}
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type BackupSummary struct {
	TotalUsuarios  int64              `json:"total_usuarios"`
	UsuariosAtivos int64              `json:"usuarios_ativos"`
	UsuariosAdmins int64              `json:"usuarios_admins"`
	TotalUnidades  int64              `json:"total_unidades"`
	UnidadesTipos  map[string]int64   `json:"unidades_tipos"`
	TotalChamadas  int64              `json:"total_chamadas"`
	ChamadasTipos  map[string]int64   `json:"chamadas_tipos"`
	Tamanho        map[string]float64 `json:"tamanho_estimado"`
	TamanhoTotal   float64            `json:"estimated_backup_size"`
}

type codeCount struct {
	Code  string
	Total int64
}

func codeCounts(db *gorm.DB, model any, column string) (map[string]int64, error) {
	var rows []codeCount
	if err := db.Model(model).
		Select(column + " AS code, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Code] = r.Total
	}
	return out, nil
}

// BuildBackupSummary contagens e tamanho estimado em KB.
func BuildBackupSummary(db *gorm.DB) (*BackupSummary, error) {
	totals, err := userTotals(db)
	if err != nil {
		return nil, err
	}
	s := &BackupSummary{
		TotalUsuarios:  totals.TotalUsuarios,
		UsuariosAtivos: totals.UsuariosAtivos,
		UsuariosAdmins: totals.UsuariosStaff,
		UnidadesTipos:  map[string]int64{},
	}

	byType, err := codeCounts(db, &models.HealthUnit{}, "type")
	if err != nil {
		return nil, err
	}
	for _, code := range []models.UnitType{models.UnitExecutante, models.UnitSolicitante, models.UnitExecutanteSolicitante} {
		s.UnidadesTipos[string(code)] = byType[string(code)]
		s.TotalUnidades += byType[string(code)]
	}

	if s.ChamadasTipos, err = codeCounts(db, &models.CallRecord{}, "call_type"); err != nil {
		return nil, err
	}
	if err := db.Model(&models.CallRecord{}).Count(&s.TotalChamadas).Error; err != nil {
		return nil, err
	}

	s.Tamanho = map[string]float64{
		"usuarios": float64(s.TotalUsuarios) * kbPerUser,
		"unidades": float64(s.TotalUnidades) * kbPerUnit,
		"chamadas": float64(s.TotalChamadas) * kbPerCall,
	}
	for _, kb := range s.Tamanho {
		s.TamanhoTotal += kb
	}
	return s, nil
}

// GET /api/backup
func BackupSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := BuildBackupSummary(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Erro ao calcular estatísticas do backup.")
		}
		return c.JSON(fiber.Map{"success": true, "stats": s})
	}
}

type backupRequest struct {
	FormatType      string `json:"format_type" form:"format_type"`
	IncludeUsers    bool   `json:"include_users" form:"-"`
	IncludeUnidades bool   `json:"include_unidades" form:"-"`
	IncludeChamadas bool   `json:"include_chamadas" form:"-"`
}

// POST /api/backup
func BackupHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req backupRequest
		if err := c.BodyParser(&req); err != nil {
			return respond.Outcome(c, fiber.StatusBadRequest, PageBackup, "Dados inválidos.", nil)
		}
		if respond.IsForm(c) {
			req.IncludeUsers = *checkbox(c, "include_users")
			req.IncludeUnidades = *checkbox(c, "include_unidades")
			req.IncludeChamadas = *checkbox(c, "include_chamadas")
		}
		format := strings.ToLower(strings.TrimSpace(req.FormatType))
		if format == "" {
			format = "json"
		}
		if format != "json" && format != "csv" {
			return respond.Outcome(c, fiber.StatusBadRequest, PageBackup, "Formato de backup inválido.", nil)
		}

		opts := BackupOptions{Users: req.IncludeUsers, Units: req.IncludeUnidades, Calls: req.IncludeChamadas}
		by := ""
		if u := auth.CurrentUser(c); u != nil {
			by = u.Username
		}
		loc := cfg.Location()

		doc, err := BuildBackup(database.DB, opts, by, loc, time.Now())
		if errors.Is(err, ErrNothingSelected) {
			return respond.Outcome(c, fiber.StatusBadRequest, PageBackup, err.Error(), nil)
		}
		if err != nil {
			zap.L().Error("falha ao gerar backup", zap.Error(err))
			return respond.Outcome(c, fiber.StatusInternalServerError, PageBackup, "Erro ao gerar backup: "+err.Error(), nil)
		}

		var body []byte
		mime := fiber.MIMEApplicationJSONCharsetUTF8
		if format == "csv" {
			body, err = doc.CSV()
			mime = export.MIMECSV
		} else {
			body, err = doc.JSON()
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Erro ao gerar backup: "+err.Error())
		}

		zap.L().Info("backup gerado",
			zap.String("id", doc.Info.BackupID),
			zap.String("por", by),
			zap.Strings("tipos", doc.Info.TiposIncluidos),
		)
		return export.Send(c, doc.Filename(format, loc), mime, body)
	}
}
