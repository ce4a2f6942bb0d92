package admin

import (
	"fmt"
	"strconv"
	"time"

	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/export"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const usersExportBase = "usuarios_sistema"

func roleLabel(u *models.User) string {
	if u.IsStaff {
		return "Administrador"
	}
	return "Usuário"
}

func statusLabel(u *models.User) string {
	if u.IsActive {
		return "Ativo"
	}
	return "Inativo"
}

func lastLoginLabel(u *models.User, loc *time.Location) string {
	if u.LastLogin == nil {
		return "Nunca fez login"
	}
	return u.LastLogin.In(loc).Format(dateTimeLayout)
}

// UserCounts unidades e chamadas por cadastrante.
type UserCounts struct {
	Units map[uint]int64
	Calls map[uint]int64
}

func loadCounts(db *gorm.DB) (*UserCounts, error) {
	units, err := countByCreator(db, &models.HealthUnit{}, nil)
	if err != nil {
		return nil, err
	}
	calls, err := countByCreator(db, &models.CallRecord{}, nil)
	if err != nil {
		return nil, err
	}
	return &UserCounts{Units: units, Calls: calls}, nil
}

// UsersTable todas as colunas, usada no CSV e no Excel.
func UsersTable(users []models.User, counts *UserCounts, loc *time.Location) export.Table {
	t := export.Table{
		Name: "Usuários",
		Headers: []string{
			"Nome Completo", "Nome de Usuário", "Email", "Primeiro Nome", "Último Nome",
			"Tipo de Usuário", "Status", "Superusuário", "Data de Cadastro", "Último Login",
			"Unidades Cadastradas", "Chamadas Registradas",
		},
		Widths: []float64{30, 20, 30, 18, 18, 16, 10, 12, 18, 18, 12, 12},
	}
	for i := range users {
		u := &users[i]
		t.Append(
			u.DisplayName(),
			u.Username,
			u.Email,
			u.FirstName,
			u.LastName,
			roleLabel(u),
			statusLabel(u),
			export.YesNo(u.IsSuperuser),
			u.DateJoined.In(loc).Format(dateTimeLayout),
			lastLoginLabel(u, loc),
			strconv.FormatInt(counts.Units[u.ID], 10),
			strconv.FormatInt(counts.Calls[u.ID], 10),
		)
	}
	return t
}

// UsersPDFTable Nome, Usuário, Email, Tipo, Status, Data Cadastro.
func UsersPDFTable(users []models.User, loc *time.Location) export.Table {
	t := export.Table{
		Name:    "Usuários",
		Headers: []string{"Nome", "Usuário", "Email", "Tipo", "Status", "Data Cadastro"},
		Widths:  []float64{2.2, 1.3, 2.2, 1.1, 0.8, 1.2},
	}
	for i := range users {
		u := &users[i]
		t.Append(
			u.DisplayName(),
			u.Username,
			u.Email,
			roleLabel(u),
			statusLabel(u),
			export.Date(u.DateJoined, loc),
		)
	}
	return t
}

// LoadUsers usuários do filtro, sem paginação.
func LoadUsers(db *gorm.DB, spec filter.Spec) ([]models.User, error) {
	var users []models.User
	err := spec.Query(db.Model(&models.User{})).Find(&users).Error
	return users, err
}

// GET /api/usuarios/export/{csv,excel,pdf}
func UsersExportHandler(cfg *config.Config, format export.Format) fiber.Handler {
	return func(c *fiber.Ctx) error {
		loc := cfg.Location()
		spec := filter.UserExport(filter.FromFiber(c))
		opts := export.PDFOptions{
			Title:      "Relatório de Usuários do Sistema",
			StaticPath: cfg.StaticPath,
			Location:   loc,
		}

		users, err := LoadUsers(database.DB, spec)
		if err != nil {
			if format == export.FormatPDF {
				return export.Send(c, usersExportBase+"_erro.pdf", export.MIMEPDF, export.ErrorPDF(opts.Title, err))
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Erro na exportação: "+err.Error())
		}

		if format == export.FormatPDF {
			var active int
			for i := range users {
				if users[i].IsActive {
					active++
				}
			}
			opts.Lines = []string{
				fmt.Sprintf("Total de usuários: %d", len(users)),
				fmt.Sprintf("Ativos: %d | Inativos: %d", active, len(users)-active),
			}
			return export.Write(c, format, usersExportBase, opts, UsersPDFTable(users, loc))
		}

		counts, err := loadCounts(database.DB)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Erro na exportação: "+err.Error())
		}
		return export.Write(c, format, usersExportBase, opts, UsersTable(users, counts, loc))
	}
}
