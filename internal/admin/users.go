package admin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"central-chamadas-backend/internal/audit"
	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/pagination"
	"central-chamadas-backend/internal/respond"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	PageUsers      = "/gerenciar-usuarios"
	dateTimeLayout = "02/01/2006 15:04"
	usersPerPage   = 10
)

type UserInput struct {
	Username  *string `json:"username" form:"username"`
	Email     *string `json:"email" form:"email"`
	FirstName *string `json:"first_name" form:"first_name"`
	LastName  *string `json:"last_name" form:"last_name"`
	Password1 string  `json:"password1" form:"password1"`
	Password2 string  `json:"password2" form:"password2"`
	IsStaff   *bool   `json:"is_staff" form:"-"`
	IsActive  *bool   `json:"is_active" form:"-"`
}

func checkbox(c *fiber.Ctx, key string) *bool {
	v := strings.ToLower(c.FormValue(key))
	b := v == "on" || v == "true" || v == "1"
	return &b
}

// parseUserInput: no cadastro, is_active ausente no formulário mantém o usuário ativo;
// na edição, checkbox ausente significa desmarcado.
func parseUserInput(c *fiber.Ctx, creating bool) (*UserInput, error) {
	var in UserInput
	if err := c.BodyParser(&in); err != nil {
		return nil, err
	}
	if respond.IsForm(c) {
		in.IsStaff = checkbox(c, "is_staff")
		if !creating || c.FormValue("is_active") != "" {
			in.IsActive = checkbox(c, "is_active")
		}
	}
	return &in, nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// apply copia só os campos presentes; senha é tratada à parte.
func (in *UserInput) apply(u *models.User) {
	if in.Username != nil {
		u.Username = trimmed(in.Username)
	}
	if in.Email != nil {
		u.Email = trimmed(in.Email)
	}
	if in.FirstName != nil {
		u.FirstName = trimmed(in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = trimmed(in.LastName)
	}
	if in.IsStaff != nil {
		u.IsStaff = *in.IsStaff
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
}

// uniqueness username exato e email sem caixa, ignorando o próprio usuário.
func uniqueness(db *gorm.DB, u *models.User) (string, error) {
	var n int64
	if err := db.Model(&models.User{}).
		Where("username = ? AND id <> ?", u.Username, u.ID).
		Count(&n).Error; err != nil {
		return "", err
	}
	if n > 0 {
		return "Este nome de usuário já existe.", nil
	}
	if u.Email == "" {
		return "", nil
	}
	if err := db.Model(&models.User{}).
		Where("LOWER(email) = ? AND id <> ?", strings.ToLower(u.Email), u.ID).
		Count(&n).Error; err != nil {
		return "", err
	}
	if n > 0 {
		return "Este email já está em uso.", nil
	}
	return "", nil
}

func findUser(db *gorm.DB, id string) (*models.User, error) {
	var uid uint
	if _, err := fmt.Sscan(id, &uid); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "ID do usuário inválido.")
	}
	var u models.User
	if err := db.Preload("Profile").First(&u, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Usuário não encontrado.")
		}
		return nil, err
	}
	return &u, nil
}

// Dependents unidades e chamadas cadastradas pelo usuário.
func Dependents(db *gorm.DB, userID uint) (units, calls int64, err error) {
	if err = db.Model(&models.HealthUnit{}).Where("created_by_id = ?", userID).Count(&units).Error; err != nil {
		return
	}
	err = db.Model(&models.CallRecord{}).Where("created_by_id = ?", userID).Count(&calls).Error
	return
}

type creatorCount struct {
	ID    uint
	Total int64
}

// countByCreator total por created_by_id; ids vazio conta todos os usuários.
func countByCreator(db *gorm.DB, model any, ids []uint) (map[uint]int64, error) {
	q := db.Model(model).
		Select("created_by_id AS id, COUNT(*) AS total").
		Where("created_by_id IS NOT NULL")
	if len(ids) > 0 {
		q = q.Where("created_by_id IN ?", ids)
	}
	var rows []creatorCount
	if err := q.Group("created_by_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Total
	}
	return out, nil
}

func lastCall(db *gorm.DB, userID uint) (*models.CallRecord, error) {
	var calls []models.CallRecord
	err := db.Where("created_by_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(1).Find(&calls).Error
	if err != nil || len(calls) == 0 {
		return nil, err
	}
	return &calls[0], nil
}

func formatTime(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	s := t.In(loc).Format(dateTimeLayout)
	return &s
}

type UserRow struct {
	ID              uint    `json:"id"`
	Username        string  `json:"username"`
	NomeCompleto    string  `json:"nome_completo"`
	Email           string  `json:"email"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	IsActive        bool    `json:"is_active"`
	IsStaff         bool    `json:"is_staff"`
	IsSuperuser     bool    `json:"is_superuser"`
	DateJoined      string  `json:"date_joined"`
	LastLogin       *string `json:"last_login"`
	UnidadesCount   int64   `json:"unidades_count"`
	ChamadasCount   int64   `json:"chamadas_count"`
	UltimaAtividade *string `json:"ultima_atividade"`
	AvatarURL       *string `json:"avatar_url"`
}

type UserTotals struct {
	TotalUsuarios    int64 `json:"total_usuarios"`
	UsuariosAtivos   int64 `json:"usuarios_ativos"`
	UsuariosStaff    int64 `json:"usuarios_staff"`
	UsuariosInativos int64 `json:"usuarios_inativos"`
}

func userTotals(db *gorm.DB) (*UserTotals, error) {
	var t UserTotals
	users := func() *gorm.DB { return db.Model(&models.User{}) }
	if err := users().Count(&t.TotalUsuarios).Error; err != nil {
		return nil, err
	}
	if err := users().Where("is_active = ?", true).Count(&t.UsuariosAtivos).Error; err != nil {
		return nil, err
	}
	if err := users().Where("is_staff = ?", true).Count(&t.UsuariosStaff).Error; err != nil {
		return nil, err
	}
	t.UsuariosInativos = t.TotalUsuarios - t.UsuariosAtivos
	return &t, nil
}

var managementParams = []string{
	"busca", "is_active", "is_staff", "has_email", "date_from", "date_to", "atividade_periodo", "order_by",
}

// GET /api/usuarios
func ListUsersHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := database.DB
		loc := cfg.Location()
		spec := filter.UserManagement(filter.FromFiber(c), loc, time.Now())

		var total int64
		if err := spec.Apply(db.Model(&models.User{})).Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os usuários")
		}

		page := pagination.FromContext(c, usersPerPage)
		var users []models.User
		if err := page.Scope(spec.Query(db.Model(&models.User{}).Preload("Profile"))).Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Não foi possível listar os usuários")
		}

		ids := make([]uint, len(users))
		for i := range users {
			ids[i] = users[i].ID
		}
		unitCounts, err := countByCreator(db, &models.HealthUnit{}, ids)
		if err != nil {
			return err
		}
		callCounts, err := countByCreator(db, &models.CallRecord{}, ids)
		if err != nil {
			return err
		}

		rows := make([]UserRow, 0, len(users))
		for i := range users {
			u := &users[i]
			row := UserRow{
				ID:            u.ID,
				Username:      u.Username,
				NomeCompleto:  u.FullName(),
				Email:         u.Email,
				FirstName:     u.FirstName,
				LastName:      u.LastName,
				IsActive:      u.IsActive,
				IsStaff:       u.IsStaff,
				IsSuperuser:   u.IsSuperuser,
				DateJoined:    u.DateJoined.In(loc).Format(dateTimeLayout),
				LastLogin:     formatTime(u.LastLogin, loc),
				UnidadesCount: unitCounts[u.ID],
				ChamadasCount: callCounts[u.ID],
				AvatarURL:     u.Profile.AvatarURL(),
			}
			if row.ChamadasCount > 0 {
				last, err := lastCall(db, u.ID)
				if err != nil {
					return err
				}
				if last != nil {
					row.UltimaAtividade = formatTime(&last.CreatedAt, loc)
				}
			}
			rows = append(rows, row)
		}

		totals, err := userTotals(db)
		if err != nil {
			return err
		}

		filtros := fiber.Map{}
		for _, p := range managementParams {
			filtros[p] = c.Query(p)
		}

		return c.JSON(fiber.Map{
			"success":        true,
			"usuarios":       pagination.NewResponse(rows, total, page),
			"totais":         totals,
			"filtros":        filtros,
			"filtros_ativos": spec.Active(),
		})
	}
}

// POST /api/usuarios
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		in, err := parseUserInput(c, true)
		if err != nil {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, "Dados inválidos.", nil)
		}

		user := &models.User{IsActive: true}
		in.apply(user)

		if msg := validateNewUser(user, in); msg != "" {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, msg, nil)
		}
		msg, err := uniqueness(database.DB, user)
		if err != nil {
			return err
		}
		if msg != "" {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, msg, nil)
		}

		hash, err := auth.HashPassword(in.Password1)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Erro ao processar a senha.")
		}
		user.PasswordHash = hash
		user.DateJoined = time.Now().UTC()

		if err := database.DB.Create(user).Error; err != nil {
			zap.L().Error("falha ao criar usuário", zap.String("username", user.Username), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, "Erro ao criar usuário.")
		}

		audit.Record(c, models.EntityUser, user.ID, models.AuditActionCreate,
			"Usuário criado: "+user.Username, nil, user)

		msg = fmt.Sprintf("Usuário \"%s\" criado com sucesso!", user.DisplayName())
		return respond.Outcome(c, fiber.StatusCreated, PageUsers, msg, auth.UserJSON(user))
	}
}

func validateNewUser(u *models.User, in *UserInput) string {
	switch {
	case u.Username == "":
		return "Nome de usuário é obrigatório."
	case u.FirstName == "":
		return "Nome é obrigatório."
	case in.Password1 == "":
		return "Senha é obrigatória."
	case in.Password1 != in.Password2:
		return "As senhas não coincidem."
	case len([]rune(in.Password1)) < auth.MinPasswordLength:
		return fmt.Sprintf("A senha deve ter pelo menos %d caracteres.", auth.MinPasswordLength)
	}
	return ""
}

// PUT /api/usuarios/:id
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := findUser(database.DB, c.Params("id"))
		if err != nil {
			return err
		}
		in, err := parseUserInput(c, false)
		if err != nil {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, "Dados inválidos.", nil)
		}

		before := *user
		in.apply(user)

		switch {
		case user.Username == "":
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, "Nome de usuário é obrigatório.", nil)
		case user.FirstName == "":
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, "Nome é obrigatório.", nil)
		case user.ID == auth.CurrentUserID(c) && !user.IsActive:
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, "Você não pode desativar sua própria conta.", nil)
		}
		msg, err := uniqueness(database.DB, user)
		if err != nil {
			return err
		}
		if msg != "" {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, msg, nil)
		}

		if err := database.DB.Model(user).Select(
			"Username", "Email", "FirstName", "LastName", "IsStaff", "IsActive", "UpdatedAt",
		).Updates(user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Erro ao atualizar usuário.")
		}

		audit.Record(c, models.EntityUser, user.ID, models.AuditActionUpdate,
			"Usuário atualizado: "+user.Username, before, user)

		msg = fmt.Sprintf("Usuário \"%s\" atualizado com sucesso!", user.DisplayName())
		return respond.Outcome(c, fiber.StatusOK, PageUsers, msg, auth.UserJSON(user))
	}
}

// POST /api/usuarios/:id/alternar-status
func ToggleStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := findUser(database.DB, c.Params("id"))
		if err != nil {
			return err
		}
		if user.ID == auth.CurrentUserID(c) {
			return respond.Outcome(c, fiber.StatusBadRequest, PageUsers, "Você não pode desativar sua própria conta.", nil)
		}

		before := *user
		user.IsActive = !user.IsActive
		if err := database.DB.Model(user).Update("is_active", user.IsActive).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Erro ao alterar status do usuário.")
		}

		status := "desativado"
		if user.IsActive {
			status = "ativado"
		}
		audit.Record(c, models.EntityUser, user.ID, models.AuditActionUpdate,
			fmt.Sprintf("Usuário %s: %s", status, user.Username), before, user)

		msg := fmt.Sprintf("Usuário \"%s\" %s com sucesso!", user.DisplayName(), status)
		return respond.Outcome(c, fiber.StatusOK, PageUsers, msg, fiber.Map{
			"id":        user.ID,
			"is_active": user.IsActive,
		})
	}
}
