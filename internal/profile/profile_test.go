package profile_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/profile"
	"central-chamadas-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fixture struct {
	db    *gorm.DB
	cfg   *config.Config
	app   *fiber.App
	user  *models.User
	token string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupDB(t)
	cfg := testutil.Config(t)
	user := testutil.CreateUser(t, db, "atendente", false)

	app := testutil.App()
	api := app.Group("/api", auth.JWTMiddleware(cfg))
	api.Get("/perfil", profile.GetHandler())
	api.Put("/perfil", profile.UpdateHandler())
	api.Post("/perfil/senha", profile.ChangePasswordHandler())
	api.Post("/perfil/avatar", profile.UploadAvatarHandler(cfg))
	api.Delete("/perfil/avatar", profile.RemoveAvatarHandler(cfg))

	return &fixture{db: db, cfg: cfg, app: app, user: user, token: testutil.Token(t, cfg, user)}
}

func (f *fixture) do(t *testing.T, method, target, body string) *http.Response {
	return testutil.Do(t, f.app, testutil.JSONRequest(method, target, body, f.token))
}

func (f *fixture) upload(t *testing.T, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/perfil/avatar", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.token)
	return testutil.Do(t, f.app, req)
}

func (f *fixture) avatar(t *testing.T) string {
	t.Helper()
	var p models.UserProfile
	require.NoError(t, f.db.Where("user_id = ?", f.user.ID).First(&p).Error)
	return p.Avatar
}

func TestUpdateProfile(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.db, "ocupado", false)

	resp := f.do(t, http.MethodPut, "/api/perfil", `{"username": "ocupado", "first_name": "Ana"}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Este nome de usuário já está em uso.", testutil.Body(t, resp)["message"])

	resp = f.do(t, http.MethodPut, "/api/perfil", `{"username": "ana", "first_name": "Ana", "email": "OCUPADO@saude.ms.gov.br"}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Este email já está em uso.", testutil.Body(t, resp)["message"])

	resp = f.do(t, http.MethodPut, "/api/perfil", `{"username": "ana", "last_name": "Lima"}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Nome é obrigatório.", testutil.Body(t, resp)["message"])

	resp = f.do(t, http.MethodPut, "/api/perfil", `{"username": "ana", "first_name": "Ana", "last_name": "Lima", "email": "ana@saude.ms.gov.br"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Perfil atualizado com sucesso!", testutil.Body(t, resp)["message"])

	var stored models.User
	require.NoError(t, f.db.First(&stored, f.user.ID).Error)
	assert.Equal(t, "ana", stored.Username)
	assert.Equal(t, "Ana Lima", stored.FullName())
}

func TestUpdateProfile_FormRedirect(t *testing.T) {
	f := setup(t)

	form := url.Values{"username": {"atendente"}, "first_name": {"Ana"}}
	resp := testutil.Do(t, f.app, testutil.FormRequest(http.MethodPut, "/api/perfil", form, f.token))
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, profile.PageProfile, resp.Header.Get("Location"))
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "flash=")
}

func TestChangePassword(t *testing.T) {
	f := setup(t)

	cases := []struct{ body, msg string }{
		{`{"old_password": "errada", "new_password1": "nova-senha-1", "new_password2": "nova-senha-1"}`, "Senha atual incorreta."},
		{`{"old_password": "senha-forte-123", "new_password1": "nova-senha-1", "new_password2": "outra-senha"}`, "As senhas não coincidem."},
		{`{"old_password": "senha-forte-123", "new_password1": "curta", "new_password2": "curta"}`, "A senha deve ter pelo menos 8 caracteres."},
	}
	for _, tc := range cases {
		resp := f.do(t, http.MethodPost, "/api/perfil/senha", tc.body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, tc.msg, testutil.Body(t, resp)["message"])
	}

	resp := f.do(t, http.MethodPost, "/api/perfil/senha",
		`{"old_password": "senha-forte-123", "new_password1": "nova-senha-1", "new_password2": "nova-senha-1"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored models.User
	require.NoError(t, f.db.First(&stored, f.user.ID).Error)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "nova-senha-1"))
}

func TestUploadAvatar(t *testing.T) {
	f := setup(t)

	resp := f.upload(t, "foto.png", pngHeader)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := testutil.Body(t, resp)
	want := "avatars/user_" + itoa(f.user.ID) + "_avatar.png"
	assert.Equal(t, "/media/"+want, body["avatar_url"])
	assert.Equal(t, want, f.avatar(t))
	assert.FileExists(t, filepath.Join(f.cfg.MediaPath, want))
}

func TestUploadAvatar_ReplacesOldFile(t *testing.T) {
	f := setup(t)

	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0}, 32)...)
	require.Equal(t, fiber.StatusOK, f.upload(t, "foto.jpg", jpeg).StatusCode)
	old := filepath.Join(f.cfg.MediaPath, f.avatar(t))
	assert.FileExists(t, old)

	require.Equal(t, fiber.StatusOK, f.upload(t, "foto.png", pngHeader).StatusCode)
	assert.NoFileExists(t, old)
	assert.FileExists(t, filepath.Join(f.cfg.MediaPath, f.avatar(t)))
}

func TestUploadAvatar_Rejects(t *testing.T) {
	f := setup(t)

	resp := f.upload(t, "foto.png", []byte("não sou imagem"))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Formato de arquivo inválido (apenas imagens)", testutil.Body(t, resp)["message"])

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, models.MaxAvatarBytes)...)
	resp = f.upload(t, "grande.png", big)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Arquivo muito grande (máximo 2MB)", testutil.Body(t, resp)["message"])

	assert.Empty(t, f.avatar(t))
}

func TestRemoveAvatar(t *testing.T) {
	f := setup(t)
	require.Equal(t, fiber.StatusOK, f.upload(t, "foto.png", pngHeader).StatusCode)
	file := filepath.Join(f.cfg.MediaPath, f.avatar(t))

	resp := f.do(t, http.MethodDelete, "/api/perfil/avatar", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Foto removida com sucesso!", testutil.Body(t, resp)["message"])
	assert.Empty(t, f.avatar(t))
	assert.NoFileExists(t, file)

	// arquivo já ausente
	require.NoError(t, f.db.Model(&models.UserProfile{}).Where("user_id = ?", f.user.ID).Update("avatar", "avatars/sumiu.png").Error)
	resp = f.do(t, http.MethodDelete, "/api/perfil/avatar", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSniffImage(t *testing.T) {
	ext, err := profile.SniffImage(pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "png", ext)

	_, err = profile.SniffImage([]byte("GIF89a"))
	assert.ErrorIs(t, err, profile.ErrNotAnImage)
}

func TestSaveAvatar_TooLarge(t *testing.T) {
	dir := t.TempDir()
	_, err := profile.SaveAvatar(dir, 1, bytes.NewReader(pngHeader), models.MaxAvatarBytes+1)
	assert.ErrorIs(t, err, profile.ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func itoa(id uint) string {
	return fmt.Sprint(id)
}
