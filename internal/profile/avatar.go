package profile

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"central-chamadas-backend/internal/auth"
	"central-chamadas-backend/internal/config"
	"central-chamadas-backend/internal/database"
	"central-chamadas-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNoFile      = errors.New("Nenhum arquivo enviado")
	ErrTooLarge    = errors.New("Arquivo muito grande (máximo 2MB)")
	ErrNotAnImage  = errors.New("Formato de arquivo inválido (apenas imagens)")
	imageExtension = map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
	}
)

// SniffImage devolve a extensão (jpg ou png) pelo conteúdo, não pelo nome do arquivo.
func SniffImage(head []byte) (string, error) {
	ext, ok := imageExtension[http.DetectContentType(head)]
	if !ok {
		return "", ErrNotAnImage
	}
	return ext, nil
}

// removeFile ignora arquivo inexistente; outras falhas só são registradas.
func removeFile(mediaPath, rel string) {
	if rel == "" {
		return
	}
	full := filepath.Join(mediaPath, filepath.FromSlash(rel))
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		zap.L().Warn("falha ao remover avatar", zap.String("arquivo", full), zap.Error(err))
	}
}

// SaveAvatar grava em arquivo temporário e renomeia para avatars/user_{id}_avatar.{ext}.
func SaveAvatar(mediaPath string, userID uint, r io.Reader, size int64) (string, error) {
	if size > models.MaxAvatarBytes {
		return "", ErrTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(r, models.MaxAvatarBytes+1))
	if err != nil {
		return "", fmt.Errorf("ler avatar: %w", err)
	}
	if len(data) > models.MaxAvatarBytes {
		return "", ErrTooLarge
	}
	ext, err := SniffImage(data)
	if err != nil {
		return "", err
	}

	rel := models.AvatarPath(userID, ext)
	full := filepath.Join(mediaPath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("criar diretório de avatares: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(full), ".upload-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("gravar avatar: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("gravar avatar: %w", err)
	}
	return rel, nil
}

func loadProfile(userID uint) (*models.UserProfile, error) {
	var p models.UserProfile
	err := database.DB.Where(models.UserProfile{UserID: userID}).FirstOrCreate(&p).Error
	return &p, err
}

// POST /api/perfil/avatar (multipart, campo "avatar")
func UploadAvatarHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := auth.CurrentUserID(c)

		fh, err := c.FormFile("avatar")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, ErrNoFile.Error())
		}
		if fh.Size > models.MaxAvatarBytes {
			return fiber.NewError(fiber.StatusBadRequest, ErrTooLarge.Error())
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, ErrNoFile.Error())
		}
		defer f.Close()

		p, err := loadProfile(userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Perfil não encontrado")
		}
		old := p.Avatar

		rel, err := SaveAvatar(cfg.MediaPath, userID, f, fh.Size)
		switch {
		case errors.Is(err, ErrTooLarge), errors.Is(err, ErrNotAnImage):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			zap.L().Error("falha no upload de avatar", zap.Uint("user_id", userID), zap.Error(err))
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		// jpg -> png deixa o arquivo antigo com outro nome
		if old != "" && old != rel {
			removeFile(cfg.MediaPath, old)
		}

		p.Avatar = rel
		if err := database.DB.Model(p).Update("avatar", rel).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{
			"success":    true,
			"message":    "Foto enviada com sucesso!",
			"avatar_url": p.AvatarURL(),
		})
	}
}

// DELETE /api/perfil/avatar
func RemoveAvatarHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p models.UserProfile
		if err := database.DB.Where("user_id = ?", auth.CurrentUserID(c)).First(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Perfil não encontrado")
		}
		if p.Avatar != "" {
			removeFile(cfg.MediaPath, p.Avatar)
			if err := database.DB.Model(&p).Update("avatar", "").Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, err.Error())
			}
		}
		return c.JSON(fiber.Map{"success": true, "message": "Foto removida com sucesso!"})
	}
}
