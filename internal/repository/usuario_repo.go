package repository

import (
	"context"

	"clinicapos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsuarioRepository stores operator accounts. Lookups used for login and
// token refresh only return active users.
type UsuarioRepository interface {
	Create(ctx context.Context, u *model.Usuario) error
	FindByUsername(ctx context.Context, login string) (*model.Usuario, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error)
	List(ctx context.Context) ([]model.Usuario, error)
	// Restablecer overwrites credentials, role and name of an existing
	// account and reactivates it. Returns gorm.ErrRecordNotFound when no
	// account has that username.
	Restablecer(ctx context.Context, u *model.Usuario) error
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) Create(ctx context.Context, u *model.Usuario) error {
	return conn(ctx, r.db, nil).Create(u).Error
}

// FindByUsername matches the username exactly or the email ignoring case.
func (r *usuarioRepo) FindByUsername(ctx context.Context, login string) (*model.Usuario, error) {
	var u model.Usuario
	err := conn(ctx, r.db, nil).
		Where("activo AND (username = ? OR LOWER(email) = LOWER(?))", login, login).
		Take(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *usuarioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error) {
	var u model.Usuario
	if err := conn(ctx, r.db, nil).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *usuarioRepo) List(ctx context.Context) ([]model.Usuario, error) {
	var out []model.Usuario
	err := conn(ctx, r.db, nil).Where("activo").Order("username").Find(&out).Error
	return out, err
}

func (r *usuarioRepo) Restablecer(ctx context.Context, u *model.Usuario) error {
	res := conn(ctx, r.db, nil).Model(&model.Usuario{}).
		Where("username = ?", u.Username).
		Updates(map[string]interface{}{
			"password_hash": u.PasswordHash,
			"rol":           u.Rol,
			"nombre":        u.Nombre,
			"activo":        true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
