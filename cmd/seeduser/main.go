// Command seeduser creates or resets a user so a fresh install can log in.
//
//	go run ./cmd/seeduser -username admin -password 's3creto!' -rol administrador
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"clinicapos/internal/apierror"
	"clinicapos/internal/config"
	"clinicapos/internal/dto"
	"clinicapos/internal/infra"
	"clinicapos/internal/model"
	"clinicapos/internal/repository"
	"clinicapos/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	username := flag.String("username", "admin", "nombre de usuario")
	password := flag.String("password", "", "contraseña (min 8)")
	nombre := flag.String("nombre", "Administrador", "nombre visible")
	rol := flag.String("rol", model.RolAdministrador, "cajero | supervisor | administrador")
	flag.Parse()

	if len(*password) < 8 {
		log.Fatal().Msg("-password es obligatorio (min 8 caracteres)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := infra.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	ctx := context.Background()
	repo := repository.NewUsuarioRepository(db)
	svc := service.NewAuthService(repo, cfg)

	_, err = svc.CrearUsuario(ctx, dto.CrearUsuarioRequest{
		Username: *username,
		Nombre:   *nombre,
		Password: *password,
		Rol:      *rol,
	})
	if err == nil {
		log.Info().Str("username", *username).Str("rol", *rol).Msg("usuario creado")
		return
	}

	// CrearUsuario reports a taken username as BAD_REQUEST.
	if !errors.Is(err, apierror.ErrBadRequest) {
		log.Fatal().Err(err).Msg("no se pudo crear el usuario")
	}

	// Existing user: reset password and role.
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt")
	}
	err = repo.Restablecer(ctx, &model.Usuario{
		Username:     *username,
		Nombre:       *nombre,
		PasswordHash: string(hash),
		Rol:          *rol,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("no se pudo actualizar el usuario")
	}
	log.Info().Str("username", *username).Str("rol", *rol).Msg("usuario actualizado")
}
