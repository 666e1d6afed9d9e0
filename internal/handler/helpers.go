package handler

import (
	"errors"
	"reflect"

	"clinicapos/internal/apierror"
	"clinicapos/internal/middleware"
	"clinicapos/internal/model"
	"clinicapos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apierror.ErrBadRequest.WithMessage("JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, apierror.ErrBadRequest.WithMessage("Parametros invalidos: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(c, apierror.ErrBadRequest.Wrap(err))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	respondError(c, apierror.NewValidation(fields))
	return false
}

// respondError writes err as the standard envelope. Errors outside the
// apierror catalogue are logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	appErr, ok := apierror.As(err)
	if !ok {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("error no catalogado")
		appErr = apierror.ErrInternal
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apierror.ErrBadRequest.WithMessage("ID invalido").WithDetail(name, c.Param(name)))
		return uuid.Nil, false
	}
	return id, true
}

// parseRango reads desde/hasta (YYYY-MM-DD). Empty values yield nil.
func parseRango(c *gin.Context, desdeRaw, hastaRaw string) (desde, hasta *model.Fecha, ok bool) {
	parse := func(raw string) (*model.Fecha, bool) {
		if raw == "" {
			return nil, true
		}
		f, err := model.ParseFecha(raw)
		if err != nil {
			respondError(c, apierror.ErrInvalidDateRange.WithDetail("fecha", raw))
			return nil, false
		}
		return &f, true
	}
	if desde, ok = parse(desdeRaw); !ok {
		return nil, nil, false
	}
	if hasta, ok = parse(hastaRaw); !ok {
		return nil, nil, false
	}
	return desde, hasta, true
}

// actor builds the service actor from the authenticated claims.
func actor(c *gin.Context) service.Actor {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{ID: claims.UserID, Rol: claims.Rol}
}
