// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
//
// Every error kind the core can raise has a sentinel below. Services return the
// sentinel (or a copy enriched with details); handlers map it to its HTTP status.
// errors.Is matches by Code, so enriched copies still compare equal.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. They are part of the public API contract.
const (
	CodeValidation               = "VALIDATION_ERROR"
	CodeBadRequest               = "BAD_REQUEST"
	CodeInvalidBreakdown         = "INVALID_BREAKDOWN"
	CodeInvalidDenomination      = "INVALID_DENOMINATION"
	CodeInvalidCount             = "INVALID_COUNT"
	CodeInvalidDateRange         = "INVALID_DATE_RANGE"
	CodeInvalidAmount            = "INVALID_AMOUNT"
	CodeInsufficientPayment      = "INSUFFICIENT_PAYMENT"
	CodeNothingToSettle          = "NOTHING_TO_SETTLE"
	CodeNotFound                 = "NOT_FOUND"
	CodeShiftAlreadyOpen         = "SHIFT_ALREADY_OPEN"
	CodeShiftClosed              = "SHIFT_CLOSED"
	CodeDuplicateSettlement      = "DUPLICATE_SETTLEMENT_WINDOW"
	CodeAlreadyVoided            = "ALREADY_VOIDED"
	CodeConcurrentSettlement     = "CONCURRENT_SETTLEMENT"
	CodeCommissionAlreadySettled = "COMMISSION_ALREADY_SETTLED"
	CodeMirroredEntry            = "MIRRORED_ENTRY"
	CodeMissingInitialBalance    = "MISSING_INITIAL_BALANCE"
	CodeNoActiveShift            = "NO_ACTIVE_SHIFT"
	CodeAuthorizationRequired    = "AUTHORIZATION_REQUIRED"
	CodeUnauthorized             = "UNAUTHORIZED"
	CodeForbidden                = "FORBIDDEN"
	CodeInternal                 = "INTERNAL_ERROR"
)

// DetailCausa is the details key carrying the code of a wrapped AppError.
const DetailCausa = "causa"

// AppError is the canonical error envelope for all 4xx/5xx HTTP responses.
type AppError struct {
	Code       string            `json:"code"`
	Detail     string            `json:"detail"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func newAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Detail: msg, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func (e *AppError) clone() *AppError {
	cp := *e
	if e.Details != nil {
		cp.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			cp.Details[k] = v
		}
	}
	return &cp
}

// WithDetail returns a copy of e carrying key=value. Sentinels are never mutated.
func (e *AppError) WithDetail(key, value string) *AppError {
	cp := e.clone()
	if cp.Details == nil {
		cp.Details = make(map[string]string)
	}
	cp.Details[key] = value
	return cp
}

// WithMessage returns a copy of e with a more specific message.
func (e *AppError) WithMessage(msg string) *AppError {
	cp := e.clone()
	cp.Detail = msg
	return cp
}

// Wrap returns a copy of e wrapping the underlying cause. When the cause is
// itself an AppError its code is exposed as details["causa"] and its details
// are merged in, so the response still names the inner kind.
func (e *AppError) Wrap(err error) *AppError {
	cp := e.clone()
	cp.Err = err
	if inner, ok := As(err); ok {
		if cp.Details == nil {
			cp.Details = make(map[string]string, len(inner.Details)+1)
		}
		for k, v := range inner.Details {
			if _, taken := cp.Details[k]; !taken {
				cp.Details[k] = v
			}
		}
		cp.Details[DetailCausa] = inner.Code
	}
	return cp
}

// Validation
var (
	ErrBadRequest          = newAppError(CodeBadRequest, http.StatusBadRequest, "Solicitud invalida")
	ErrInvalidBreakdown    = newAppError(CodeInvalidBreakdown, http.StatusBadRequest, "Desglose de efectivo invalido")
	ErrInvalidDenomination = newAppError(CodeInvalidDenomination, http.StatusBadRequest, "Denominacion no reconocida")
	ErrInvalidCount        = newAppError(CodeInvalidCount, http.StatusBadRequest, "La cantidad de piezas no puede ser negativa")
	ErrInvalidDateRange    = newAppError(CodeInvalidDateRange, http.StatusBadRequest, "Rango de fechas invalido")
	ErrInvalidAmount       = newAppError(CodeInvalidAmount, http.StatusBadRequest, "Monto invalido")
	ErrInsufficientPayment = newAppError(CodeInsufficientPayment, http.StatusBadRequest, "El monto total de pagos es insuficiente")
	ErrNothingToSettle     = newAppError(CodeNothingToSettle, http.StatusBadRequest, "No hay comisiones pendientes en el periodo")
)

// State conflicts
var (
	ErrNotFound                 = newAppError(CodeNotFound, http.StatusNotFound, "Recurso no encontrado")
	ErrShiftAlreadyOpen         = newAppError(CodeShiftAlreadyOpen, http.StatusConflict, "Ya existe un turno abierto")
	ErrShiftClosed              = newAppError(CodeShiftClosed, http.StatusConflict, "El turno ya esta cerrado")
	ErrDuplicateSettlement      = newAppError(CodeDuplicateSettlement, http.StatusConflict, "Un pago activo ya cubre parte de este periodo; autorice para continuar")
	ErrAlreadyVoided            = newAppError(CodeAlreadyVoided, http.StatusConflict, "El registro ya fue anulado")
	ErrConcurrentSettlement     = newAppError(CodeConcurrentSettlement, http.StatusConflict, "Otra liquidacion tomo parte de las comisiones; reintente")
	ErrCommissionAlreadySettled = newAppError(CodeCommissionAlreadySettled, http.StatusConflict, "La venta tiene comisiones ya pagadas")
	ErrMirroredEntry            = newAppError(CodeMirroredEntry, http.StatusConflict, "El movimiento pertenece a una operacion de turno o comision; anule el origen")
)

// Preconditions
var (
	ErrMissingInitialBalance = newAppError(CodeMissingInitialBalance, http.StatusPreconditionFailed, "No hay saldo inicial activo registrado")
	ErrNoActiveShift         = newAppError(CodeNoActiveShift, http.StatusPreconditionFailed, "No hay turno abierto")
)

// Authorization
var (
	ErrAuthorizationRequired = newAppError(CodeAuthorizationRequired, http.StatusForbidden, "El descuadre excede la tolerancia; se requiere autorizacion")
	ErrUnauthorized          = newAppError(CodeUnauthorized, http.StatusUnauthorized, "Autenticacion requerida")
	ErrForbidden             = newAppError(CodeForbidden, http.StatusForbidden, "Permisos insuficientes")
)

var ErrInternal = newAppError(CodeInternal, http.StatusInternalServerError, "Error interno del servidor")

// NewValidation wraps multiple field errors.
func NewValidation(fields map[string]string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Detail:     "Error de validacion",
		Details:    fields,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// As extracts the AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
