package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/bsm/redislock"
	"github.com/stretchr/testify/assert"
)

type fakeAuditor struct {
	desvios int
	err     error
	calls   int
}

func (a *fakeAuditor) Auditar(context.Context) (int, error) {
	a.calls++
	return a.desvios, a.err
}

func TestAuditoria_EjecutaConLock(t *testing.T) {
	aud := &fakeAuditor{desvios: 2}
	released := false
	a := &Auditoria{auditor: aud, lock: func(context.Context) (func(), error) {
		return func() { released = true }, nil
	}}

	n, ok := a.Ejecutar(context.Background())
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.True(t, released)
}

func TestAuditoria_OtraReplicaTieneElLock(t *testing.T) {
	aud := &fakeAuditor{}
	a := &Auditoria{auditor: aud, lock: func(context.Context) (func(), error) {
		return nil, redislock.ErrNotObtained
	}}

	_, ok := a.Ejecutar(context.Background())
	assert.False(t, ok)
	assert.Zero(t, aud.calls)
}

func TestAuditoria_ErrorDelAuditorLiberaLock(t *testing.T) {
	aud := &fakeAuditor{err: errors.New("sin saldo inicial")}
	released := false
	a := &Auditoria{auditor: aud, lock: func(context.Context) (func(), error) {
		return func() { released = true }, nil
	}}

	_, ok := a.Ejecutar(context.Background())
	assert.False(t, ok)
	assert.True(t, released)
}
