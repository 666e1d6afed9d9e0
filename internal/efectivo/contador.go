// Package efectivo counts physical cash: a drawer declaration is a map of
// denomination -> pieces for bills and another for coins.
package efectivo

import (
	"fmt"
	"sort"
	"strings"

	"clinicapos/internal/apierror"

	"github.com/shopspring/decimal"
)

// Conteo maps a denomination (decimal string, e.g. "100" or "0.25") to a piece count.
type Conteo map[string]int

// Desglose is a full drawer declaration.
type Desglose struct {
	Billetes Conteo `json:"billetes"`
	Monedas  Conteo `json:"monedas"`
}

var (
	DefaultBilletes = []string{"200", "100", "50", "20", "10", "5", "1"}
	DefaultMonedas  = []string{"1", "0.50", "0.25", "0.10", "0.05"}
)

// Contador knows the accepted denominations. It holds no other state and is safe
// for concurrent use.
type Contador struct {
	billetes []decimal.Decimal
	monedas  []decimal.Decimal
}

// NuevoContador parses the accepted bill and coin denominations.
func NuevoContador(billetes, monedas []string) (*Contador, error) {
	b, err := parseDenominaciones(billetes)
	if err != nil {
		return nil, fmt.Errorf("billetes: %w", err)
	}
	m, err := parseDenominaciones(monedas)
	if err != nil {
		return nil, fmt.Errorf("monedas: %w", err)
	}
	return &Contador{billetes: b, monedas: m}, nil
}

// MustContador is NuevoContador for static configuration; it panics on bad input.
func MustContador(billetes, monedas []string) *Contador {
	c, err := NuevoContador(billetes, monedas)
	if err != nil {
		panic(err)
	}
	return c
}

func parseDenominaciones(raw []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("denominacion %q: %w", s, err)
		}
		if !d.IsPositive() {
			return nil, fmt.Errorf("denominacion %q debe ser positiva", s)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GreaterThan(out[j]) })
	return out, nil
}

// Total returns Σ(denomination × count) over both maps.
// Unknown keys fail with ErrInvalidDenomination, negative counts with ErrInvalidCount.
func (c *Contador) Total(billetes, monedas Conteo) (decimal.Decimal, error) {
	tb, err := sumar(billetes, c.billetes)
	if err != nil {
		return decimal.Zero, err
	}
	tm, err := sumar(monedas, c.monedas)
	if err != nil {
		return decimal.Zero, err
	}
	return tb.Add(tm).Round(2), nil
}

// TotalDesglose is Total over a Desglose.
func (c *Contador) TotalDesglose(d Desglose) (decimal.Decimal, error) {
	return c.Total(d.Billetes, d.Monedas)
}

// Billetes returns the accepted bill denominations, largest first.
func (c *Contador) Billetes() []string { return formatear(c.billetes) }

// Monedas returns the accepted coin denominations, largest first.
func (c *Contador) Monedas() []string { return formatear(c.monedas) }

func sumar(conteo Conteo, aceptadas []decimal.Decimal) (decimal.Decimal, error) {
	total := decimal.Zero
	for key, n := range conteo {
		d, err := decimal.NewFromString(strings.TrimSpace(key))
		if err != nil || !contiene(aceptadas, d) {
			return decimal.Zero, apierror.ErrInvalidDenomination.WithDetail("denominacion", key)
		}
		if n < 0 {
			return decimal.Zero, apierror.ErrInvalidCount.WithDetail("denominacion", key)
		}
		total = total.Add(d.Mul(decimal.NewFromInt(int64(n))))
	}
	return total, nil
}

func contiene(set []decimal.Decimal, d decimal.Decimal) bool {
	for _, x := range set {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

func formatear(ds []decimal.Decimal) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}
