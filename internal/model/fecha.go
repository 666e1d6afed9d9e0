package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const layoutFecha = "2006-01-02"

// Fecha is a calendar date with no time-of-day and no zone. Ledger entries,
// sale dates and settlement periods are all Fecha so that storing, comparing
// and shifting them never crosses a timezone boundary.
type Fecha struct {
	Year  int
	Month time.Month
	Day   int
}

// NuevaFecha normalizes out-of-range values the way time.Date does.
func NuevaFecha(year int, month time.Month, day int) Fecha {
	return FechaDe(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FechaDe takes the calendar date of t in t's own location.
func FechaDe(t time.Time) Fecha {
	y, m, d := t.Date()
	return Fecha{Year: y, Month: m, Day: d}
}

// Hoy is today's date in the local zone of the process.
func Hoy() Fecha { return FechaDe(time.Now()) }

func ParseFecha(s string) (Fecha, error) {
	t, err := time.Parse(layoutFecha, s)
	if err != nil {
		return Fecha{}, fmt.Errorf("fecha %q: se espera AAAA-MM-DD", s)
	}
	return FechaDe(t), nil
}

func (f Fecha) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", f.Year, int(f.Month), f.Day)
}

// Time returns midnight UTC of f, for arithmetic only.
func (f Fecha) Time() time.Time {
	return time.Date(f.Year, f.Month, f.Day, 0, 0, 0, 0, time.UTC)
}

func (f Fecha) IsZero() bool { return f.Year == 0 && f.Month == 0 && f.Day == 0 }

// Compare returns -1, 0 or +1.
func (f Fecha) Compare(o Fecha) int {
	switch {
	case f.Year != o.Year:
		return cmpInt(f.Year, o.Year)
	case f.Month != o.Month:
		return cmpInt(int(f.Month), int(o.Month))
	default:
		return cmpInt(f.Day, o.Day)
	}
}

func (f Fecha) Before(o Fecha) bool { return f.Compare(o) < 0 }
func (f Fecha) After(o Fecha) bool  { return f.Compare(o) > 0 }

func (f Fecha) AddDays(n int) Fecha { return FechaDe(f.Time().AddDate(0, 0, n)) }

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func (f Fecha) MarshalJSON() ([]byte, error) {
	if f.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(f.String())
}

func (f *Fecha) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*f = Fecha{}
		return nil
	}
	v, err := ParseFecha(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Value stores the date as a plain 'YYYY-MM-DD' literal.
func (f Fecha) Value() (driver.Value, error) {
	if f.IsZero() {
		return nil, nil
	}
	return f.String(), nil
}

func (f *Fecha) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*f = Fecha{}
	case time.Time:
		*f = FechaDe(v)
	case string:
		return f.scanString(v)
	case []byte:
		return f.scanString(string(v))
	default:
		return fmt.Errorf("fecha: tipo no soportado %T", src)
	}
	return nil
}

func (f *Fecha) scanString(s string) error {
	if len(s) > len(layoutFecha) {
		s = s[:len(layoutFecha)]
	}
	v, err := ParseFecha(s)
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// GormDataType makes AutoMigrate create a SQL date column.
func (Fecha) GormDataType() string { return "date" }
