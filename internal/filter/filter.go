// Package filter turns request parameters into an explicit list of predicates.
//
// Each listing builds a Spec once per request; predicates are applied in the order
// they were appended, which is the documented order of the builder that produced
// them. Parameters that are blank or malformed never produce a predicate.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type Kind int

const (
	// Equals column = Text
	Equals Kind = iota
	// ContainsAny LOWER(col) LIKE %text% em qualquer das colunas (OR)
	ContainsAny
	// OnOrAfter column >= Time
	OnOrAfter
	// Before column < Time
	Before
	// Flag column = Bool
	Flag
	// Filled column <> '' quando Bool, column = '' caso contrário
	Filled
	// ActiveSince usuários com chamadas criadas a partir de Time
	ActiveSince
)

type Predicate struct {
	Kind    Kind
	Param   string
	Raw     string
	Columns []string
	Text    string
	Time    time.Time
	Bool    bool
}

type Spec struct {
	Predicates []Predicate
	Order      []string
}

// Lookup lê um parâmetro da requisição.
type Lookup func(key string) string

func FromFiber(c *fiber.Ctx) Lookup {
	return func(key string) string { return c.Query(key) }
}

// FromMap útil para o CLI e para testes.
func FromMap(m map[string]string) Lookup {
	return func(key string) string { return m[key] }
}

func (s *Spec) add(p Predicate) {
	s.Predicates = append(s.Predicates, p)
}

// Apply aplica apenas os predicados.
func (s Spec) Apply(db *gorm.DB) *gorm.DB {
	for _, p := range s.Predicates {
		db = p.apply(db)
	}
	return db
}

// Query aplica predicados e ordenação.
func (s Spec) Query(db *gorm.DB) *gorm.DB {
	db = s.Apply(db)
	for _, o := range s.Order {
		db = db.Order(o)
	}
	return db
}

// Active devolve os filtros efetivamente aplicados, por parâmetro.
func (s Spec) Active() map[string]string {
	out := make(map[string]string, len(s.Predicates))
	for _, p := range s.Predicates {
		out[p.Param] = p.Raw
	}
	return out
}

func (p Predicate) apply(db *gorm.DB) *gorm.DB {
	switch p.Kind {
	case Equals:
		return db.Where(fmt.Sprintf("%s = ?", p.Columns[0]), p.Text)
	case ContainsAny:
		// sem caixa com acentos só no Postgres; LOWER do SQLite dobra apenas ASCII
		pattern := "%" + escapeLike(strings.ToLower(p.Text)) + "%"
		clauses := make([]string, 0, len(p.Columns))
		args := make([]any, 0, len(p.Columns))
		for _, col := range p.Columns {
			clauses = append(clauses, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col))
			args = append(args, pattern)
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	case OnOrAfter:
		return db.Where(fmt.Sprintf("%s >= ?", p.Columns[0]), p.Time)
	case Before:
		return db.Where(fmt.Sprintf("%s < ?", p.Columns[0]), p.Time)
	case Flag:
		return db.Where(fmt.Sprintf("%s = ?", p.Columns[0]), p.Bool)
	case Filled:
		if p.Bool {
			return db.Where(fmt.Sprintf("%s IS NOT NULL AND %s <> ''", p.Columns[0], p.Columns[0]))
		}
		return db.Where(fmt.Sprintf("(%s IS NULL OR %s = '')", p.Columns[0], p.Columns[0]))
	case ActiveSince:
		return db.Where(fmt.Sprintf(
			"%s IN (SELECT DISTINCT created_by_id FROM call_records WHERE created_at >= ? AND created_by_id IS NOT NULL)",
			p.Columns[0]), p.Time)
	}
	return db
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Clean remove espaços e trata "none", "null", "undefined" como ausentes.
func Clean(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "none", "null", "undefined":
		return ""
	}
	return v
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "01/02/2006"}

// ParseDate aceita YYYY-MM-DD, DD/MM/YYYY e MM/DD/YYYY, nessa ordem.
func ParseDate(v string, loc *time.Location) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBool só reconhece true/false (e 1/0); o resto é ignorado.
func ParseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

func (s *Spec) equals(q Lookup, param, column string) {
	if v := Clean(q(param)); v != "" {
		s.add(Predicate{Kind: Equals, Param: param, Raw: v, Columns: []string{column}, Text: v})
	}
}

func (s *Spec) contains(q Lookup, param string, columns ...string) {
	if v := Clean(q(param)); v != "" {
		s.add(Predicate{Kind: ContainsAny, Param: param, Raw: v, Columns: columns, Text: v})
	}
}

func (s *Spec) dayFrom(q Lookup, param, column string, loc *time.Location) {
	v := Clean(q(param))
	if v == "" {
		return
	}
	if d, ok := ParseDate(v, loc); ok {
		s.add(Predicate{Kind: OnOrAfter, Param: param, Raw: v, Columns: []string{column}, Time: d.UTC()})
	}
}

func (s *Spec) dayTo(q Lookup, param, column string, loc *time.Location) {
	v := Clean(q(param))
	if v == "" {
		return
	}
	if d, ok := ParseDate(v, loc); ok {
		s.add(Predicate{Kind: Before, Param: param, Raw: v, Columns: []string{column}, Time: d.AddDate(0, 0, 1).UTC()})
	}
}

func (s *Spec) flag(q Lookup, param, column string) {
	v := Clean(q(param))
	if b, ok := ParseBool(v); ok {
		s.add(Predicate{Kind: Flag, Param: param, Raw: v, Columns: []string{column}, Bool: b})
	}
}
