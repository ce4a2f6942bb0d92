package filter

import (
	"strconv"
	"time"
)

// CallHistory: tipo, status, data_inicio, data_fim, busca.
func CallHistory(q Lookup, loc *time.Location) Spec {
	var s Spec
	s.equals(q, "tipo", "call_type")
	s.equals(q, "status", "status")
	s.dayFrom(q, "data_inicio", "created_at", loc)
	s.dayTo(q, "data_fim", "created_at", loc)
	s.contains(q, "busca", "contact_name", "phone", "unit_name", "description", "attendant_name")
	s.Order = []string{"created_at DESC", "id DESC"}
	return s
}

// Units: busca, tipo, municipio; ordenado por nome.
func Units(q Lookup) Spec {
	var s Spec
	s.contains(q, "busca", "name", "phone", "manager", "municipality")
	s.equals(q, "tipo", "type")
	s.contains(q, "municipio", "municipality")
	s.Order = []string{"name ASC", "id ASC"}
	return s
}

// UserExport: busca, is_active, is_staff; mais recentes primeiro.
func UserExport(q Lookup) Spec {
	var s Spec
	s.contains(q, "busca", "username", "first_name", "last_name", "email")
	s.flag(q, "is_active", "is_active")
	s.flag(q, "is_staff", "is_staff")
	s.Order = []string{"date_joined DESC", "id DESC"}
	return s
}

var userOrders = map[string]string{
	"username":     "username ASC",
	"-username":    "username DESC",
	"first_name":   "first_name ASC",
	"-first_name":  "first_name DESC",
	"date_joined":  "date_joined ASC",
	"-date_joined": "date_joined DESC",
	"last_login":   "last_login ASC",
	"-last_login":  "last_login DESC",
	"email":        "email ASC",
	"-email":       "email DESC",
}

// UserManagement: filtros da tela de gerenciamento de usuários.
// Ordem: busca, is_active, is_staff, has_email, date_from, date_to, atividade_periodo.
func UserManagement(q Lookup, loc *time.Location, now time.Time) Spec {
	s := UserExport(q)

	if v := Clean(q("has_email")); v != "" {
		if b, ok := ParseBool(v); ok {
			s.add(Predicate{Kind: Filled, Param: "has_email", Raw: v, Columns: []string{"email"}, Bool: b})
		}
	}
	s.dayFrom(q, "date_from", "date_joined", loc)
	s.dayTo(q, "date_to", "date_joined", loc)

	if v := Clean(q("atividade_periodo")); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			s.add(Predicate{
				Kind:    ActiveSince,
				Param:   "atividade_periodo",
				Raw:     v,
				Columns: []string{"id"},
				Time:    now.AddDate(0, 0, -days).UTC(),
			})
		}
	}

	order, ok := userOrders[Clean(q("order_by"))]
	if !ok {
		order = "date_joined DESC"
	}
	s.Order = []string{order, "id DESC"}
	return s
}

// AllWords exige cada palavra em column (AND); usado na consulta local de unidades.
func AllWords(param, column string, words ...string) Spec {
	var s Spec
	for _, w := range words {
		if w = Clean(w); w != "" {
			s.add(Predicate{Kind: ContainsAny, Param: param, Raw: w, Columns: []string{column}, Text: w})
		}
	}
	return s
}
