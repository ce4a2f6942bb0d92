package filter_test

import (
	"testing"
	"time"

	"central-chamadas-backend/internal/filter"
	"central-chamadas-backend/internal/models"
	"central-chamadas-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var campoGrande, _ = time.LoadLocation("America/Campo_Grande")

func callIDs(t *testing.T, db *gorm.DB, s filter.Spec) []uint {
	t.Helper()
	var ids []uint
	require.NoError(t, s.Query(db.Model(&models.CallRecord{})).Pluck("id", &ids).Error)
	return ids
}

func TestClean(t *testing.T) {
	for _, v := range []string{"", "  ", "none", "NULL", "undefined"} {
		assert.Empty(t, filter.Clean(v), v)
	}
	assert.Equal(t, "abc", filter.Clean(" abc "))
}

func TestParseDate_Layouts(t *testing.T) {
	iso, ok := filter.ParseDate("2024-03-05", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.March, iso.Month())

	br, ok := filter.ParseDate("05/03/2024", time.UTC)
	require.True(t, ok)
	assert.Equal(t, iso, br)

	// dia > 12 só é aceito pelo formato americano
	us, ok := filter.ParseDate("03/25/2024", time.UTC)
	require.True(t, ok)
	assert.Equal(t, 25, us.Day())

	_, ok = filter.ParseDate("2024-13-45", time.UTC)
	assert.False(t, ok)
}

func TestCallHistory_PredicateOrder(t *testing.T) {
	q := filter.FromMap(map[string]string{
		"busca":       "upa",
		"data_fim":    "2024-01-31",
		"data_inicio": "2024-01-01",
		"status":      models.StatusReceived,
		"tipo":        "contato",
	})
	s := filter.CallHistory(q, campoGrande)

	require.Len(t, s.Predicates, 5)
	params := make([]string, 0, 5)
	for _, p := range s.Predicates {
		params = append(params, p.Param)
	}
	assert.Equal(t, []string{"tipo", "status", "data_inicio", "data_fim", "busca"}, params)
	assert.Equal(t, filter.Before, s.Predicates[3].Kind)

	// fim exclusivo: início do dia seguinte no fuso configurado
	want := time.Date(2024, 2, 1, 0, 0, 0, 0, campoGrande).UTC()
	assert.Equal(t, want, s.Predicates[3].Time)
}

func TestCallHistory_MalformedDateIsIgnored(t *testing.T) {
	db := testutil.SetupDB(t)
	now := time.Now()
	testutil.CreateCall(t, db, models.CallRecord{ContactName: "Ana"}, now.Add(-time.Hour))
	testutil.CreateCall(t, db, models.CallRecord{ContactName: "Bia"}, now)

	omitted := callIDs(t, db, filter.CallHistory(filter.FromMap(nil), campoGrande))
	malformed := callIDs(t, db, filter.CallHistory(filter.FromMap(map[string]string{
		"data_inicio": "31-31-2024",
		"data_fim":    "amanhã",
	}), campoGrande))

	assert.Len(t, omitted, 2)
	assert.Equal(t, omitted, malformed)
}

func TestCallHistory_FiltersRows(t *testing.T) {
	db := testutil.SetupDB(t)
	day := time.Date(2024, 5, 10, 15, 0, 0, 0, campoGrande)

	a := testutil.CreateCall(t, db, models.CallRecord{ContactName: "Ana", UnitName: "UPA Coronel Antonino"}, day)
	b := testutil.CreateCall(t, db, models.CallRecord{ContactName: "Bruno", UnitName: "Hospital Regional", Status: models.StatusPlaced}, day.Add(time.Hour))
	testutil.CreateCall(t, db, models.CallRecord{ContactName: "Carla", UnitName: "UPA Leblon"}, day.AddDate(0, 0, 2))

	ids := callIDs(t, db, filter.CallHistory(filter.FromMap(map[string]string{
		"data_inicio": "10/05/2024",
		"data_fim":    "2024-05-10",
	}), campoGrande))
	assert.Equal(t, []uint{b.ID, a.ID}, ids)

	ids = callIDs(t, db, filter.CallHistory(filter.FromMap(map[string]string{"busca": "CORONEL"}), campoGrande))
	assert.Equal(t, []uint{a.ID}, ids)

	ids = callIDs(t, db, filter.CallHistory(filter.FromMap(map[string]string{"status": models.StatusPlaced}), campoGrande))
	assert.Equal(t, []uint{b.ID}, ids)

	// curinga digitado pelo usuário é literal
	ids = callIDs(t, db, filter.CallHistory(filter.FromMap(map[string]string{"busca": "%"}), campoGrande))
	assert.Empty(t, ids)
}

func TestUserManagement(t *testing.T) {
	db := testutil.SetupDB(t)
	ana := testutil.CreateUser(t, db, "ana", false)
	bob := testutil.CreateUser(t, db, "bob", true)
	require.NoError(t, db.Model(bob).Update("email", "").Error)

	testutil.CreateCall(t, db, models.CallRecord{CreatedByID: &ana.ID}, time.Now())

	ids := func(m map[string]string) []uint {
		var out []uint
		s := filter.UserManagement(filter.FromMap(m), campoGrande, time.Now())
		require.NoError(t, s.Query(db.Model(&models.User{})).Pluck("id", &out).Error)
		return out
	}

	assert.Equal(t, []uint{bob.ID}, ids(map[string]string{"is_staff": "true"}))
	assert.Equal(t, []uint{ana.ID}, ids(map[string]string{"has_email": "true"}))
	assert.Equal(t, []uint{bob.ID}, ids(map[string]string{"has_email": "false"}))
	assert.Equal(t, []uint{ana.ID}, ids(map[string]string{"atividade_periodo": "7"}))
	assert.Equal(t, []uint{ana.ID, bob.ID}, ids(map[string]string{"order_by": "username"}))
	assert.Equal(t, []uint{bob.ID, ana.ID}, ids(map[string]string{"order_by": "-username"}))

	// ordenação fora da lista cai no padrão
	s := filter.UserManagement(filter.FromMap(map[string]string{"order_by": "password_hash"}), campoGrande, time.Now())
	assert.Equal(t, "date_joined DESC", s.Order[0])
}

func TestUnits(t *testing.T) {
	db := testutil.SetupDB(t)
	testutil.CreateUnit(t, db, "UPA Universitário", "", models.UnitExecutante, nil)
	posto := testutil.CreateUnit(t, db, "Posto Aero Rancho", "1234567", models.UnitSolicitante, nil)

	var ids []uint
	s := filter.Units(filter.FromMap(map[string]string{"tipo": string(models.UnitSolicitante)}))
	require.NoError(t, s.Query(db.Model(&models.HealthUnit{})).Pluck("id", &ids).Error)
	assert.Equal(t, []uint{posto.ID}, ids)
	assert.Equal(t, map[string]string{"tipo": string(models.UnitSolicitante)}, s.Active())
}
