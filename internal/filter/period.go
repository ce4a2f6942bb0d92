package filter

import "time"

// Day início do dia de t e do dia seguinte, no fuso loc, convertidos para UTC.
func Day(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// Month primeiro instante do mês de t e do mês seguinte, em UTC.
func Month(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 1, 0).UTC()
}

func Year(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(1, 0, 0).UTC()
}

// MonthRange um mês de calendário.
type MonthRange struct {
	Start time.Time
	End   time.Time
	// Label no formato "01/2024".
	Label string
	// Name no formato "Janeiro 2024".
	Name string
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

func MonthName(m time.Month) string {
	return monthNames[m-1]
}

// LastMonths n meses de calendário terminando no mês de now, do mais antigo ao atual.
func LastMonths(now time.Time, loc *time.Location, n int) []MonthRange {
	now = now.In(loc)
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	out := make([]MonthRange, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		out = append(out, MonthRange{
			Start: start.UTC(),
			End:   start.AddDate(0, 1, 0).UTC(),
			Label: start.Format("01/2006"),
			Name:  MonthName(start.Month()) + " " + start.Format("2006"),
		})
	}
	return out
}
