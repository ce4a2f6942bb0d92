package municipalities

import (
	"fmt"

	"central-chamadas-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatoGrossoDoSul os 79 municípios do estado.
var MatoGrossoDoSul = []string{
	"Água Clara", "Alcinópolis", "Amambai", "Anastácio", "Anaurilândia", "Angélica",
	"Antônio João", "Aparecida do Taboado", "Aquidauana", "Aral Moreira", "Bandeirantes",
	"Bataguassu", "Batayporã", "Bela Vista", "Bodoquena", "Bonito", "Brasilândia",
	"Caarapó", "Camapuã", "Campo Grande", "Caracol", "Cassilândia", "Chapadão do Sul",
	"Corguinho", "Coronel Sapucaia", "Corumbá", "Costa Rica", "Coxim", "Deodápolis",
	"Dois Irmãos do Buriti", "Douradina", "Dourados", "Eldorado", "Fátima do Sul",
	"Figueirão", "Glória de Dourados", "Guia Lopes da Laguna", "Iguatemi", "Inocência",
	"Itaporã", "Itaquiraí", "Ivinhema", "Japorã", "Jaraguari", "Jardim", "Jateí", "Juti",
	"Ladário", "Laguna Carapã", "Maracaju", "Miranda", "Mundo Novo", "Naviraí", "Nioaque",
	"Nova Alvorada do Sul", "Nova Andradina", "Novo Horizonte do Sul", "Paraíso das Águas",
	"Paranaíba", "Paranhos", "Pedro Gomes", "Ponta Porã", "Porto Murtinho",
	"Ribas do Rio Pardo", "Rio Brilhante", "Rio Negro", "Rio Verde de Mato Grosso",
	"Rochedo", "Santa Rita do Pardo", "São Gabriel do Oeste", "Selvíria", "Sete Quedas",
	"Sidrolândia", "Sonora", "Tacuru", "Taquarussu", "Terenos", "Três Lagoas", "Vicentina",
}

// Seed insere os municípios que ainda não existem; devolve quantos foram criados.
func Seed(db *gorm.DB, names []string, state string) (int64, error) {
	rows := make([]models.Municipality, 0, len(names))
	for _, n := range names {
		rows = append(rows, models.Municipality{Name: n, State: state})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).CreateInBatches(rows, 100)
	if res.Error != nil {
		return 0, fmt.Errorf("seed municípios: %w", res.Error)
	}
	return res.RowsAffected, nil
}
