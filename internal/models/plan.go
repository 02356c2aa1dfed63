package models

// Plan запись legacy-таблицы планов, существовавших до каталога продуктов.
type Plan struct {
	Name  string  `yaml:"name" json:"name"`
	Price float64 `yaml:"price" json:"price"`
	Days  int     `yaml:"days" json:"days"`
}

// DefaultPlans возвращает планы, которые продавались до появления каталога.
func DefaultPlans() map[string]Plan {
	return map[string]Plan{
		"mensal":     {Name: "Plano Mensal", Price: 79.90, Days: 30},
		"trimestral": {Name: "Plano Trimestral", Price: 199.90, Days: 90},
		"anual":      {Name: "Plano Anual", Price: 299.90, Days: 365},
	}
}

// MaxLicenseDays верхняя граница одного продления, сто лет.
const MaxLicenseDays = 36500
