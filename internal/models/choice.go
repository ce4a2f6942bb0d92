package models

// Choice par código/rótulo usado pelos campos enumerados.
type Choice struct {
	Code  string `json:"codigo"`
	Label string `json:"label"`
}

func labelOf(choices []Choice, code string) string {
	for _, c := range choices {
		if c.Code == code {
			return c.Label
		}
	}
	return code
}

func validChoice(choices []Choice, code string) bool {
	for _, c := range choices {
		if c.Code == code {
			return true
		}
	}
	return false
}
