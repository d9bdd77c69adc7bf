package config

// CategoryWeights orders command categories in help listings. Unlisted
// categories sort after these, by name.
var CategoryWeights = map[string]int{
	"General": 0,
	"Utility": 10,
	"Fun":     20,
	"Admin":   60,
}

// CategoryWeight returns the listing weight of category.
func CategoryWeight(category string) int {
	if w, ok := CategoryWeights[category]; ok {
		return w
	}
	return 50
}
