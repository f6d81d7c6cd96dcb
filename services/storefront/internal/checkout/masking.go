package checkout

import "strings"

// operationalSignals — признаки внутренних проблем поставщика в тексте ошибки.
// Такие сообщения покупателю не показываются.
var operationalSignals = []string{
	"reseller balance",
	"reseller",
	"insufficient balance in",
	"upstream",
	"supplier",
	"vendor",
	"smile",
}

// IsOperational проверяет сообщение на признаки внутренней ошибки.
func IsOperational(msg string) bool {
	lower := strings.ToLower(msg)
	for _, signal := range operationalSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}
