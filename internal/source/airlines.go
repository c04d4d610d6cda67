package source

import (
	"math/rand/v2"
	"strings"
)

var carrierNames = map[string]string{
	"LA": "LATAM Airlines",
	"G3": "Gol Linhas Aéreas",
	"AD": "Azul Brazilian Airlines",
	"TP": "TAP Portugal",
	"AF": "Air France",
	"AZ": "ITA Airways",
	"BA": "British Airways",
	"LH": "Lufthansa",
	"KL": "KLM",
	"IB": "Iberia",
	"AA": "American Airlines",
	"UA": "United Airlines",
	"DL": "Delta Air Lines",
	"JJ": "LATAM",
	"TK": "Turkish Airlines",
	"EK": "Emirates",
	"QR": "Qatar Airways",
}

// CarrierName resolves a flight designator like "LA 8084" to the operating
// airline. Unknown designators are returned trimmed.
func CarrierName(designator string) string {
	d := strings.TrimSpace(designator)
	if len(d) >= 2 {
		if name, ok := carrierNames[strings.ToUpper(d[:2])]; ok {
			return name
		}
	}
	return d
}

// keyword order matters: the first hit wins.
var carrierKeywords = []struct {
	keyword string
	name    string
}{
	{"ITA", "ITA Airways"},
	{"LATAM", "LATAM Airlines"},
	{"Azul", "Azul Brazilian Airlines"},
	{"Gol", "Gol Linhas Aéreas"},
	{"TAP", "TAP Portugal"},
	{"Air France", "Air France"},
}

func carrierFromText(text, fallback string) string {
	lower := strings.ToLower(text)
	for _, k := range carrierKeywords {
		if strings.Contains(lower, strings.ToLower(k.keyword)) {
			return k.name
		}
	}
	return fallback
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

func randomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}
