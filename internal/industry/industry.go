// Package industry normalizes PKD activity codes and maps them to readable
// descriptions.
package industry

import (
	"strings"
	"unicode"
)

// Normalize upper-cases code and drops everything that is not a letter or a
// digit, so "62.01.z" and "6201Z" compare equal.
func Normalize(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// Describe returns the description for code, or the normalized code itself
// when the table has no entry.
func Describe(code string) string {
	n := Normalize(code)
	if d, ok := descriptions[n]; ok {
		return d
	}
	return n
}

// Known reports whether the normalized code has a table entry.
func Known(code string) bool {
	_, ok := descriptions[Normalize(code)]
	return ok
}

var descriptions = map[string]string{
	// finance and insurance
	"6419Z": "Pozostałe usługi kredytowe",
	"6492Z": "Udzielanie pożyczek poza systemem bankowym",
	"6499Z": "Pozostałe usługi finansowe",
	"6619Z": "Pozostałe usługi wspomagające finanse",
	"6622Z": "Agenci ubezpieczeniowi",

	// IT and telecommunications
	"6110Z": "Telekomunikacja przewodowa",
	"6120Z": "Telekomunikacja bezprzewodowa",
	"6130Z": "Telekomunikacja satelitarna",
	"6190Z": "Pozostała telekomunikacja",
	"6201Z": "Działalność związana z oprogramowaniem",
	"6202Z": "Doradztwo w zakresie informatyki",
	"6203Z": "Zarządzanie urządzeniami informatycznymi",
	"6209Z": "Pozostała działalność usługowa w zakresie IT",
	"6311Z": "Przetwarzanie danych",
	"6312Z": "Portale internetowe",
	"6391Z": "Działalność agencji informacyjnych",

	// trade
	"4651Z": "Sprzedaż hurtowa komputerów i elektroniki",
	"4711Z": "Handel detaliczny w niewyspecjalizowanych sklepach",
	"4719Z": "Pozostały handel detaliczny niewyspecjalizowany",
	"4730Z": "Sprzedaż detaliczna paliw",
	"4776Z": "Sprzedaż detaliczna kwiatów i roślin",

	// transport and logistics
	"4920Z": "Transport kolejowy towarów",
	"5310Z": "Działalność pocztowa objęta obowiązkiem świadczenia usług powszechnych",
	"5320Z": "Pozostała działalność pocztowa i kurierska",

	// manufacturing
	"2042Z": "Produkcja pozostałych wyrobów chemicznych",
	"2222Z": "Produkcja opakowań z tworzyw sztucznych",
	"2351Z": "Produkcja cementu",
	"2732Z": "Produkcja pozostałych przewodów elektrycznych",
	"2910B": "Produkcja pozostałych pojazdów samochodowych",

	// professional services
	"7021Z": "Public relations i komunikacja",
	"7211Z": "Badania naukowe i prace rozwojowe w dziedzinie biotechnologii",
	"7311Z": "Działalność agencji reklamowych",
	"7490Z": "Pozostała działalność profesjonalna, naukowa i techniczna",

	// other services
	"8220Z": "Działalność centrów telefonicznych (call center)",
	"9200Z": "Działalność związana z grami losowymi i zakładami wzajemnymi",
}
