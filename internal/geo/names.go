// Package geo maps statistical unit names and codes onto the names used by
// the boundary files the dashboard draws.
package geo

import (
	"sort"
	"strings"
	"unicode"
)

// ProvinceCode is the numeric TERYT code of the Mazowieckie voivodeship.
const ProvinceCode = "14"

// ProvinceName is the boundary name every Mazowieckie NUTS code folds into.
const ProvinceName = "mazowieckie"

// districts maps lower-cased GUS district names to boundary names.
var districts = map[string]string{
	"białobrzeski":        "powiat białobrzeski",
	"ciechanowski":        "powiat ciechanowski",
	"garwoliński":         "powiat garwoliński",
	"gostyniński":         "powiat gostyniński",
	"grodziski":           "powiat grodziski",
	"grójecki":            "powiat grójecki",
	"kozienicki":          "powiat kozienicki",
	"legionowski":         "powiat legionowski",
	"lipski":              "powiat lipski",
	"łosicki":             "powiat łosicki",
	"makowski":            "powiat makowski",
	"miński":              "powiat miński",
	"mławski":             "powiat mławski",
	"nowodworski":         "powiat nowodworski",
	"ostrołęcki":          "powiat ostrołęcki",
	"ostrowski":           "powiat ostrowski",
	"otwocki":             "powiat otwocki",
	"piaseczyński":        "powiat piaseczyński",
	"płocki":              "powiat płocki",
	"płoński":             "powiat płoński",
	"pruszkowski":         "powiat pruszkowski",
	"przasnyski":          "powiat przasnyski",
	"przysuski":           "powiat przysuski",
	"pułtuski":            "powiat pułtuski",
	"radomski":            "powiat radomski",
	"siedlecki":           "powiat siedlecki",
	"sierpecki":           "powiat sierpecki",
	"sochaczewski":        "powiat sochaczewski",
	"sokołowski":          "powiat sokołowski",
	"szydłowiecki":        "powiat szydłowiecki",
	"warszawski zachodni": "powiat warszawski zachodni",
	"węgrowski":           "powiat węgrowski",
	"wołomiński":          "powiat wołomiński",
	"wyszkowski":          "powiat wyszkowski",
	"zwoleński":           "powiat zwoleński",
	"żuromiński":          "powiat żuromiński",
	"żyrardowski":         "powiat żyrardowski",
	"m. ostrołęka":        "powiat Ostrołęka",
	"m. płock":            "powiat Płock",
	"m. radom":            "powiat Radom",
	"m. siedlce":          "powiat Siedlce",
	"m. warszawa":         "powiat Warszawa",
	"warszawa":            "powiat Warszawa",
}

// provinces maps two-level NUTS codes to province boundary names. The
// Mazowieckie macroregion and both of its regions fold into one province.
var provinces = map[string]string{
	"PL21": "małopolskie",
	"PL22": "śląskie",
	"PL41": "wielkopolskie",
	"PL42": "zachodniopomorskie",
	"PL43": "lubuskie",
	"PL51": "dolnośląskie",
	"PL52": "opolskie",
	"PL61": "kujawsko-pomorskie",
	"PL62": "warmińsko-mazurskie",
	"PL63": "pomorskie",
	"PL71": "łódzkie",
	"PL72": "świętokrzyskie",
	"PL81": "lubelskie",
	"PL82": "podkarpackie",
	"PL84": "podlaskie",
	"PL9":  ProvinceName,
	"PL91": ProvinceName,
	"PL92": ProvinceName,
}

// teryt maps four-digit TERYT district codes of the province to the GUS
// district names used as keys in districts.
var teryt = map[string]string{
	"1401": "białobrzeski",
	"1402": "ciechanowski",
	"1403": "garwoliński",
	"1404": "gostyniński",
	"1405": "grodziski",
	"1406": "grójecki",
	"1407": "kozienicki",
	"1408": "legionowski",
	"1409": "lipski",
	"1410": "łosicki",
	"1411": "makowski",
	"1412": "miński",
	"1413": "mławski",
	"1414": "nowodworski",
	"1415": "ostrołęcki",
	"1416": "ostrowski",
	"1417": "otwocki",
	"1418": "piaseczyński",
	"1419": "płocki",
	"1420": "płoński",
	"1421": "pruszkowski",
	"1422": "przasnyski",
	"1423": "przysuski",
	"1424": "pułtuski",
	"1425": "radomski",
	"1426": "siedlecki",
	"1427": "sierpecki",
	"1428": "sochaczewski",
	"1429": "sokołowski",
	"1430": "szydłowiecki",
	"1432": "warszawski zachodni",
	"1433": "węgrowski",
	"1434": "wołomiński",
	"1435": "wyszkowski",
	"1436": "zwoleński",
	"1437": "żuromiński",
	"1438": "żyrardowski",
	"1461": "m. ostrołęka",
	"1462": "m. płock",
	"1463": "m. radom",
	"1464": "m. siedlce",
	"1465": "m. warszawa",
}

// normalizeName lower-cases and collapses whitespace. "Powiat " prefixes and
// the "m.st." capital-city form are reduced to the table's keys.
func normalizeName(name string) string {
	n := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	n = strings.TrimPrefix(n, "powiat ")
	n = strings.Replace(n, "m.st.", "m. ", 1)
	n = strings.Replace(n, "m. st. ", "m. ", 1)
	return strings.Join(strings.Fields(n), " ")
}

// DistrictGeoName resolves a GUS district name to its boundary name.
func DistrictGeoName(name string) (string, bool) {
	g, ok := districts[normalizeName(name)]
	return g, ok
}

// ProvinceGeoName resolves a NUTS code to a province boundary name.
func ProvinceGeoName(code string) (string, bool) {
	g, ok := provinces[strings.ToUpper(strings.TrimSpace(code))]
	return g, ok
}

// DistrictKey reduces a TERYT code to its four-digit district part. Codes
// may carry trailing gmina and type digits ("1465011").
func DistrictKey(code string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, code)
	if len(digits) < 4 {
		return "", false
	}
	key := digits[:4]
	_, ok := teryt[key]
	return key, ok
}

// DistrictByCode resolves a TERYT district code to its GUS name.
func DistrictByCode(code string) (string, bool) {
	key, ok := DistrictKey(code)
	if !ok {
		return "", false
	}
	return teryt[key], true
}

// DistrictCodes returns all known TERYT district codes in ascending order.
func DistrictCodes() []string {
	codes := make([]string, 0, len(teryt))
	for c := range teryt {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
