package address

// countryCodes lists the ISO 3166-1 alpha-2 codes Wooacry accepts as destinations.
var countryCodes = toSet(
	"AF", "AX", "AL", "DZ", "AS", "AD", "AO", "AI", "AQ", "AG", "AR", "AM", "AW", "AU", "AT",
	"AZ", "BS", "BH", "BD", "BB", "BY", "BE", "PW", "BZ", "BJ", "BM", "BT", "BO", "BQ", "BA",
	"BW", "BV", "BR", "IO", "BN", "BG", "BF", "BI", "KH", "CM", "CA", "CV", "KY", "CF", "TD",
	"CL", "CN", "CX", "CC", "CO", "KM", "CG", "CD", "CK", "CR", "HR", "CU", "CW", "CY", "CZ",
	"DK", "DJ", "DM", "DO", "EC", "EG", "SV", "GQ", "ER", "EE", "ET", "FK", "FO", "FJ", "FI",
	"FR", "GF", "PF", "TF", "GA", "GM", "GE", "DE", "GH", "GI", "GR", "GL", "GD", "GP", "GU",
	"GT", "GG", "GN", "GW", "GY", "HT", "HM", "HN", "HK", "HU", "IS", "IN", "ID", "IR", "IQ",
	"IE", "IM", "IL", "IT", "CI", "JM", "JP", "JE", "JO", "KZ", "KE", "KI", "KW", "KG", "LA",
	"LV", "LB", "LS", "LR", "LY", "LI", "LT", "LU", "MO", "MK", "MG", "MW", "MY", "MV", "ML",
	"MT", "MH", "MQ", "MR", "MU", "YT", "MX", "FM", "MD", "MC", "MN", "ME", "MS", "MA", "MZ",
	"MM", "NA", "NR", "NP", "NL", "NC", "NZ", "NI", "NE", "NG", "NU", "NF", "MP", "KP", "NO",
	"OM", "PK", "PS", "PA", "PG", "PY", "PE", "PH", "PN", "PL", "PT", "PR", "QA", "RE", "RO",
	"RU", "RW", "BL", "SH", "KN", "LC", "MF", "SX", "PM", "VC", "SM", "ST", "SA", "SN", "RS",
	"SC", "SL", "SG", "SK", "SI", "SB", "SO", "ZA", "GS", "KR", "SS", "ES", "LK", "SD", "SR",
	"SJ", "SZ", "SE", "CH", "SY", "TW", "TJ", "TZ", "TH", "TL", "TG", "TK", "TO", "TT", "TN",
	"TR", "TM", "TC", "TV", "UG", "UA", "AE", "GB", "US", "UM", "UY", "UZ", "VU", "VA", "VE",
	"VN", "VG", "VI", "WF", "EH", "WS", "YE", "ZM", "ZW",
)

// taxRequired are destinations where customs clearance needs the recipient's tax id.
var taxRequired = toSet("TR", "MX", "CL", "BR", "ZA", "KR", "AR")

func toSet(codes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

func IsSupportedCountry(code string) bool {
	_, ok := countryCodes[code]
	return ok
}

func RequiresTaxNumber(code string) bool {
	_, ok := taxRequired[code]
	return ok
}
