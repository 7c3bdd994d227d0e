package forms

// Choice is one option of a select field
type Choice struct {
	Value string
	Label string
}

// States are the US state codes accepted by the venue form
var States = []Choice{
	{"AL", "AL"}, {"AK", "AK"}, {"AZ", "AZ"}, {"AR", "AR"}, {"CA", "CA"},
	{"CO", "CO"}, {"CT", "CT"}, {"DE", "DE"}, {"DC", "DC"}, {"FL", "FL"},
	{"GA", "GA"}, {"HI", "HI"}, {"ID", "ID"}, {"IL", "IL"}, {"IN", "IN"},
	{"IA", "IA"}, {"KS", "KS"}, {"KY", "KY"}, {"LA", "LA"}, {"ME", "ME"},
	{"MT", "MT"}, {"NE", "NE"}, {"NV", "NV"}, {"NH", "NH"}, {"NJ", "NJ"},
	{"NM", "NM"}, {"NY", "NY"}, {"NC", "NC"}, {"ND", "ND"}, {"OH", "OH"},
	{"OK", "OK"}, {"OR", "OR"}, {"MD", "MD"}, {"MA", "MA"}, {"MI", "MI"},
	{"MN", "MN"}, {"MS", "MS"}, {"MO", "MO"}, {"PA", "PA"}, {"RI", "RI"},
	{"SC", "SC"}, {"SD", "SD"}, {"TN", "TN"}, {"TX", "TX"}, {"UT", "UT"},
	{"VT", "VT"}, {"VA", "VA"}, {"WA", "WA"}, {"WV", "WV"}, {"WI", "WI"},
	{"WY", "WY"},
}

// Genres are the genres a listing may be tagged with
var Genres = []Choice{
	{"Alternative", "Alternative"},
	{"Blues", "Blues"},
	{"Classical", "Classical"},
	{"Country", "Country"},
	{"Electronic", "Electronic"},
	{"Folk", "Folk"},
	{"Funk", "Funk"},
	{"Hip-Hop", "Hip-Hop"},
	{"Heavy Metal", "Heavy Metal"},
	{"Instrumental", "Instrumental"},
	{"Jazz", "Jazz"},
	{"Musical Theatre", "Musical Theatre"},
	{"Pop", "Pop"},
	{"Punk", "Punk"},
	{"R&B", "R&B"},
	{"Reggae", "Reggae"},
	{"Rock n Roll", "Rock n Roll"},
	{"Soul", "Soul"},
	{"Swing", "Swing"},
	{"Other", "Other"},
}

func values(choices []Choice) []interface{} {
	out := make([]interface{}, len(choices))
	for i, c := range choices {
		out[i] = c.Value
	}
	return out
}
