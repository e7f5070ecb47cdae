package svguri

// shortColors lists CSS colour names that are shorter than the escaped form
// ("%23" plus digits) of their hex value. Three digit forms are only listed
// where the name also beats "%23rgb". Where two names share a value the
// first entry wins.
var shortColors = []struct {
	name  string
	hex   string
	short string
}{
	{"aqua", "00ffff", "0ff"},
	{"azure", "f0ffff", ""},
	{"beige", "f5f5dc", ""},
	{"bisque", "ffe4c4", ""},
	{"black", "000000", "000"},
	{"blue", "0000ff", "00f"},
	{"brown", "a52a2a", ""},
	{"coral", "ff7f50", ""},
	{"cornsilk", "fff8dc", ""},
	{"crimson", "dc143c", ""},
	{"cyan", "00ffff", "0ff"},
	{"darkblue", "00008b", ""},
	{"darkcyan", "008b8b", ""},
	{"darkgrey", "a9a9a9", ""},
	{"darkred", "8b0000", ""},
	{"deeppink", "ff1493", ""},
	{"dimgrey", "696969", ""},
	{"fuchsia", "ff00ff", ""},
	{"gold", "ffd700", ""},
	{"green", "008000", ""},
	{"grey", "808080", ""},
	{"honeydew", "f0fff0", ""},
	{"hotpink", "ff69b4", ""},
	{"indigo", "4b0082", ""},
	{"ivory", "fffff0", ""},
	{"khaki", "f0e68c", ""},
	{"lavender", "e6e6fa", ""},
	{"lime", "00ff00", "0f0"},
	{"linen", "faf0e6", ""},
	{"maroon", "800000", ""},
	{"moccasin", "ffe4b5", ""},
	{"navy", "000080", ""},
	{"oldlace", "fdf5e6", ""},
	{"olive", "808000", ""},
	{"orange", "ffa500", ""},
	{"orchid", "da70d6", ""},
	{"peru", "cd853f", ""},
	{"pink", "ffc0cb", ""},
	{"plum", "dda0dd", ""},
	{"purple", "800080", ""},
	{"red", "ff0000", "f00"},
	{"salmon", "fa8072", ""},
	{"seagreen", "2e8b57", ""},
	{"seashell", "fff5ee", ""},
	{"sienna", "a0522d", ""},
	{"silver", "c0c0c0", ""},
	{"skyblue", "87ceeb", ""},
	{"snow", "fffafa", ""},
	{"tan", "d2b48c", ""},
	{"teal", "008080", ""},
	{"thistle", "d8bfd8", ""},
	{"tomato", "ff6347", ""},
	{"violet", "ee82ee", ""},
	{"wheat", "f5deb3", ""},
	{"white", "ffffff", "fff"},
	{"yellow", "ffff00", ""},
}

// colorNames maps a lowercase hex token (without '#') to its colour name,
// including the fully opaque alpha variants.
var colorNames = func() map[string]string {
	m := make(map[string]string, len(shortColors)*4)
	add := func(token, name string) {
		if _, exists := m[token]; !exists {
			m[token] = name
		}
	}
	for _, c := range shortColors {
		add(c.hex, c.name)
		add(c.hex+"ff", c.name)
		if c.short != "" {
			add(c.short, c.name)
			add(c.short+"f", c.name)
		}
	}
	return m
}()
