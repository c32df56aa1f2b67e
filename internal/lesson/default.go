package lesson

// defaultLessons is the built-in Kannada curriculum.
var defaultLessons = []Lesson{
	{ID: "w01", Text: "ನಮಸ್ತೆ", Syllables: []string{"na", "mas", "te"}},
	{ID: "w02", Text: "ನಿಮ್ಮ ಹೆಸರೇನು", Syllables: []string{"nim", "ma", "he", "sa", "re", "nu"}},
	{ID: "w03", Text: "ನೀವು ಹೇಗಿದ್ದೀರ", Syllables: []string{"nee", "vu", "heng", "id", "di", "ra"}},
	{ID: "w04", Text: "ನಾನು ಚೆನ್ನಾಗಿದ್ದೀನಿ", Syllables: []string{"naa", "nu", "chen", "na", "gi", "di", "ni"}},
	{ID: "w05", Text: "ಅದು ಚೆನ್ನಾಗಿದೆ", Syllables: []string{"a", "du", "chen", "na", "gi", "de"}},
	{ID: "w06", Text: "ಧನ್ಯವಾದ", Syllables: []string{"dha", "nya", "vaa", "da"}},
	{ID: "w07", Text: "ಇದು ಎಷ್ಟು", Syllables: []string{"i", "du", "es", "htu"}},
	{ID: "w08", Text: "ಕಮ್ಮಿ ಮಾಡಿ", Syllables: []string{"kam", "mi", "maa", "di"}},
	{ID: "w09", Text: "ದಯವಿಟ್ಟು ಸಹಾಯ ಮಾಡಿ", Syllables: []string{"da", "ya", "vit", "tu", "sa", "ha", "ya", "maa", "di"}},
	{ID: "w10", Text: "ಅಲ್ಲಿಗೆ ಹೇಗೆ ಹೋಗೋದು", Syllables: []string{"a", "li", "ge", "he", "ge", "ho", "go", "du"}},
	{ID: "w11", Text: "ನಾನು ಕರ್ನಾಟಕದಲ್ಲಿ ಇದ್ದೀನಿ", Syllables: []string{"naa", "nu", "kar", "na", "ta", "ka", "dal", "li", "id", "di", "ni"}},
	{ID: "w12", Text: "ನಾನು ಕನ್ನಡ ಕಲಿತ ಇದ್ದೀನಿ", Syllables: []string{"naa", "nu", "kan", "na", "da", "ka", "li", "ta", "id", "di", "ni"}},
	{ID: "w13", Text: "ಊಟ ಆಯತ", Syllables: []string{"oo", "ta", "ya", "ta"}},
	{ID: "w14", Text: "ನನಗೆ ಗೊತ್ತಿಲ್ಲ", Syllables: []string{"na", "na", "ge", "go", "thi", "la"}},
	{ID: "w15", Text: "ಮನೆಗೆ ಬನ್ನಿ", Syllables: []string{"ma", "ne", "ge", "ban", "ni"}},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(defaultLessons)
	if err != nil {
		// The built-in table is static; a failure here is a programming error.
		panic(err)
	}
	return c
}
