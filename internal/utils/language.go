package utils

import (
	"golang.org/x/text/language"
)

// Language codes
const (
	LangIndonesian = "id"
	LangEnglish    = "en"
)

// Language represents a detected language
type Language struct {
	Code       string
	Name       string
	Confidence float64
}

// Tag returns the BCP 47 tag of the language
func (l Language) Tag() language.Tag {
	return language.Make(l.Code)
}

// MarkerRatio represents the share of tokens that are typical for a language
type MarkerRatio struct {
	Code  string
	Name  string
	Ratio float64
}

var languageNames = map[string]string{
	LangIndonesian: "Indonesian",
	LangEnglish:    "English",
}

// Common function words and chat vocabulary; both languages use Latin script so
// the script ratio approach does not apply.
var markerWords = map[string]map[string]struct{}{
	LangIndonesian: wordSet(
		"saya", "aku", "anda", "kamu", "kak", "kakak", "gan", "min", "mas", "mbak",
		"yang", "dan", "di", "ke", "dari", "ini", "itu", "untuk", "dengan", "tidak", "nggak",
		"gak", "ga", "enggak", "bisa", "apa", "apakah", "bagaimana", "gimana", "kenapa",
		"mengapa", "berapa", "kapan", "dimana", "mana", "mau", "ingin", "tolong", "mohon",
		"halo", "hai", "selamat", "pagi", "siang", "sore", "malam", "terima", "kasih",
		"makasih", "ya", "iya", "sudah", "belum", "akan", "ada", "harga", "biaya", "akun",
		"sandi", "gagal", "masalah", "bantu", "bantuan", "juga", "atau", "saja", "aja",
	),
	LangEnglish: wordSet(
		"i", "you", "we", "my", "your", "the", "a", "an", "and", "is", "are", "was",
		"to", "of", "in", "for", "with", "this", "that", "not", "can", "could", "would",
		"what", "how", "why", "when", "where", "which", "please", "hello", "hi", "hey",
		"thanks", "thank", "yes", "no", "have", "has", "do", "does", "did", "it", "me",
		"price", "cost", "account", "password", "error", "help", "need", "want", "there",
	),
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// LocaleDetector picks the response locale of a message
type LocaleDetector struct {
	Default string
}

// NewLocaleDetector creates a detector falling back to defaultCode. The code is
// parsed as a BCP 47 tag and reduced to its base language; unsupported or
// invalid codes fall back to Indonesian.
func NewLocaleDetector(defaultCode string) *LocaleDetector {
	if tag, err := language.Parse(defaultCode); err == nil {
		base, _ := tag.Base()
		defaultCode = base.String()
	}
	if _, ok := languageNames[defaultCode]; !ok {
		defaultCode = LangIndonesian
	}
	return &LocaleDetector{Default: defaultCode}
}

// Detect returns the most likely language of text
func (d *LocaleDetector) Detect(text string) Language {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return d.fallback(0)
	}

	ratios := calculateMarkerRatios(tokens)
	return determineLanguageFromRatios(ratios, d)
}

func (d *LocaleDetector) fallback(confidence float64) Language {
	return Language{Code: d.Default, Name: languageNames[d.Default], Confidence: confidence}
}

// DetectLanguage detects the language of text with Indonesian as the default
func DetectLanguage(text string) Language {
	return NewLocaleDetector(LangIndonesian).Detect(text)
}

// calculateMarkerRatios calculates the ratio of marker tokens for each language
func calculateMarkerRatios(tokens []string) []MarkerRatio {
	ratios := make([]MarkerRatio, 0, len(markerWords))
	for _, code := range []string{LangIndonesian, LangEnglish} {
		markers := markerWords[code]
		hits := 0
		for _, token := range tokens {
			if _, ok := markers[token]; ok {
				hits++
			}
		}
		ratios = append(ratios, MarkerRatio{
			Code:  code,
			Name:  languageNames[code],
			Ratio: float64(hits) / float64(len(tokens)),
		})
	}
	return ratios
}

// determineLanguageFromRatios picks the strictly highest ratio; ties and texts
// without markers use the detector default.
func determineLanguageFromRatios(ratios []MarkerRatio, d *LocaleDetector) Language {
	var best MarkerRatio
	tie := false
	for _, ratio := range ratios {
		switch {
		case ratio.Ratio > best.Ratio:
			best = ratio
			tie = false
		case ratio.Ratio == best.Ratio && ratio.Ratio > 0:
			tie = true
		}
	}

	if best.Ratio == 0 || tie {
		return d.fallback(best.Ratio)
	}
	return Language{Code: best.Code, Name: best.Name, Confidence: best.Ratio}
}
