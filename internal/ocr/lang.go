package ocr

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// tesseractOverrides covers traineddata names that are not ISO 639-3.
var tesseractOverrides = map[string]string{
	"zh-Hans": "chi_sim",
	"zh-Hant": "chi_tra",
	"zh":      "chi_sim",
	"sr-Latn": "srp_latn",
	"uz-Cyrl": "uzb_cyrl",
}

// ParseLanguage accepts a BCP-47 tag or an ISO 639 code.
func ParseLanguage(code string) (language.Tag, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return language.Und, fmt.Errorf("empty language code")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, fmt.Errorf("invalid language %q: %w", code, err)
	}
	return tag, nil
}

// LanguageHint returns the short BCP-47 form of code ("bos" -> "bs"), or
// code unchanged when it does not parse.
func LanguageHint(code string) string {
	tag, err := ParseLanguage(code)
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	return base.String()
}

// TesseractLanguages maps a language request to traineddata names. Several
// languages may be joined with "+" ("en+de" -> eng, deu). Codes already in
// traineddata form pass through.
func TesseractLanguages(code string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(code, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "_") {
			out = append(out, part)
			continue
		}
		tag, err := ParseLanguage(part)
		if err != nil {
			return nil, err
		}
		out = append(out, tesseractCode(tag))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty language code")
	}
	return out, nil
}

func tesseractCode(tag language.Tag) string {
	base, _ := tag.Base()
	script, conf := tag.Script()
	if conf == language.Exact {
		if v, ok := tesseractOverrides[base.String()+"-"+script.String()]; ok {
			return v
		}
	}
	if v, ok := tesseractOverrides[base.String()]; ok {
		return v
	}
	return base.ISO3()
}
