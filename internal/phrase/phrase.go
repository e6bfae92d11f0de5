// Package phrase renders announcement sentences in each supported
// language. Prices are spoken as whole dollars.
package phrase

import (
	"fmt"

	"github.com/hammamikhairi/gridvoice/internal/domain"
)

// Supported languages by display name, in menu order.
const (
	LangKorean     = "Korean"
	LangEnglish    = "English"
	LangSpanish    = "Spanish"
	LangPortuguese = "Portuguese"
	LangFrench     = "French"
)

// Languages lists the display names in the order they are cycled.
var Languages = []string{LangKorean, LangEnglish, LangSpanish, LangPortuguese, LangFrench}

var codes = map[string]string{
	LangKorean:     "ko",
	LangEnglish:    "en",
	LangSpanish:    "es",
	LangPortuguese: "pt",
	LangFrench:     "fr",
}

// Code returns the short language code for a display name.
func Code(name string) (string, error) {
	code, ok := codes[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownLanguage, name)
	}
	return code, nil
}

// Next returns the language after name in Languages, wrapping around.
// Unknown names start the cycle over.
func Next(name string) string {
	for i, l := range Languages {
		if l == name {
			return Languages[(i+1)%len(Languages)]
		}
	}
	return Languages[0]
}

// Crossing renders the sentence for a boundary crossing. Unknown
// languages fall back to English.
func Crossing(lang string, boundary float64, dir domain.Direction) string {
	n := int64(boundary)
	up := dir == domain.Up

	switch lang {
	case LangKorean:
		if up {
			return Korean(n) + "달러를 돌파했습니다."
		}
		return Korean(n) + "달러가 깨어졌습니다."
	case LangSpanish:
		if up {
			return fmt.Sprintf("Bitcoin superó los %d dólares.", n)
		}
		return fmt.Sprintf("Bitcoin cayó por debajo de los %d dólares.", n)
	case LangPortuguese:
		if up {
			return fmt.Sprintf("O Bitcoin ultrapassou %d dólares.", n)
		}
		return fmt.Sprintf("O Bitcoin caiu abaixo de %d dólares.", n)
	case LangFrench:
		if up {
			return fmt.Sprintf("Le Bitcoin a dépassé %d dollars.", n)
		}
		return fmt.Sprintf("Le Bitcoin est tombé sous %d dollars.", n)
	default:
		if up {
			return fmt.Sprintf("Bitcoin passed %d dollars.", n)
		}
		return fmt.Sprintf("Bitcoin dropped below %d dollars.", n)
	}
}

// CurrentPrice renders the voice-test sentence. With ok false (no price
// yet, or a zero price) it says the app is waiting for data.
func CurrentPrice(lang string, price float64, ok bool) string {
	n := int64(price)
	if price == 0 {
		ok = false
	}

	switch lang {
	case LangKorean:
		if ok {
			return "현재 비트코인 가격은 " + Korean(n) + "달러입니다."
		}
		return "비트코인 가격 정보를 기다리고 있어요"
	case LangSpanish:
		if ok {
			return fmt.Sprintf("El precio actual de Bitcoin es %d dólares.", n)
		}
		return "Esperando datos del precio de Bitcoin."
	case LangPortuguese:
		if ok {
			return fmt.Sprintf("O preço atual do Bitcoin é %d dólares.", n)
		}
		return "Aguardando dados de preço do Bitcoin."
	case LangFrench:
		if ok {
			return fmt.Sprintf("Le prix actuel du Bitcoin est de %d dollars.", n)
		}
		return "En attente des données sur le prix du Bitcoin."
	default:
		if ok {
			return fmt.Sprintf("Current Bitcoin price is %d dollars.", n)
		}
		return "Waiting for Bitcoin price data."
	}
}
