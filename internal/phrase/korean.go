package phrase

import "strings"

var (
	digits     = [...]string{"", "일", "이", "삼", "사", "오", "육", "칠", "팔", "구"}
	smallUnits = [...]string{"", "십", "백", "천"}
	bigUnits   = [...]string{"", "만", "억", "조", "경"}
)

// Korean spells an integer in Sino-Korean numerals, grouped by four
// digits with a space between groups: 95500 is "구만 오천오백".
func Korean(n int64) string {
	if n == 0 {
		return "영"
	}
	if n < 0 {
		// -n overflows for MinInt64; go through uint64.
		return "마이너스 " + koreanUnsigned(uint64(-(n + 1))+1)
	}
	return koreanUnsigned(uint64(n))
}

func koreanUnsigned(n uint64) string {
	var groups []int
	for n > 0 {
		groups = append(groups, int(n%10000))
		n /= 10000
	}

	var parts []string
	for i := len(groups) - 1; i >= 0; i-- {
		if groups[i] == 0 {
			continue
		}
		text := fourDigits(groups[i])
		if i < len(bigUnits) {
			text += bigUnits[i]
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// fourDigits spells 1..9999. A leading 일 is dropped before 십, 백 and 천.
func fourDigits(n int) string {
	var b strings.Builder
	for place := 3; place >= 0; place-- {
		pow := [...]int{1, 10, 100, 1000}[place]
		d := n / pow % 10
		if d == 0 {
			continue
		}
		if d != 1 || place == 0 {
			b.WriteString(digits[d])
		}
		b.WriteString(smallUnits[place])
	}
	return b.String()
}
