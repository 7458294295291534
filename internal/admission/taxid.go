package admission

import "strings"

const taxIDLength = 11

// DigitsOnly strips every non-digit character, so "529.982.247-25" becomes "52998224725".
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidTaxID checks a CPF with the mod-11 check-digit algorithm. Punctuation is ignored.
func ValidTaxID(s string) bool {
	digits := DigitsOnly(s)
	if len(digits) != taxIDLength {
		return false
	}

	d := make([]int, taxIDLength)
	same := true
	for i := range digits {
		d[i] = int(digits[i] - '0')
		if d[i] != d[0] {
			same = false
		}
	}
	if same {
		return false
	}

	return checkDigit(d[:9]) == d[9] && checkDigit(d[:10]) == d[10]
}

// checkDigit weights the digits from len+1 down to 2.
func checkDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, v := range digits {
		sum += v * weight
		weight--
	}
	r := (sum * 10) % 11
	if r == 10 {
		return 0
	}
	return r
}
