// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

// IsValidRoutingNumber проверяет корректность банковского маршрутного номера ABA
// по контрольной сумме с весами 3-7-1.
func IsValidRoutingNumber(number string) bool {
	if len(number) != 9 {
		return false
	}

	sum := 0
	weights := [3]int{3, 7, 1}

	for i := 0; i < 9; i++ {
		ch := rune(number[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		sum += int(ch-'0') * weights[i%3]
	}

	return sum%10 == 0
}
