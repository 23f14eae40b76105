package crawler

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	eokPattern      = regexp.MustCompile(`(\d+)억`)
	afterEokPattern = regexp.MustCompile(`억([\d,]+)`)
	numberPattern   = regexp.MustCompile(`[\d,]+`)
)

// ParsePriceMan converts a Korean listing price string to 만원 (10,000 KRW)
// units. "5억 3,000" is 53000, "2억" is 20000, "3,000" is 3000. Empty or
// unparseable input yields 0.
func ParsePriceMan(raw string) int64 {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" || cleaned == "-" {
		return 0
	}

	var total int64
	eok := eokPattern.FindStringSubmatch(cleaned)
	if eok != nil {
		if v, err := strconv.ParseInt(eok[1], 10, 64); err == nil {
			total += v * 10000
		}
		if rest := afterEokPattern.FindStringSubmatch(cleaned); rest != nil {
			if v, err := strconv.ParseInt(strings.ReplaceAll(rest[1], ",", ""), 10, 64); err == nil {
				total += v
			}
		}
		return total
	}

	nums := numberPattern.FindAllString(cleaned, -1)
	if len(nums) == 0 {
		return 0
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(nums[len(nums)-1], ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
