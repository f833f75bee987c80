package service

import "math"

// DistributeMarks splits totalMarks across count slots at two-decimal
// precision. Every slot gets the floored base share; the leftover pennies are
// dealt one at a time starting from the first slot, wrapping, so the slice
// always sums to totalMarks exactly and lower-index slots absorb the
// remainder first. A non-positive count yields an empty slice.
func DistributeMarks(totalMarks float64, count int) []float64 {
	if count <= 0 {
		return []float64{}
	}

	totalPennies := int(math.Round(totalMarks * 100))
	base := totalPennies / count

	pennies := make([]int, count)
	for i := range pennies {
		pennies[i] = base
	}

	remainder := totalPennies - base*count
	for i := 0; remainder > 0; remainder-- {
		pennies[i]++
		i++
		if i >= count {
			i = 0
		}
	}

	marks := make([]float64, count)
	for i, p := range pennies {
		marks[i] = float64(p) / 100
	}

	return marks
}

// Round2 rounds to two decimal places, the precision of every mark column.
func Round2(n float64) float64 {
	return math.Round(n*100) / 100
}

// Clamp bounds n into [min, max].
func Clamp(n, min, max float64) float64 {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
