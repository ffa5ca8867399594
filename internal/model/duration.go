package model

import (
	"fmt"
	"math"
)

// Jornada de trabalho assumida em todo o serviço
const (
	HoursPerDay  = 8
	HoursPerWeek = 40
	DaysPerWeek  = 5
)

// DurationDays converte horas em dias úteis (mínimo 1)
func DurationDays(hours float64) int {
	days := int(math.Ceil(hours / HoursPerDay))
	if days < 1 {
		days = 1
	}
	return days
}

// DurationDaysText formata horas como texto "N days"
func DurationDaysText(hours float64) string {
	return fmt.Sprintf("%d days", DurationDays(hours))
}

// DurationWeeks converte horas totais em semanas (mínimo 1)
func DurationWeeks(totalHours float64) int {
	weeks := int(math.Ceil(totalHours / HoursPerWeek))
	if weeks < 1 {
		weeks = 1
	}
	return weeks
}

// DurationWeeksText formata horas totais como texto "N weeks"
func DurationWeeksText(totalHours float64) string {
	return fmt.Sprintf("%d weeks", DurationWeeks(totalHours))
}

// WeeksFromDays converte dias úteis em semanas (teto, mínimo 1)
func WeeksFromDays(days int) int {
	weeks := (days + DaysPerWeek - 1) / DaysPerWeek
	if weeks < 1 {
		weeks = 1
	}
	return weeks
}
