package application

import "fmt"

// FormatPrice renders minor units as dollars, e.g. 4200 -> "$42.00".
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// FormatDuration picks the largest of year (365d), month (30d), week and day that divides days evenly.
func FormatDuration(days int) string {
	unit := func(n int, one, many string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, one)
		}
		return fmt.Sprintf("%d %s", n, many)
	}
	switch {
	case days > 0 && days%365 == 0:
		return unit(days/365, "year", "years")
	case days > 0 && days%30 == 0:
		return unit(days/30, "month", "months")
	case days > 0 && days%7 == 0:
		return unit(days/7, "week", "weeks")
	default:
		return unit(days, "day", "days")
	}
}
