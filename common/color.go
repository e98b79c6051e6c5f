package common

import (
	"github.com/logrusorgru/aurora"
)

func AlertColor(str string) string {
	return aurora.Red(str).String()
}

func InfoColor(str string) string {
	return aurora.Green(str).String()
}

func VerboseColor(str string) string {
	return aurora.Gray(8, str).String()
}

func SourceWithColor(source string) string {
	if source == "remote" {
		return InfoColor(source)
	}
	return VerboseColor(source)
}
