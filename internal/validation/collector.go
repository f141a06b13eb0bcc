// Package validation содержит функции валидации входных данных.
package validation

import "regexp"

// collectorInfoRe описывает ожидаемый формат строки о сборщике:
// имя из букв, разделитель " - " и индийский номер телефона.
// Пример: "Collector Ram - +919876543210".
var collectorInfoRe = regexp.MustCompile(`^[A-Za-z]+( [A-Za-z]+)* - \+91[0-9]{10}$`)

// phoneRe описывает номер телефона в формате +91XXXXXXXXXX.
var phoneRe = regexp.MustCompile(`^\+91[0-9]{10}$`)

// IsValidCollectorInfo проверяет строку о назначенном сборщике.
func IsValidCollectorInfo(s string) bool {
	return collectorInfoRe.MatchString(s)
}

// IsValidPhone проверяет номер телефона контакта.
func IsValidPhone(s string) bool {
	return phoneRe.MatchString(s)
}
