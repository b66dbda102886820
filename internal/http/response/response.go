// Package response задаёт общий JSON-формат ответов HTTP API синхронизации.
package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
)

// Статусы ответа.
const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Response — тело любого ответа API. При ошибке заполнено Error, при успехе Data.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// StatusOKWithData оборачивает data в успешный ответ.
func StatusOKWithData(data any) Response {
	return Response{Status: StatusOK, Data: data}
}

// Error формирует ответ с ошибкой msg.
func Error(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}

// ErrorWithData формирует ответ с ошибкой, который всё же несёт данные,
// например отчёт о проверке состояния.
func ErrorWithData(msg string, data any) Response {
	return Response{Status: StatusError, Error: msg, Data: data}
}

// validationMessages сопоставляет тег валидатора с текстом ошибки.
// %[1]s — имя поля, %[2]s — параметр тега.
var validationMessages = map[string]string{
	"required": "field %[1]s is a required field",
	"email":    "field %[1]s must be a valid email",
	"gte":      "field %[1]s must be at least %[2]s",
	"lte":      "field %[1]s must be at most %[2]s",
	"numeric":  "field %[1]s can contain only numbers",
}

// ValidationError собирает все нарушения валидации в одну строку через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		format, ok := validationMessages[fe.ActualTag()]
		if !ok {
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", fe.Field()))
			continue
		}
		if strings.Contains(format, "%[2]s") {
			msgs = append(msgs, fmt.Sprintf(format, fe.Field(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf(format, fe.Field()))
		}
	}
	return Error(strings.Join(msgs, ", "))
}
