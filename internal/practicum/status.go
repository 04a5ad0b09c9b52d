package practicum

import (
	"fmt"

	"hwbot/internal/fault"
)

// Review statuses reported by the API.
const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

const (
	keyHomeworkName = "homework_name"
	keyStatus       = "status"
)

var verdicts = map[string]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// Verdict returns the fixed sentence for a status.
func Verdict(status string) (string, bool) {
	v, ok := verdicts[status]
	return v, ok
}

// ParseRecord is ParseStatus for a record straight out of Response.Homeworks.
func ParseRecord(rec any) (string, error) {
	hw, ok := rec.(map[string]any)
	if !ok {
		return "", fault.New(fault.KindParse, "запись о домашке не является объектом")
	}
	return ParseStatus(hw)
}

// ParseStatus builds the notification text for one homework record.
func ParseStatus(hw map[string]any) (string, error) {
	for _, key := range []string{keyHomeworkName, keyStatus} {
		if _, ok := hw[key]; !ok {
			return "", fault.New(fault.KindParse, "ключ %s не обнаружен", key)
		}
	}

	if hw[keyHomeworkName] == nil {
		return "", fault.New(fault.KindParse, "пустое значение ключа %s", keyHomeworkName)
	}

	status, _ := hw[keyStatus].(string)
	verdict, ok := Verdict(status)
	if !ok {
		return "", fault.New(fault.KindParse, "нестандартный статус в информации о домашке.")
	}

	var name string
	switch v := hw[keyHomeworkName].(type) {
	case string:
		name = v
	default:
		name = fmt.Sprint(v)
	}
	return fmt.Sprintf("Изменился статус проверки работы \"%s\". %s", name, verdict), nil
}
