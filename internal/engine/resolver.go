package engine

import (
	"math"
	"strconv"
	"strings"

	"github.com/shaiso/Journey/internal/domain"
)

// ResolvePrefillValue вычисляет значение поля по его PrefillConfig.
//
// Порядок:
//  1. SourceFormID и SourceFieldID заданы — значение берётся из отправленных
//     данных формы. Ключ — последний сегмент SourceFieldID после "-".
//     Отсутствующее и "ложное" значение (nil, false, 0, "") дают absent.
//  2. Иначе, если задан GlobalDataPath — разбор пути в глобальных данных.
//  3. Иначе — absent.
//
// Второе возвращаемое значение false означает absent.
// Функция чистая: результат зависит только от аргументов.
func ResolvePrefillValue(cfg domain.PrefillConfig, submissions domain.FormSubmissionData, global domain.GlobalData) (any, bool) {
	if cfg.SourceFormID != "" && cfg.SourceFieldID != "" {
		data, ok := submissions[cfg.SourceFormID]
		if !ok || data == nil {
			return nil, false
		}

		value, ok := data[FieldKey(cfg.SourceFieldID)]
		if !ok || isFalsy(value) {
			return nil, false
		}
		return value, true
	}

	if cfg.GlobalDataPath != "" {
		return ResolvePath(map[string]any(global), cfg.GlobalDataPath)
	}

	return nil, false
}

// FieldKey извлекает ключ данных из составного идентификатора поля:
// последний сегмент после "-". Строка без "-" возвращается как есть.
//
//	FieldKey("form-47c61d17-email") // "email"
//	FieldKey("email")               // "email"
func FieldKey(sourceFieldID string) string {
	if i := strings.LastIndex(sourceFieldID, "-"); i >= 0 {
		return sourceFieldID[i+1:]
	}
	return sourceFieldID
}

// ResolvePath разбирает путь через точку во вложенной структуре.
//
// На каждом шаге текущее значение должно быть составным (map или срез);
// иначе разбор сразу возвращает absent, даже если сегменты ещё остались.
// Отсутствующий ключ переносится на следующий шаг и обнаруживается там
// или в конце. Итоговое nil-значение тоже считается absent.
//
//	ResolvePath(map[string]any{"a": map[string]any{"b": 42}}, "a.b") // 42, true
//	ResolvePath(map[string]any{"a": map[string]any{}}, "a.b.c")      // nil, false
func ResolvePath(root any, path string) (any, bool) {
	current := root

	for _, part := range strings.Split(path, ".") {
		next, composite := step(current, part)
		if !composite {
			return nil, false
		}
		current = next
	}

	if current == nil {
		return nil, false
	}
	return current, true
}

// step делает один шаг разбора пути.
// Второе значение — было ли текущее значение составным.
func step(current any, key string) (any, bool) {
	switch v := current.(type) {
	case map[string]any:
		return v[key], true

	case domain.GlobalData:
		return v[key], true

	case map[string]string:
		if s, ok := v[key]; ok {
			return s, true
		}
		return nil, true

	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(v) {
			return nil, true
		}
		return v[i], true

	default:
		// nil, скаляры и прочие типы — тупик
		return nil, false
	}
}

// isFalsy повторяет правило "ложности" значения, с которым работает
// редактор: nil, false, числовой ноль, NaN и пустая строка.
// Пустые map и срезы ложными не считаются.
func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case int:
		return v == 0
	case int8:
		return v == 0
	case int16:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	case uint:
		return v == 0
	case uint8:
		return v == 0
	case uint16:
		return v == 0
	case uint32:
		return v == 0
	case uint64:
		return v == 0
	case float32:
		return v == 0 || math.IsNaN(float64(v))
	case float64:
		return v == 0 || math.IsNaN(v)
	default:
		return false
	}
}
