package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownSetting — команда настройки с таким именем не существует.
var ErrUnknownSetting = errors.New("unknown setting")

// SettingDef описывает одну настройку для команды settings: ключ хранилища,
// имя подкоманды, человекочитаемое название и пояснение.
type SettingDef struct {
	Key         string
	Command     string
	Name        string
	Description string

	get func(Settings) string
	set func(*Settings, string) error
}

// Value возвращает текущее значение настройки (с учётом умолчания) в текстовом виде.
func (d SettingDef) Value(s Settings) string { return d.get(s) }

// Set разбирает value и записывает его в s.
func (d SettingDef) Set(s *Settings, value string) error { return d.set(s, value) }

// SettingDefs — все настройки в порядке вывода.
var SettingDefs = []SettingDef{
	{
		Key:     "before_time",
		Command: "delay-before",
		Name:    "Delay before",
		Description: "Highlights don't work if you're active in the channel. " +
			"This is the amount of time it takes after your last activity before you're no longer considered active.",
		get: func(s Settings) string { return strconv.Itoa(intOr(s.BeforeTime, defaultBeforeTime)) },
		set: func(s *Settings, v string) error { return setInt(&s.BeforeTime, v) },
	},
	{
		Key:     "after_time",
		Command: "delay-after",
		Name:    "Delay after",
		Description: "The delay after a highlight is triggered before the DM is sent. " +
			"If you're active in this time, the highlight is cancelled.",
		get: func(s Settings) string { return strconv.Itoa(intOr(s.AfterTime, defaultAfterTime)) },
		set: func(s *Settings, v string) error { return setInt(&s.AfterTime, v) },
	},
	{
		Key:         "debounce_time",
		Command:     "debounce-cooldown",
		Name:        "Debounce cooldown",
		Description: "The cooldown between highlights so you don't get highlighted multiple times in a row.",
		get:         func(s Settings) string { return strconv.Itoa(intOr(s.DebounceTime, defaultDebounceTime)) },
		set:         func(s *Settings, v string) error { return setInt(&s.DebounceTime, v) },
	},
	{
		Key:         "debounce_global",
		Command:     "debounce-global",
		Name:        "Global debouncing",
		Description: "Whether to apply the debounce cooldown across all rules instead of per rule.",
		get:         func(s Settings) string { return strconv.FormatBool(boolOr(s.DebounceGlobal, defaultDebounceGlobal)) },
		set:         func(s *Settings, v string) error { return setBool(&s.DebounceGlobal, v) },
	},
	{
		Key:     "debounce_fixed",
		Command: "debounce-fixed",
		Name:    "Fixed debounce window",
		Description: "Apply a fixed window for debouncing. Without this option enabled, " +
			"the debounce cooldown will reset every time a highlight triggers, even if the cooldown has not run out yet.",
		get: func(s Settings) string { return strconv.FormatBool(boolOr(s.DebounceFixed, defaultDebounceFixed)) },
		set: func(s *Settings, v string) error { return setBool(&s.DebounceFixed, v) },
	},
	{
		Key:         "mention_activity",
		Command:     "mention-activity",
		Name:        "Mention activity",
		Description: "Treat people mentioning (pinging) you as activity for the purposes of cooldowns.",
		get:         func(s Settings) string { return strconv.FormatBool(boolOr(s.MentionActivity, defaultMentionActivity)) },
		set:         func(s *Settings, v string) error { return setBool(&s.MentionActivity, v) },
	},
}

// LookupSetting ищет настройку по имени подкоманды или ключу хранилища.
func LookupSetting(name string) (SettingDef, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range SettingDefs {
		if d.Command == name || d.Key == name {
			return d, nil
		}
	}
	return SettingDef{}, fmt.Errorf("%w: %q", ErrUnknownSetting, name)
}

func setInt(dst **int, value string) error {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%q is not a valid integer", value)
	}
	if v < 0 {
		return fmt.Errorf("%d must not be negative", v)
	}
	*dst = &v
	return nil
}

// setBool понимает те же варианты, что и strconv.ParseBool, плюс yes/no/on/off.
func setBool(dst **bool, value string) error {
	var v bool
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "on", "enable", "enabled":
		v = true
	case "no", "n", "off", "disable", "disabled":
		v = false
	default:
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%q is not a valid boolean", value)
		}
		v = parsed
	}
	*dst = &v
	return nil
}
