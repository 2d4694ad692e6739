package dsl

import (
	"regexp"
	"unicode"

	"github.com/rivo/uniseg"
)

// customEmoji — серверный эмодзи Discord: <:name:id> или анимированный <a:name:id>.
var customEmoji = regexp.MustCompile(`^<a?:[A-Za-z0-9_~]{1,32}:[0-9]{15,21}>`)

// lexEmoji читает ровно один эмодзи с позиции i: серверный в угловых скобках или
// один графемный кластер Unicode (флаги, ZWJ-последовательности, модификаторы тона
// кожи остаются одним эмодзи). Возвращает эмодзи и позицию за ним.
func lexEmoji(src []rune, i int) (string, int, bool) {
	if i >= len(src) {
		return "", i, false
	}
	rest := string(src[i:])

	if m := customEmoji.FindString(rest); m != "" {
		return m, i + len([]rune(m)), true
	}

	cluster, _, _, _ := uniseg.FirstGraphemeClusterInString(rest, -1)
	if cluster == "" || !looksLikeEmoji(cluster) {
		return "", i, false
	}
	return cluster, i + len([]rune(cluster)), true
}

// looksLikeEmoji — в кластере есть символ-пиктограмма, региональный индикатор
// (флаги) или знак keycap (1️⃣).
func looksLikeEmoji(cluster string) bool {
	for _, r := range cluster {
		switch {
		case r >= 0x1F1E6 && r <= 0x1F1FF:
			return true
		case r == 0x20E3:
			return true
		case r > 0x7F && unicode.Is(unicode.So, r):
			return true
		}
	}
	return false
}
