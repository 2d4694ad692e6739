package rules

// Merge сворачивает условия-идентичности (guild, channel, exact_channel, author)
// в множества.
//
// Правила свёртки:
//   - не-идентичности и отрицательные идентичности сохраняют исходный порядок;
//     отрицательное условие с несколькими ID раскладывается на одиночные
//     (not-in {a,b} == not-in {a} AND not-in {b});
//   - положительные идентичности одного вида объединяются в одно условие-множество
//     (логическое ИЛИ внутри вида); такие группы дописываются в конец в порядке
//     первого появления вида.
//
// Функция чистая и детерминированная, Merge(Merge(x)) == Merge(x).
func Merge(conds []Condition) []Condition {
	type group struct {
		proto Condition
		ids   []ID
	}
	var (
		out    = make([]Condition, 0, len(conds))
		order  []Kind
		groups = make(map[Kind]*group)
	)

	for _, c := range conds {
		ids, ok := identityIDs(c)
		if !ok {
			out = append(out, c)
			continue
		}
		if c.Negated() {
			for _, id := range NormalizeIDs(ids) {
				out = append(out, withIDs(c, []ID{id}, true))
			}
			continue
		}
		g, seen := groups[c.Kind()]
		if !seen {
			g = &group{proto: c}
			groups[c.Kind()] = g
			order = append(order, c.Kind())
		}
		g.ids = append(g.ids, ids...)
	}

	for _, k := range order {
		g := groups[k]
		out = append(out, withIDs(g.proto, NormalizeIDs(g.ids), false))
	}
	return out
}
