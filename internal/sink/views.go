package sink

import "entgo.io/ent/dialect"

type view struct {
	name  string
	query string
}

// views are created after the tables, in this order; later views select
// from earlier ones.
var views = []view{
	{"dynasty_view", `SELECT id, name, culture FROM "historic_dynasty" UNION SELECT id, name, culture FROM "dynasty"`},
	{"character_view", `SELECT tmp.id, coalesce(ch.birth_name, hc.name) name, coalesce(ch.female, hc.female) female,
	coalesce(ch.birth_date, hc.birth_date) birth_date, coalesce(ch.death_date, hc.death_date) death_date,
	coalesce(ch.dynasty, hc.dynasty) dynasty, coalesce(ch.father, hc.father) father,
	coalesce(ch.mother, hc.mother) mother, coalesce(ch.religion, hc.religion) religion,
	coalesce(ch.culture, hc.culture) culture, coalesce(ch.employer, hc.employer) employer,
	coalesce(ch.properties, hc.properties) properties
FROM (SELECT id FROM "character" UNION SELECT id FROM "historic_character") tmp
LEFT JOIN "character" ch ON ch.id = tmp.id
LEFT JOIN "historic_character" hc ON hc.id = tmp.id`},
	{"family_tree", `SELECT cv.id id, cv.dynasty dynasty, cv.father father_id, fgp.dynasty pdynasty, cv.mother mother_id,
	mgp.dynasty mdynasty, fgp.father pgfather_id, fgp.mother pgmother_id, mgp.father mgfather_id, mgp.mother mgmother_id
FROM character_view cv
LEFT JOIN character_view fgp ON cv.father = fgp.id
LEFT JOIN character_view mgp ON cv.mother = mgp.id`},
	{"single_claimants", `SELECT cl.character_id, cl.title_id title_claim, cl.pressed pressed_claim, ch.female, ch.birth_name,
	dy.name dynasty_name, ch.culture, ch.religion, ch.dynasty dynasty_id, ch.birth_date, ch.is_bastard
FROM "claim" cl
LEFT JOIN "title" ti ON ti.holder = cl.character_id
LEFT JOIN "character" ch ON ch.id = cl.character_id
LEFT JOIN dynasty_view dy ON dy.id = ch.dynasty
WHERE ti.id IS NULL
AND ch.spouse IS NULL AND ch.death_date IS NULL AND ch.betrothal IS NULL`},
	{"single_dynasts", `SELECT ch2.* FROM "character" ch1 JOIN "character" ch2 ON ch1.dynasty = ch2.dynasty
WHERE ch1.player = 'yes' AND ch2.death_date IS NULL AND ch2.spouse IS NULL AND ch2.betrothal IS NULL`},
	{"marry_into_title", `SELECT ti.id title_id, ti.holder, ti.succession, ti.gender, ch.birth_name, dv.name dynasty_name,
	ch.dynasty, ch.female, ch.birth_date, ch.culture, ch.religion, ch.is_bastard
FROM "title" ti
LEFT JOIN "character" ch ON ch.id = ti.holder
LEFT JOIN dynasty_view dv ON dv.id = ch.dynasty
WHERE (ch.female IS NOT NULL OR ch.is_bastard IS NOT NULL)
AND ch.spouse IS NULL AND ch.betrothal IS NULL AND ch.death_date IS NULL`},
	{"exiled_ruler_single_child", `SELECT ch.id, ch.birth_name, dv.name dynasty_name, ch.culture, ch.religion, ch.birth_date,
	ch.dynasty, ch.female, ch.is_bastard, ch.father, ft.id father_title, ch.mother, mt.id mother_title
FROM "character" ch
LEFT JOIN "title" ft ON ft.holder = ch.father
LEFT JOIN "title" mt ON mt.holder = ch.mother
LEFT JOIN dynasty_view dv ON dv.id = ch.dynasty
WHERE ch.death_date IS NULL AND ch.spouse IS NULL AND ch.betrothal IS NULL
AND ch.host <> ch.id AND ch.host <> ch.father AND ch.host <> ch.mother
AND (ft.id IS NOT NULL OR mt.id IS NOT NULL)`},
	{"live_dynasts", `SELECT ch2.id, ch2.birth_name, ch2.female, ch2.birth_date, ch2.father, ch2.mother, ch2.spouse, ch2.host,
	CASE WHEN ch2.host = ch2.id THEN 'ruler'
		WHEN ch2.host = ch2.father OR ch2.host = ch2.mother THEN 'child of ruler'
		WHEN ch2.host = ch2.spouse THEN 'consort of ruler' END status
FROM "character" ch1 JOIN "character" ch2 ON ch1.dynasty = ch2.dynasty
WHERE ch1.player = 'yes' AND ch2.death_date IS NULL`},
}

func (v view) createSQL(d string) string {
	if d == dialect.Postgres {
		return "CREATE OR REPLACE VIEW " + v.name + " AS " + v.query
	}
	return "CREATE VIEW IF NOT EXISTS " + v.name + " AS " + v.query
}

func (v view) dropSQL() string {
	return "DROP VIEW IF EXISTS " + v.name
}
