package domain

import "strings"

// Level is the seniority of an employee.
type Level string

const (
	LevelIntern Level = "Intern"
	LevelJunior Level = "Junior"
	LevelSenior Level = "Senior"
)

// Levels lists the allowed levels in display order.
var Levels = []Level{LevelIntern, LevelJunior, LevelSenior}

// ParseLevel matches s against the allowed levels, ignoring case and
// surrounding whitespace.
func ParseLevel(s string) (Level, bool) {
	s = strings.TrimSpace(s)
	for _, l := range Levels {
		if strings.EqualFold(s, string(l)) {
			return l, true
		}
	}
	return Level(s), false
}

// Valid reports whether l is one of the allowed levels.
func (l Level) Valid() bool {
	for _, v := range Levels {
		if l == v {
			return true
		}
	}
	return false
}

func (l Level) String() string { return string(l) }

// Record is one employee entry. ID is assigned by the store on creation and
// serialised as "_id" to stay compatible with existing clients.
type Record struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Level    Level  `json:"level"`
}

// Equal reports whether r and o carry the same field values, ignoring ID.
func (r Record) Equal(o Record) bool {
	return r.Name == o.Name && r.Position == o.Position && r.Level == o.Level
}
