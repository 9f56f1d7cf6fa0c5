package models

import "strings"

// TermName is the season a legacy term belongs to.
type TermName string

const (
	TermFall   TermName = "FALL"
	TermWinter TermName = "WINTER"
	TermSpring TermName = "SPRING"
	TermSummer TermName = "SUMMER"
)

var termNames = map[string]TermName{
	"F": TermFall, "FALL": TermFall,
	"W": TermWinter, "WINTER": TermWinter,
	"S": TermSpring, "SPRING": TermSpring,
	"U": TermSummer, "SUMMER": TermSummer,
}

// ParseTermName accepts either the one-letter legacy code or the full name.
func ParseTermName(raw string) (TermName, bool) {
	name, ok := termNames[strings.ToUpper(strings.TrimSpace(raw))]
	return name, ok
}

// IncidentType classifies a discipline incident.
type IncidentType string

const (
	IncidentFighting   IncidentType = "FGT"
	IncidentTruancy    IncidentType = "TRU"
	IncidentTobacco    IncidentType = "TOB"
	IncidentWeapon     IncidentType = "WPN"
	IncidentBullying   IncidentType = "BUL"
	IncidentDisruption IncidentType = "DIS"
	IncidentOther      IncidentType = "OTH"
)

var incidentTypes = map[IncidentType]string{
	IncidentFighting:   "Fighting",
	IncidentTruancy:    "Truancy",
	IncidentTobacco:    "Tobacco",
	IncidentWeapon:     "Weapon",
	IncidentBullying:   "Bullying",
	IncidentDisruption: "Classroom disruption",
	IncidentOther:      "Other",
}

// ParseIncidentType validates a stored incident code.
func ParseIncidentType(raw string) (IncidentType, bool) {
	code := IncidentType(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := incidentTypes[code]
	return code, ok
}

// Label returns the display label for the code.
func (t IncidentType) Label() string {
	if label, ok := incidentTypes[t]; ok {
		return label
	}
	return string(t)
}

// ActionCode is the consequence assigned for an incident.
type ActionCode string

const (
	ActionWarning          ActionCode = "WRN"
	ActionDetention        ActionCode = "DET"
	ActionInSchoolSuspend  ActionCode = "ISS"
	ActionOutSchoolSuspend ActionCode = "OSS"
	ActionExpulsion        ActionCode = "EXP"
	ActionParentConference ActionCode = "PAR"
)

var actionCodes = map[ActionCode]string{
	ActionWarning:          "Warning",
	ActionDetention:        "Detention",
	ActionInSchoolSuspend:  "In-school suspension",
	ActionOutSchoolSuspend: "Out-of-school suspension",
	ActionExpulsion:        "Expulsion",
	ActionParentConference: "Parent conference",
}

// ParseActionCode validates a stored action code.
func ParseActionCode(raw string) (ActionCode, bool) {
	code := ActionCode(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := actionCodes[code]
	return code, ok
}

// Label returns the display label for the code.
func (c ActionCode) Label() string {
	if label, ok := actionCodes[c]; ok {
		return label
	}
	return string(c)
}
