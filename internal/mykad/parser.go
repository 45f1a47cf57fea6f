// Package mykad derives identity attributes from a Malaysian national
// identity card number. The number encodes date of birth, place of
// birth and gender, so a parsed card seeds a whole credential set
// without any further data entry.
package mykad

import (
	"regexp"
	"strconv"
	"time"

	"credchain/internal/credential"
	dErrors "credchain/pkg/domain-errors"
)

// NRIC layout: YYMMDD-PB-####. Dashes are how cards print it; both
// forms are accepted and normalised.
var nricPattern = regexp.MustCompile(`^(\d{6})-?(\d{2})-?(\d{4})$`)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Identity is everything a card number discloses about its holder.
type Identity struct {
	NRIC        string
	DateOfBirth time.Time
	BirthState  string
	Gender      string
	Age         int
}

// AttributeValue is one attribute pair derived from the card, ready
// for an issuing session.
type AttributeValue struct {
	Attribute string
	Value     string
}

// Place-of-birth registration codes. Each state owns a primary code
// and a handful of later allocations.
var birthStates = map[string]string{
	"01": "Johor", "21": "Johor", "22": "Johor", "23": "Johor", "24": "Johor",
	"02": "Kedah", "25": "Kedah", "26": "Kedah", "27": "Kedah",
	"03": "Kelantan", "28": "Kelantan", "29": "Kelantan",
	"04": "Melaka", "30": "Melaka",
	"05": "Negeri Sembilan", "31": "Negeri Sembilan", "59": "Negeri Sembilan",
	"06": "Pahang", "32": "Pahang", "33": "Pahang",
	"07": "Pulau Pinang", "34": "Pulau Pinang", "35": "Pulau Pinang",
	"08": "Perak", "36": "Perak", "37": "Perak", "38": "Perak", "39": "Perak",
	"09": "Perlis", "40": "Perlis",
	"10": "Selangor", "41": "Selangor", "42": "Selangor", "43": "Selangor", "44": "Selangor",
	"11": "Terengganu", "45": "Terengganu", "46": "Terengganu",
	"12": "Sabah", "47": "Sabah", "48": "Sabah", "49": "Sabah",
	"13": "Sarawak", "50": "Sarawak", "51": "Sarawak", "52": "Sarawak", "53": "Sarawak",
	"14": "Kuala Lumpur", "54": "Kuala Lumpur", "55": "Kuala Lumpur", "56": "Kuala Lumpur", "57": "Kuala Lumpur",
	"15": "Labuan", "58": "Labuan",
	"16": "Putrajaya",
}

// Parse derives the holder's identity from a card number, with ages
// computed as of now.
func Parse(nric string) (Identity, error) {
	return ParseAt(nric, time.Now())
}

// ParseAt is Parse with an explicit reference time.
func ParseAt(nric string, now time.Time) (Identity, error) {
	m := nricPattern.FindStringSubmatch(nric)
	if m == nil {
		return Identity{}, dErrors.Newf(dErrors.CodeInvalidInput, "NRIC %q does not match YYMMDD-PB-####", nric)
	}
	datePart, placeCode, serial := m[1], m[2], m[3]

	dob, err := birthDate(datePart, now)
	if err != nil {
		return Identity{}, err
	}

	state, err := stateOf(placeCode)
	if err != nil {
		return Identity{}, err
	}

	// Last serial digit: odd for male, even for female.
	gender := GenderFemale
	if (serial[3]-'0')%2 == 1 {
		gender = GenderMale
	}

	return Identity{
		NRIC:        datePart + "-" + placeCode + "-" + serial,
		DateOfBirth: dob,
		BirthState:  state,
		Gender:      gender,
		Age:         ageAt(dob, now),
	}, nil
}

// birthDate expands YYMMDD. Two-digit years pivot on the current
// year: anything at or below it is this century, anything above is
// the last one. Centenarians lose out, as with every 6-digit card
// format.
func birthDate(yymmdd string, now time.Time) (time.Time, error) {
	yy, _ := strconv.Atoi(yymmdd[0:2])
	month, _ := strconv.Atoi(yymmdd[2:4])
	day, _ := strconv.Atoi(yymmdd[4:6])

	year := 1900 + yy
	if yy <= now.Year()%100 {
		year = 2000 + yy
	}

	dob := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if dob.Year() != year || dob.Month() != time.Month(month) || dob.Day() != day {
		return time.Time{}, dErrors.Newf(dErrors.CodeInvalidInput, "NRIC encodes impossible birth date %s", yymmdd)
	}
	if dob.After(now) {
		return time.Time{}, dErrors.Newf(dErrors.CodeInvalidInput, "NRIC encodes future birth date %s", yymmdd)
	}
	return dob, nil
}

func stateOf(code string) (string, error) {
	if state, ok := birthStates[code]; ok {
		return state, nil
	}
	// 60 and up mark registrations for holders born abroad.
	if n, _ := strconv.Atoi(code); n >= 60 && n <= 87 {
		return "Luar Negara", nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unrecognised place-of-birth code %q", code)
}

func ageAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// Attributes expands the identity into the pairs an issuing session
// writes to the ledger.
func (id Identity) Attributes() []AttributeValue {
	return []AttributeValue{
		{Attribute: credential.AttrNRIC, Value: id.NRIC},
		{Attribute: credential.AttrDateOfBirth, Value: id.DateOfBirth.Format("2006-01-02")},
		{Attribute: credential.AttrBirthState, Value: id.BirthState},
		{Attribute: credential.AttrGender, Value: id.Gender},
		{Attribute: credential.AttrAge, Value: strconv.Itoa(id.Age)},
	}
}

// CredentialInputs maps a parsed card plus the holder's printed name
// into issuance inputs. Sensitivity is left to the attribute
// catalogue's defaults, so the card number and birth date come out
// double-hashed and withheld from display.
func CredentialInputs(id Identity, fullName string) []credential.Input {
	inputs := make([]credential.Input, 0, 6)
	if fullName != "" {
		inputs = append(inputs, credential.Input{Attribute: credential.AttrFullName, Value: fullName})
	}
	for _, av := range id.Attributes() {
		inputs = append(inputs, credential.Input{Attribute: av.Attribute, Value: av.Value})
	}
	return inputs
}
