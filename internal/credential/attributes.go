package credential

// Attribute names issued from a national identity card. The set is
// fixed: issuing an unknown attribute is allowed (the ledger does not
// police vocabularies) but these are the ones the card parser emits
// and the proof claims reference.
const (
	AttrFullName     = "full_name"
	AttrNRIC         = "nric"
	AttrDateOfBirth  = "date_of_birth"
	AttrBirthState   = "birth_state"
	AttrGender       = "gender"
	AttrAddress      = "address"
	AttrRace         = "race"
	AttrReligion     = "religion"
	AttrCitizenship  = "citizenship"
	AttrAge          = "age"
	AttrIncome       = "monthly_income"
	AttrBloodType    = "blood_type"
	AttrOrganDonor   = "organ_donor"
	AttrLicenseClass = "driving_license_class"
)

// sensitiveByDefault lists attributes whose plaintext must never
// appear in a block payload. Everything else defaults to disclosed.
var sensitiveByDefault = map[string]bool{
	AttrNRIC:        true,
	AttrDateOfBirth: true,
	AttrAddress:     true,
	AttrIncome:      true,
	AttrBloodType:   true,
	AttrReligion:    true,
}

// SensitiveByDefault reports whether an attribute is hashed twice and
// withheld from display unless the caller overrides the default.
func SensitiveByDefault(attribute string) bool {
	return sensitiveByDefault[attribute]
}
