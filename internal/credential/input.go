package credential

// Input is one attribute/value pair offered for issuance. Sensitive
// left nil defers to the attribute catalogue's default.
type Input struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Sensitive *bool  `json:"sensitive,omitempty"`
}

// SensitiveOrDefault resolves the effective sensitivity.
func (in Input) SensitiveOrDefault() bool {
	if in.Sensitive != nil {
		return *in.Sensitive
	}
	return SensitiveByDefault(in.Attribute)
}
