package saml

// UserAttributes is the caller-supplied mock identity asserted to the
// relying party. No validation beyond shape happens here: callers
// deliberately construct malformed identities for test coverage.
type UserAttributes struct {
	HCID        string
	ProxyID     string
	FirstName   string
	LastName    string
	DOB         string
	Email       string
	BrandID     string
	EmployerID  string
	StateCode   string
	FundingType string
}

// ClaimMappingVersion identifies the claim-naming scheme in use. The
// upstream consumer has shipped several incompatible schemes
// (UnderWritingStateCd vs StateCode among them); keep the mapping
// versioned so an alternate table can be added side by side instead of
// silently renaming claims.
const ClaimMappingVersion = "sydney-v2"

// claimPair binds a canonical attribute to its external claim name.
type claimPair struct {
	claim string
	value string
}

// claimPairs returns the sydney-v2 mapping in stable order.
func (a UserAttributes) claimPairs() []claimPair {
	return []claimPair{
		{"UserId", a.HCID},
		{"ProxyID", a.ProxyID},
		{"userName", a.FirstName},
		{"userSurname", a.LastName},
		{"userDateOfBirth", a.DOB},
		{"UserEmail", a.Email},
		{"BrandId", a.BrandID},
		{"EmployerID", a.EmployerID},
		{"UnderWritingStateCd", a.StateCode},
		{"FundgTypeCd", a.FundingType},
	}
}

// SAMLAttributes renders the attribute set plus the primary email
// claim as SAML Attribute elements.
func (a UserAttributes) SAMLAttributes() []Attribute {
	pairs := a.claimPairs()
	attrs := make([]Attribute, 0, len(pairs)+1)
	attrs = append(attrs, newAttribute("email", a.Email))
	for _, p := range pairs {
		attrs = append(attrs, newAttribute(p.claim, p.value))
	}
	return attrs
}

func newAttribute(name, value string) Attribute {
	return Attribute{
		Name:            name,
		NameFormat:      attrNameFormatBasic,
		AttributeValues: []AttributeValue{{Value: value}},
	}
}
