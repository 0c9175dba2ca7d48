package domain

// Credentials holds the portal login data. Constructed once from
// configuration and read-only for the process lifetime.
type Credentials struct {
	// Login is the portal user identifier.
	Login string

	// Secret is the portal password. Never logged.
	Secret string

	// OrgCode is the organisation code sent with the login form and
	// the org selection cookie.
	OrgCode string
}

// Validate checks all required fields are present.
func (c Credentials) Validate() error {
	if c.Login == "" || c.Secret == "" || c.OrgCode == "" {
		return ErrConfiguration
	}
	return nil
}

// String implements fmt.Stringer and redacts the secret so credentials
// can never leak through logging.
func (c Credentials) String() string {
	return "Credentials{login=" + c.Login + ", org=" + c.OrgCode + ", secret=***}"
}
