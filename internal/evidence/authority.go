package evidence

// AuthorityModel scores how far a recommendation can be trusted from the
// publishing organization, how close its geographic scope is to the home
// country, and how recent it is.
type AuthorityModel struct {
	tables      *TrustTables
	currentYear func() int
}

func NewAuthorityModel(tables *TrustTables, cfg Config) *AuthorityModel {
	if tables == nil {
		tables = DefaultTrustTables()
	}
	return &AuthorityModel{tables: tables, currentYear: cfg.year}
}

// Calculate returns an authority score in [0,100]. Empty organization or
// scope and a zero year contribute only the defaults.
func (a *AuthorityModel) Calculate(organization, geographicScope string, year int) int {
	score, ok := firstWeighted(newTermText(organization), a.tables.Authority)
	if !ok {
		score = a.tables.DefaultAuthority
	}

	if geographicScope != "" {
		if bonus, ok := firstWeighted(newTermText(geographicScope), a.tables.Geographic); ok {
			score += bonus
		}
	}

	if year > 0 {
		score += a.recencyBonus(a.currentYear() - year)
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (a *AuthorityModel) recencyBonus(yearsOld int) int {
	// future-dated documents earn nothing
	if yearsOld < 0 || yearsOld >= len(a.tables.Recency) {
		return 0
	}
	return a.tables.Recency[yearsOld]
}

// ForSource scores a source from its metadata.
func (a *AuthorityModel) ForSource(meta SourceMetadata) int {
	return a.Calculate(meta.Organization, meta.GeographicScope, meta.Year)
}
