package domain

// All returns every persisted model, in dependency order, for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&ProjectImage{},
		&Lead{},
		&Interaction{},
		&Reservation{},
		&KYCSubmission{},
		&Investment{},
		&PaymentProof{},
	}
}
