package models

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&ActivationToken{},
		&PasswordResetToken{},
		&UserProfile{},
		&Certification{},
		&Genre{},
		&Director{},
		&Star{},
		&Movie{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&PaymentItem{},
		&WebhookEvent{},
	}
}
