package domain

// Stage is one step of the checkout flow. Stages are strictly ordered;
// forward transitions are gated by validation of the stage being left,
// backward transitions are unconditional.
type Stage string

const (
	StageCart         Stage = "cart"
	StageShipping     Stage = "shipping"
	StagePayment      Stage = "payment"
	StageConfirmation Stage = "confirmation"
)

func (s Stage) IsTerminal() bool {
	return s == StageConfirmation
}

// String representation (for logging)
func (s Stage) String() string {
	return string(s)
}

// CustomerInfo is the shipping data group collected during checkout.
// Field names double as validation error map keys.
type CustomerInfo struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type PaymentMethod string

const (
	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodMobilePay PaymentMethod = "mobilepay"
	PaymentMethodKlarna    PaymentMethod = "klarna"
)

// PaymentInfo is the payment data group. Card fields are only validated when
// Method is "card"; AcceptTerms applies to every method.
type PaymentInfo struct {
	Method      PaymentMethod `json:"method"`
	CardName    string        `json:"cardName"`
	CardNumber  string        `json:"cardNumber"`
	ExpiryDate  string        `json:"expiryDate"`
	CVC         string        `json:"cvc"`
	AcceptTerms bool          `json:"acceptTerms"`
}
