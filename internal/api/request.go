package api

// OrderCreateRequest is the payload to create a settlement order.
type OrderCreateRequest struct {
	MerchantID        string `json:"merchantId" example:"merchant-demo-01"`
	Token             string `json:"token" example:"USDC"`
	Amount            string `json:"amount" example:"100.00"`
	FiatCurrency      string `json:"fiatCurrency" example:"TZS"`
	Institution       string `json:"institution" example:"CRDBTZTZ"`
	AccountIdentifier string `json:"accountIdentifier" example:"255700000001"`
	AccountName       string `json:"accountName,omitempty"`
	Network           string `json:"network,omitempty" example:"base"`
	Reference         string `json:"reference,omitempty"`
	Memo              string `json:"memo,omitempty"`
	ReturnAddress     string `json:"returnAddress,omitempty"`
}

// VerifyAccountRequest is the payload to resolve an account-holder name.
type VerifyAccountRequest struct {
	MerchantID        string `json:"merchantId"`
	Institution       string `json:"institution" example:"CRDBTZTZ"`
	AccountIdentifier string `json:"accountIdentifier" example:"255700000001"`
}
