package request_models

type PurchaseRequest struct {
	Amount    float64                `json:"amount" binding:"required,gt=0"`
	Currency  string                 `json:"currency" binding:"required,len=3"`
	UserEmail string                 `json:"userEmail" binding:"required,email"`
	PackageID string                 `json:"packageId" binding:"required"`
	Gateway   string                 `json:"gateway" binding:"required"`
	Metadata  map[string]interface{} `json:"metadata"`
}

type RefundRequest struct {
	Reason string `json:"reason"`
}
