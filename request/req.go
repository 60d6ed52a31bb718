package request

type TransferReq struct {
	UserID    string `json:"userId" binding:"required"`
	Recipient string `json:"recipient" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
}

type CreateWalletReq struct {
	UserID string `json:"userId" binding:"required"`
}
