package model

// Principal 已驗證的呼叫者身分（帳號位址或使用者 ID）
type Principal string

func (p Principal) IsZero() bool {
	return p == ""
}

// Amount 以最小貨幣單位計價的金額
type Amount = uint64
