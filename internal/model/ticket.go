package model

// TicketType 活動底下的票種；ID 為活動內自 0 起的流水號
type TicketType struct {
	EventID       uint64 `json:"event_id"`
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	Price         Amount `json:"price"`
	MaxSupply     uint64 `json:"max_supply"`
	CurrentSupply uint64 `json:"current_supply"`
	// Reserved 保留給進行中拍賣的張數
	Reserved uint64 `json:"reserved"`
}

// Available 尚可售出的張數
func (t *TicketType) Available() uint64 {
	return t.MaxSupply - t.CurrentSupply - t.Reserved
}

type AddTicketTypeParams struct {
	Name      string
	Price     Amount
	MaxSupply uint64
}

// Holding 某呼叫者在某活動持有的票數（不區分票種）
type Holding struct {
	EventID  uint64    `json:"event_id"`
	Holder   Principal `json:"holder"`
	Quantity uint64    `json:"quantity"`
}

type PurchaseParams struct {
	EventID      uint64
	TicketTypeID uint64
	Quantity     uint64
	Value        Amount
}

type Purchase struct {
	EventID      uint64    `json:"event_id"`
	TicketTypeID uint64    `json:"ticket_type_id"`
	Buyer        Principal `json:"buyer"`
	Quantity     uint64    `json:"quantity"`
	TotalPrice   Amount    `json:"total_price"`
}

type TransferParams struct {
	EventID      uint64
	TicketTypeID uint64
	To           Principal
	Quantity     uint64
}
