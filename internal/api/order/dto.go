package order

import "QahwaBot/internal/entity"

// InboundMessageRequest is one webhook delivery from the messaging gateway.
type InboundMessageRequest struct {
	SenderID    string `json:"sender_id" validate:"required,min=7,max=32"`
	MessageID   string `json:"message_id" validate:"required,min=1,max=128"`
	Text        string `json:"text" validate:"required_without=ButtonReply,max=4096"`
	ButtonReply string `json:"button_reply" validate:"omitempty,max=64"`
	SenderName  string `json:"sender_name" validate:"omitempty,max=128"`
}

// UserText returns the effective utterance: a tapped quick-reply button
// wins over free text.
func (r InboundMessageRequest) UserText() string {
	if r.ButtonReply != "" {
		return r.ButtonReply
	}
	return r.Text
}

// TurnReply is the outbound side of one turn: plain text plus at most
// three quick-reply buttons.
type TurnReply struct {
	Text      string   `json:"text"`
	Buttons   []string `json:"buttons,omitempty"`
	Step      string   `json:"step"`
	Duplicate bool     `json:"duplicate,omitempty"`
}

type SessionResponse struct {
	PhoneNumber string `json:"phone_number"`
	DisplayName string `json:"display_name"`
	CurrentStep string `json:"current_step"`
	Language    string `json:"language"`
	OrderMode   string `json:"order_mode"`
	UpdatedAt   string `json:"updated_at"`
}

type SweepResponse struct {
	Removed int `json:"removed"`
}

type OrderSummaryResponse struct {
	OrderID     string               `json:"order_id"`
	ServiceType string               `json:"service_type"`
	Location    string               `json:"location"`
	Status      string               `json:"status"`
	Total       float64              `json:"total"`
	Lines       []OrderLineSummary   `json:"lines"`
}

type OrderLineSummary struct {
	ItemID   string  `json:"item_id"`
	ItemName string  `json:"item_name"`
	Quantity int     `json:"quantity"`
	Subtotal float64 `json:"subtotal"`
}

func NewOrderSummaryResponse(o *entity.Order) *OrderSummaryResponse {
	resp := &OrderSummaryResponse{
		OrderID:     o.ID,
		ServiceType: string(o.ServiceType),
		Location:    o.Location,
		Status:      string(o.Status),
		Total:       o.Total(),
	}
	for _, line := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineSummary{
			ItemID:   line.ItemID,
			ItemName: line.ItemName,
			Quantity: line.Quantity,
			Subtotal: line.Subtotal(),
		})
	}
	return resp
}
